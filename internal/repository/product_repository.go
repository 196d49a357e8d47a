package repository

import (
	"context"
	"fmt"

	"product-store/internal/logger"
	"product-store/internal/model"
	"product-store/internal/service"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

const ProductCollection = "products"

var _ service.DocumentStore = (*ProductRepository)(nil)

// ProductRepository is the MongoDB implementation of service.DocumentStore.
type ProductRepository struct {
	collection *mongo.Collection
}

var ProductRepositoryTracer = otel.Tracer("ProductRepository")

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		collection: db.Collection(ProductCollection),
	}
}

// EnsureIndexes creates the unique index on id that backs the one-document-per-id rule.
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.EnsureIndexes")
	defer span.End()
	logger.Info(ctx, "Repository")

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create products id index: %w", err)
	}
	return nil
}

func (r *ProductRepository) InsertOne(ctx context.Context, product *model.Product) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.InsertOne")
	defer span.End()
	logger.Info(ctx, "Repository")

	_, err := r.collection.InsertOne(ctx, product)
	return err
}

func (r *ProductRepository) FindOne(ctx context.Context, filter bson.M) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.FindOne")
	defer span.End()
	logger.Info(ctx, "Repository")

	var product model.Product
	if err := r.collection.FindOne(ctx, filter).Decode(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) FindOneAndUpdate(ctx context.Context, filter bson.M, set bson.M) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.FindOneAndUpdate")
	defer span.End()
	logger.Info(ctx, "Repository")

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product model.Product
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&product)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Find(ctx context.Context, filter bson.M) (service.Cursor, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.Find")
	defer span.End()
	logger.Info(ctx, "Repository")

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (r *ProductRepository) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "ProductRepository.DeleteOne")
	defer span.End()
	logger.Info(ctx, "Repository")

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
