package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"product-store/internal/apperror"
	"product-store/internal/logger"
	"product-store/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// priceScale converts caller-facing price bounds into the stored unit.
const priceScale = 1000

type ProductService struct {
	store DocumentStore
	now   func() time.Time
}

var ProductServiceTracer = otel.Tracer("ProductService")

func NewProductService(store DocumentStore) *ProductService {
	return &ProductService{store: store, now: model.Now}
}

// WithClock replaces the time source used for created_at and updated_at.
func (s *ProductService) WithClock(now func() time.Time) *ProductService {
	s.now = now
	return s
}

func (s *ProductService) Create(ctx context.Context, in model.ProductIn) (*model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Create")
	defer span.End()
	logger.Info(ctx, "Service")

	product := model.NewProduct(in, s.now())
	if err := s.store.InsertOne(ctx, product); err != nil {
		logger.Error(ctx, "Insert failed", slog.String("error", err.Error()))
		return nil, apperror.Insert(fmt.Sprintf("Error inserting product: %s", err), err)
	}
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Get")
	defer span.End()
	logger.Info(ctx, "Service")

	return s.findByID(ctx, id)
}

// Query lists products with price strictly inside the given bounds. Bounds are in
// the caller's unit and are divided by 1000 before being compared to stored prices.
// When both bounds are set and min >= max the result is empty and the store is not queried.
// The returned sequence is lazy and can be ranged over once. The store cursor is
// released when ranging ends, so callers must range over it (Collect does) even
// if they only need the first element. Iteration is traced as a child span of
// the Query span.
func (s *ProductService) Query(ctx context.Context, priceMin, priceMax *float64) (iter.Seq2[model.Product, error], error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Query")
	defer span.End()
	logger.Info(ctx, "Service")

	filter, ok := PriceFilter(priceMin, priceMax)
	if !ok {
		return emptySeq, nil
	}

	cursor, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return cursorSeq(ctx, cursor), nil
}

// Update merges the fields present in in into the stored product. updated_at is
// stamped with the current time unless the caller supplies it.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in model.ProductUpdate) (*model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Update")
	defer span.End()
	logger.Info(ctx, "Service")

	if _, err := s.findByID(ctx, id); err != nil {
		return nil, err
	}

	set := in.ToSet()
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = s.now()
	}

	updated, err := s.store.FindOneAndUpdate(ctx, idFilter(id), set)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && updated == nil) {
		logger.Warn(ctx, "Product disappeared before update", slog.String("id", id.String()))
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the product. It reports false when the existence check passed
// but the delete itself removed nothing.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Delete")
	defer span.End()
	logger.Info(ctx, "Service")

	if _, err := s.findByID(ctx, id); err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

func (s *ProductService) findByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.FindOne(ctx, idFilter(id))
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && product == nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// PriceFilter builds the store filter for a price range query. ok is false when
// both bounds are set and min >= max, meaning nothing can match.
func PriceFilter(priceMin, priceMax *float64) (filter bson.M, ok bool) {
	filter = bson.M{}
	if priceMin == nil && priceMax == nil {
		return filter, true
	}
	if priceMin != nil && priceMax != nil && *priceMin >= *priceMax {
		return nil, false
	}

	price := bson.M{}
	if priceMin != nil {
		price["$gt"] = *priceMin / priceScale
	}
	if priceMax != nil {
		price["$lt"] = *priceMax / priceScale
	}
	filter["price"] = price
	return filter, true
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[model.Product, error]) ([]model.Product, error) {
	products := []model.Product{}
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func cursorSeq(ctx context.Context, cursor Cursor) iter.Seq2[model.Product, error] {
	return func(yield func(model.Product, error) bool) {
		ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Query.Iterate")
		defer span.End()
		defer cursor.Close(context.WithoutCancel(ctx))

		count := 0
		defer func() { span.SetAttributes(attribute.Int("products.count", count)) }()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(model.Product{}, err)
		}

		for cursor.Next(ctx) {
			var product model.Product
			if err := cursor.Decode(&product); err != nil {
				fail(err)
				return
			}
			count++
			if !yield(product, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			fail(err)
		}
	}
}

func emptySeq(func(model.Product, error) bool) {}

func idFilter(id uuid.UUID) bson.M {
	return bson.M{"id": id}
}

func notFound(id uuid.UUID) error {
	return apperror.NotFound(fmt.Sprintf("Product not found with filter: %s", id))
}
