package service

import (
	"context"

	"product-store/internal/model"

	"go.mongodb.org/mongo-driver/bson"
)

// DocumentStore is the collection-scoped store the product service runs against.
// Single-document lookups report absence with mongo.ErrNoDocuments.
type DocumentStore interface {
	InsertOne(ctx context.Context, product *model.Product) error
	FindOne(ctx context.Context, filter bson.M) (*model.Product, error)
	// FindOneAndUpdate applies set atomically and returns the document after the update.
	FindOneAndUpdate(ctx context.Context, filter bson.M, set bson.M) (*model.Product, error)
	Find(ctx context.Context, filter bson.M) (Cursor, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
}

// Cursor is the part of *mongo.Cursor the service consumes.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}
