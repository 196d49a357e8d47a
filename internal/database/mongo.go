package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"product-store/internal/config"
	"product-store/internal/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

var (
	instance *Mongo
	once     sync.Once
)

// Instance connects once per process. Empty uri or dbName fall back to the loaded config.
func Instance(globalCtx context.Context, uri, dbName string) (*Mongo, error) {
	var err error

	once.Do(func() {
		cfg := config.Instance()

		_uri := uri
		if _uri == "" {
			_uri = cfg.MongoURI
		}
		_dbName := dbName
		if _dbName == "" {
			_dbName = cfg.MongoDBName
		}

		instance, err = Connect(globalCtx, _uri, _dbName, time.Duration(cfg.MongoTimeoutMs)*time.Millisecond)
	})

	return instance, err
}

// Connect dials MongoDB with tracing and the UUID codec installed, then pings it.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration) (*Mongo, error) {
	log := logger.Instance()

	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(Registry()).
		SetMonitor(otelmongo.NewMonitor())
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Error("Failed to connect to MongoDB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	// Ping with timeout context
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		log.Error("MongoDB ping failed", slog.String("error", err.Error()))
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info("Connected to MongoDB successfully", slog.String("database", dbName))

	return &Mongo{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// Close disconnects the client, waiting at most until ctx is done.
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}
