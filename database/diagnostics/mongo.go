package diagnostics

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/gaborage/go-tables/config"
)

const (
	defaultMongoTimeout    = 5 * time.Second
	defaultMongoDatabase   = "go_tables"
	defaultMongoCollection = "statements"
)

type documentInserter interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
}

var (
	connectMongo = func(opts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(opts)
	}
	pingMongo = func(ctx context.Context, client *mongo.Client) error {
		return client.Ping(ctx, readpref.Primary())
	}
)

// MongoSink exports diagnostics entries to a MongoDB collection, one document per
// statement keyed by the entry id.
type MongoSink struct {
	client  *mongo.Client
	coll    documentInserter
	timeout time.Duration
}

// NewMongoSink connects to cfg.URI and verifies the server is reachable.
// An empty URI yields a not-configured error.
func NewMongoSink(ctx context.Context, cfg *config.MongoConfig) (*MongoSink, error) {
	if cfg == nil || cfg.URI == "" {
		return nil, config.NewNotConfiguredError("diagnostics export", "diagnostics.mongo.uri")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}
	collName := cfg.Collection
	if collName == "" {
		collName = defaultMongoCollection
	}

	client, err := connectMongo(options.Client().ApplyURI(cfg.URI).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pingMongo(pingCtx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoSink{
		client:  client,
		coll:    client.Database(dbName).Collection(collName),
		timeout: timeout,
	}, nil
}

// Write inserts e.
func (s *MongoSink) Write(ctx context.Context, e Entry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert diagnostics entry %s: %w", e.ID, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
