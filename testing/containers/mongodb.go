//go:build integration

package containers

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gaborage/go-tables/config"
)

const mongoImage = "mongo:8.0"

// StartMongoDB runs a MongoDB server and returns a diagnostics export config
// whose URI reaches it. The database name is derived from the test name.
func StartMongoDB(ctx context.Context, t *testing.T) *config.MongoConfig {
	t.Helper()
	skipWithoutDocker(ctx, t)

	c, err := mongodb.Run(ctx, mongoImage,
		mongodb.WithUsername("tables"),
		mongodb.WithPassword("tables"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").WithStartupTimeout(defaultStartupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("failed to start MongoDB container: %v", err)
	}
	terminateOnCleanup(t, "MongoDB", c)

	uri, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get MongoDB connection string: %v", err)
	}
	t.Logf("MongoDB container started at %s", redactURI(uri))

	return &config.MongoConfig{
		URI:        uri,
		Database:   "tables_it",
		Collection: "statements",
		Timeout:    10 * time.Second,
	}
}

// redactURI masks the password of a connection URI for logging.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<redacted>"
	}
	return u.Redacted()
}
