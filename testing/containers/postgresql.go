//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gaborage/go-tables/config"
)

const (
	postgresImage    = "postgres:17-alpine"
	postgresUser     = "tables"
	postgresPassword = "tables"
	postgresDatabase = "tables"
)

// StartPostgreSQL runs a PostgreSQL server and returns a connection config
// pointing at it.
func StartPostgreSQL(ctx context.Context, t *testing.T) *config.ConnectionConfig {
	t.Helper()
	skipWithoutDocker(ctx, t)

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresUser,
				"POSTGRES_PASSWORD": postgresPassword,
				"POSTGRES_DB":       postgresDatabase,
			},
			// Postgres restarts once after the init scripts.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(defaultStartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}
	terminateOnCleanup(t, "PostgreSQL", c)

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to resolve PostgreSQL host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to resolve PostgreSQL port: %v", err)
	}
	port := mapped.Int()
	t.Logf("PostgreSQL container started at %s:%d", host, port)

	return &config.ConnectionConfig{
		Driver:   config.PostgreSQL,
		Host:     host,
		Port:     port,
		Username: postgresUser,
		Password: postgresPassword,
		Database: postgresDatabase,
	}
}
