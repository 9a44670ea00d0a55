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
	mysqlImage    = "mysql:8.4"
	mysqlUser     = "tables"
	mysqlPassword = "tables"
	mysqlDatabase = "tables"
)

// StartMySQL runs a MySQL server and returns a connection config pointing at it.
// The test is skipped when Docker is unavailable and the container is terminated
// when the test ends.
func StartMySQL(ctx context.Context, t *testing.T) *config.ConnectionConfig {
	t.Helper()
	skipWithoutDocker(ctx, t)

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mysqlImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": mysqlPassword,
				"MYSQL_USER":          mysqlUser,
				"MYSQL_PASSWORD":      mysqlPassword,
				"MYSQL_DATABASE":      mysqlDatabase,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("port: 3306  MySQL Community Server"),
				wait.ForListeningPort("3306/tcp"),
			).WithStartupTimeoutDefault(defaultStartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start MySQL container: %v", err)
	}
	terminateOnCleanup(t, "MySQL", c)

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to resolve MySQL host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("failed to resolve MySQL port: %v", err)
	}
	port := mapped.Int()
	t.Logf("MySQL container started at %s:%d", host, port)

	return &config.ConnectionConfig{
		Driver:   config.MySQL,
		Host:     host,
		Port:     port,
		Username: mysqlUser,
		Password: mysqlPassword,
		Database: mysqlDatabase,
	}
}
