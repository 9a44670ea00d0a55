//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const rabbitMQImage = "rabbitmq:3.13-alpine"

// StartRabbitMQ runs a RabbitMQ broker and returns its AMQP URL.
func StartRabbitMQ(ctx context.Context, t *testing.T) string {
	t.Helper()
	skipWithoutDocker(ctx, t)

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        rabbitMQImage,
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "guest",
				"RABBITMQ_DEFAULT_PASS": "guest",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Server startup complete"),
				wait.ForListeningPort("5672/tcp"),
			).WithStartupTimeoutDefault(defaultStartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	terminateOnCleanup(t, "RabbitMQ", c)

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to resolve RabbitMQ host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("failed to resolve RabbitMQ port: %v", err)
	}
	port := mapped.Int()
	t.Logf("RabbitMQ container started at %s:%d", host, port)

	return fmt.Sprintf("amqp://guest:guest@%s:%d/", host, port)
}
