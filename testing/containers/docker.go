//go:build integration

// Package containers starts throwaway database and broker containers for
// integration tests and hands back the go-tables configuration that reaches them.
package containers

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

const defaultStartupTimeout = 90 * time.Second

// isDockerAvailable reports whether the Docker daemon is reachable through the
// testcontainers Docker provider.
func isDockerAvailable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

func skipWithoutDocker(ctx context.Context, t *testing.T) {
	t.Helper()
	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
	}
}

// terminateOnCleanup registers termination of c with t.
func terminateOnCleanup(t *testing.T, name string, c testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s container: %v", name, err)
		}
	})
}
