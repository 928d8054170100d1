//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zuri-dev/zpk/cache"
	"github.com/zuri-dev/zpk/fetch"
	"github.com/zuri-dev/zpk/registry"
)

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container
// on first use.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}
	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor: wait.ForHTTP("/v2/").
			WithPort("5000/tcp").
			WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

// testRepo returns a repository reference unique to the test.
func testRepo(addr, name string) string {
	return fmt.Sprintf("%s/zpk-test/%s-%d", addr, strings.ToLower(name), time.Now().UnixNano())
}

func newClient(tb testing.TB) *registry.Client {
	tb.Helper()
	return registry.New(registry.WithPlainHTTP(true), registry.WithAnonymous())
}

func newFetcher(tb testing.TB) *fetch.Fetcher {
	tb.Helper()
	f := fetch.New(fetch.WithDownloadRoot(tb.TempDir()), fetch.WithPollInterval(10*time.Millisecond))
	require.NoError(tb, f.Configure())
	return f
}

func newCache(tb testing.TB) *cache.Cache {
	tb.Helper()
	c, err := cache.OpenOrCreate(filepath.Join(tb.TempDir(), "cache"))
	require.NoError(tb, err)
	tb.Cleanup(func() { c.Close() })
	return c
}
