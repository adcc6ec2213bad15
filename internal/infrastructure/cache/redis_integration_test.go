//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisBackends(t *testing.T) *Backends {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	cfg := config.RedisConfig{Enabled: true, Host: host, Port: port.Int()}
	backends, err := NewFactory(cfg, time.Minute, WithInMemoryFallback(false)).Create(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backends.Close() })
	return backends
}

func TestRedisSummaryCache(t *testing.T) {
	ctx := context.Background()
	backends := newRedisBackends(t)
	cache := backends.Summary

	require.NoError(t, cache.Set(ctx, "t1:receivable:2026-03", sampleSummary(10)))
	require.NoError(t, cache.Set(ctx, "t1:receivable:2026-04", sampleSummary(20)))
	require.NoError(t, cache.Set(ctx, "t1:payable:2026-03", sampleSummary(30)))

	got, err := cache.Get(ctx, "t1:receivable:2026-04")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "20", got.TotalOpen.String())

	require.NoError(t, cache.DeletePrefix(ctx, "t1:receivable:"))

	got, err = cache.Get(ctx, "t1:receivable:2026-03")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = cache.Get(ctx, "t1:payable:2026-03")
	require.NoError(t, err)
	assert.NotNil(t, got)

	ttl, err := backends.Redis.TTL(ctx, summaryKeyPrefix+"t1:payable:2026-03").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := newRedisBackends(t).Idempotency

	ok, err := store.MarkProcessed(ctx, "finance-daily:2026-03-01", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(ctx, "finance-daily:2026-03-01", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	processed, err := store.IsProcessed(ctx, "finance-daily:2026-03-01")
	require.NoError(t, err)
	assert.True(t, processed)
}
