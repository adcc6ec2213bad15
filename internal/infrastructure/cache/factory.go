package cache

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends bundles the cache-backed stores used by the finance services
type Backends struct {
	Summary     appfinance.SummaryCache
	Idempotency shared.IdempotencyStore
	// Redis is nil when the in-memory stores are in use
	Redis *redis.Client
}

// Close releases the idempotency store and the Redis client
func (b *Backends) Close() error {
	if err := b.Idempotency.Close(); err != nil {
		return err
	}
	if b.Redis != nil {
		return b.Redis.Close()
	}
	return nil
}

// Factory creates cache backends based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	summaryTTL            time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, summaryTTL time.Duration, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		summaryTTL:            summaryTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds Redis-backed stores when Redis is enabled and reachable,
// otherwise in-memory ones.
func (f *Factory) Create(ctx context.Context) (*Backends, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory summary cache and job guard")
		return f.inMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Summaries are cached per instance and the daily job may run on every instance.",
			zap.Error(err))
		return f.inMemory(), nil
	}

	f.logger.Info("Using Redis summary cache and job guard", zap.String("addr", f.redisConfig.Addr()))
	return &Backends{
		Summary:     NewRedisSummaryCache(client, f.summaryTTL, f.logger),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Redis:       client,
	}, nil
}

func (f *Factory) inMemory() *Backends {
	return &Backends{
		Summary:     NewInMemorySummaryCache(f.summaryTTL),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}
