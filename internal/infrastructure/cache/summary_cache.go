package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const summaryKeyPrefix = "finance:summary:"

// RedisSummaryCache stores title summaries as JSON in Redis
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSummaryCache creates a summary cache over a shared client. The
// caller keeps ownership of the client.
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSummaryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSummaryCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached summary or nil on a miss
func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*finance.TitleSummary, error) {
	data, err := c.client.Get(ctx, summaryKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary from cache: %w", err)
	}

	var summary finance.TitleSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Warn("Dropping corrupted summary cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, summaryKeyPrefix+key)
		return nil, nil
	}
	return &summary, nil
}

// Set stores summary under key with the configured TTL
func (c *RedisSummaryCache) Set(ctx context.Context, key string, summary *finance.TitleSummary) error {
	if summary == nil {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary in cache: %w", err)
	}
	return nil
}

// DeletePrefix drops every summary whose key starts with prefix
func (c *RedisSummaryCache) DeletePrefix(ctx context.Context, prefix string) error {
	deleted, err := deleteByPattern(ctx, c.client, summaryKeyPrefix+escapePattern(prefix)+"*")
	if err != nil {
		return err
	}
	c.logger.Debug("Invalidated summaries", zap.String("prefix", prefix), zap.Int64("deleted", deleted))
	return nil
}

// escapePattern quotes the glob metacharacters of a SCAN MATCH pattern
func escapePattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}

// InMemorySummaryCache is a process-local summary cache for single-instance
// deployments and tests.
type InMemorySummaryCache struct {
	mu      sync.RWMutex
	entries map[string]summaryEntry
	ttl     time.Duration
	now     func() time.Time
}

type summaryEntry struct {
	summary   finance.TitleSummary
	expiresAt time.Time
}

// NewInMemorySummaryCache creates an empty cache; ttl <= 0 never expires
func NewInMemorySummaryCache(ttl time.Duration) *InMemorySummaryCache {
	return &InMemorySummaryCache{
		entries: make(map[string]summaryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached summary or nil on a miss
func (c *InMemorySummaryCache) Get(_ context.Context, key string) (*finance.TitleSummary, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && c.now().After(e.expiresAt)) {
		return nil, nil
	}
	summary := e.summary
	return &summary, nil
}

// Set stores a copy of summary
func (c *InMemorySummaryCache) Set(_ context.Context, key string, summary *finance.TitleSummary) error {
	if summary == nil {
		return nil
	}
	e := summaryEntry{summary: *summary}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// DeletePrefix drops every entry whose key starts with prefix, along with
// anything already expired.
func (c *InMemorySummaryCache) DeletePrefix(_ context.Context, prefix string) error {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) || (!e.expiresAt.IsZero() && now.After(e.expiresAt)) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len returns the number of stored entries
func (c *InMemorySummaryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var (
	_ appfinance.SummaryCache = (*RedisSummaryCache)(nil)
	_ appfinance.SummaryCache = (*InMemorySummaryCache)(nil)
)
