package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary(total int64) *finance.TitleSummary {
	return &finance.TitleSummary{
		Pending:   decimal.NewFromInt(total),
		Total:     decimal.NewFromInt(total),
		TotalOpen: decimal.NewFromInt(total),
	}
}

func TestInMemorySummaryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemorySummaryCache(time.Minute)

	got, err := cache.Get(ctx, "t1:receivable:2026-03")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, "t1:receivable:2026-03", sampleSummary(10)))
	require.NoError(t, cache.Set(ctx, "t1:receivable:2026-04", sampleSummary(20)))
	require.NoError(t, cache.Set(ctx, "t1:payable:2026-03", sampleSummary(30)))

	got, err = cache.Get(ctx, "t1:receivable:2026-03")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalOpen.Equal(decimal.NewFromInt(10)))

	got.TotalOpen = decimal.NewFromInt(999)
	again, _ := cache.Get(ctx, "t1:receivable:2026-03")
	assert.True(t, again.TotalOpen.Equal(decimal.NewFromInt(10)), "callers get copies")

	require.NoError(t, cache.DeletePrefix(ctx, "t1:receivable:"))
	assert.Equal(t, 1, cache.Len())
	got, _ = cache.Get(ctx, "t1:payable:2026-03")
	assert.NotNil(t, got)
}

func TestInMemorySummaryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewInMemorySummaryCache(5 * time.Minute)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", sampleSummary(1)))

	now = now.Add(4 * time.Minute)
	got, _ := cache.Get(ctx, "k")
	assert.NotNil(t, got)

	now = now.Add(2 * time.Minute)
	got, _ = cache.Get(ctx, "k")
	assert.Nil(t, got)

	require.NoError(t, cache.DeletePrefix(ctx, "other"))
	assert.Zero(t, cache.Len(), "expired entries are swept on invalidation")
}

func TestEscapePattern(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapePattern("a*b?c[d]"))
	assert.Equal(t, "tenant:receivable:", escapePattern("tenant:receivable:"))
}
