package shared

import (
	"context"
	"time"
)

// IdempotencyStore holds short-lived claims on keys such as
// "finance:daily:<tenant>:<date>". The first MarkProcessed for a key wins
// until its TTL lapses, across every replica that shares the store.
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (claimed bool, err error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
