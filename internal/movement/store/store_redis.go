package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wastetrack/internal/movement/models"
)

// RedisBulkCache remembers bulk ids whose batches have already committed. It
// is a non-authoritative fast path for the idempotency pre-check: a hit lets
// the service skip issuing fresh tracking ids for a replayed batch, a miss
// proves nothing. The authoritative check always runs inside the transaction.
type RedisBulkCache struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultBulkCacheTTL covers the window in which batch replays realistically
// arrive; after expiry the authoritative check still catches duplicates.
const DefaultBulkCacheTTL = 24 * time.Hour

func NewRedisBulkCache(client *redis.Client, ttl time.Duration) *RedisBulkCache {
	if ttl <= 0 {
		ttl = DefaultBulkCacheTTL
	}
	return &RedisBulkCache{client: client, ttl: ttl}
}

func bulkKey(bulkID string, generation models.BulkRevision) string {
	suffix := "created"
	if generation == models.BulkUpdated {
		suffix = "updated"
	}
	return fmt.Sprintf("wastetrack:bulk:%s:%s", bulkID, suffix)
}

// Seen reports whether the batch was recently committed. Errors degrade to a
// miss so Redis outages never block the store.
func (c *RedisBulkCache) Seen(ctx context.Context, bulkID string, generation models.BulkRevision) bool {
	n, err := c.client.Exists(ctx, bulkKey(bulkID, generation)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MarkSeen records a committed batch. Best-effort; the error is returned for
// logging but callers must not fail on it.
func (c *RedisBulkCache) MarkSeen(ctx context.Context, bulkID string, generation models.BulkRevision) error {
	if err := c.client.Set(ctx, bulkKey(bulkID, generation), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("mark bulk seen: %w", err)
	}
	return nil
}
