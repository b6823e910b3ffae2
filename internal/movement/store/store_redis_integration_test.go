//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/store"
	"wastetrack/pkg/testutil/containers"
)

type RedisBulkCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *store.RedisBulkCache
}

func TestRedisBulkCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBulkCacheSuite))
}

func (s *RedisBulkCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = store.NewRedisBulkCache(s.redis.Client, time.Minute)
}

func (s *RedisBulkCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBulkCacheSuite) TestSeenAndMarkSeen() {
	ctx := context.Background()

	s.False(s.cache.Seen(ctx, "bulk-1", models.BulkInitial))

	s.Require().NoError(s.cache.MarkSeen(ctx, "bulk-1", models.BulkInitial))
	s.True(s.cache.Seen(ctx, "bulk-1", models.BulkInitial))

	// Generations are tracked independently.
	s.False(s.cache.Seen(ctx, "bulk-1", models.BulkUpdated))
	s.Require().NoError(s.cache.MarkSeen(ctx, "bulk-1", models.BulkUpdated))
	s.True(s.cache.Seen(ctx, "bulk-1", models.BulkUpdated))

	s.False(s.cache.Seen(ctx, "bulk-2", models.BulkInitial))
}
