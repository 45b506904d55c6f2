// Package cache provides a small Redis-backed cache for room availability
// counts. The client is constructed once and passed in; a nil client
// disables caching so the backend runs fine without Redis.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/config"
)

// NewRedisClient builds a Redis client from config. It returns nil when no
// address is configured or the server is unreachable; callers degrade
// gracefully by skipping the cache.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// AvailabilityCache caches AVAILABLE room counts per room type. All
// operations are best-effort: a cache failure is logged and treated as a
// miss, never surfaced to the caller.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewAvailabilityCache creates a new AvailabilityCache. client may be nil.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl, logger: logger}
}

func availabilityKey(roomTypeID uuid.UUID) string {
	return fmt.Sprintf("availability:%s", roomTypeID)
}

// GetCount returns the cached availability count for a room type.
func (c *AvailabilityCache) GetCount(ctx context.Context, roomTypeID uuid.UUID) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, availabilityKey(roomTypeID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("availability cache read failed")
		}
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

// SetCount stores the availability count for a room type.
func (c *AvailabilityCache) SetCount(ctx context.Context, roomTypeID uuid.UUID, count int) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, availabilityKey(roomTypeID), strconv.Itoa(count), c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("availability cache write failed")
	}
}

// Invalidate drops the cached counts for the given room types after an
// inventory mutation.
func (c *AvailabilityCache) Invalidate(ctx context.Context, roomTypeIDs ...uuid.UUID) {
	if c == nil || c.client == nil || len(roomTypeIDs) == 0 {
		return
	}
	keys := make([]string, len(roomTypeIDs))
	for i, id := range roomTypeIDs {
		keys[i] = availabilityKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Debug("availability cache invalidation failed")
	}
}
