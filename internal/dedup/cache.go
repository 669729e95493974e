package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guards the webhook against provider redeliveries.
//
// MarkIfNew is a single atomic SET NX against the shared store, never a read
// followed by a write: two concurrent deliveries of the same message id must
// not both be accepted, including across server instances.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

const keyPrefix = "dedup:msg:"

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// MarkIfNew records the message id and reports whether this is the first
// sighting within the TTL window.
func (c *Cache) MarkIfNew(ctx context.Context, messageID string) (bool, error) {
	if c.rdb == nil {
		return false, errors.New("dedup: redis client is nil")
	}
	if messageID == "" {
		return false, errors.New("dedup: message id is required")
	}
	return c.rdb.SetNX(ctx, keyPrefix+messageID, "1", c.ttl).Result()
}
