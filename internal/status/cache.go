package status

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryKey = "status:summary"

// Cache keeps the ledger summary in Redis so the bridge can poll it cheaply.
// A nil cache (or nil client) degrades to loading straight from the store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Fetch loads the cached summary or populates it using the loader.
func (c *Cache) Fetch(ctx context.Context, loader func(context.Context) (Summary, error)) (Summary, error) {
	if loader == nil {
		return Summary{}, errors.New("status: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	raw, err := c.client.Get(ctx, summaryKey).Bytes()
	if err == nil {
		var cached Summary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry; fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return Summary{}, err
	}

	summary, err := loader(ctx)
	if err != nil {
		return Summary{}, err
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, err
	}
	if err := c.client.Set(ctx, summaryKey, encoded, c.ttl).Err(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Invalidate drops the cached summary, typically after a live sync or import.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryKey).Err()
}
