package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"strconv"       // Generation formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache is a JSON read-through cache over Redis. A Cache built from a nil
// client is disabled: reads miss and writes are dropped.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps a Redis client with a default TTL
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client is configured
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value in Redis with the default TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Delete removes keys from Redis
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// DeletePrefix removes every key starting with prefix. Paginated list keys
// are open-ended so they are swept with SCAN instead of enumerated.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	if !c.Enabled() {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.Delete(ctx, batch...)
}

// Key returns the cache key for name under namespace ns at the namespace's
// current generation. Read the key before loading the value from the
// database: a value computed before an Invalidate is then written under the
// old generation, where no reader looks for it.
func (c *Cache) Key(ctx context.Context, ns, name string) (string, error) {
	var gen int64
	if c.Enabled() {
		n, err := c.rdb.Get(ctx, ns+"gen").Int64()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return "", err
		default:
			gen = n
		}
	}
	return ns + "v" + strconv.FormatInt(gen, 10) + ":" + name, nil
}

// Invalidate bumps the generation of ns and drops the values cached under it
func (c *Cache) Invalidate(ctx context.Context, ns string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.rdb.Incr(ctx, ns+"gen").Err(); err != nil {
		return err
	}
	return c.DeletePrefix(ctx, ns+"v")
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Cache key namespaces
const (
	walletKeyPrefix = "wallet:"
	AdminKeyPrefix  = "admin:"
)

// WalletKeyPrefix returns the prefix under which all cached views of a wallet live
func WalletKeyPrefix(walletID string) string {
	return walletKeyPrefix + walletID + ":"
}
