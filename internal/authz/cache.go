package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "authz:version"

// Cache stores resolved effective permission sets in Redis. Entries are keyed
// by a global version counter; bumping the counter on any role or permission
// mutation invalidates every entry at once without scanning keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache with the given entry lifetime.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached object set for roleID together with the version it
// was read under, with ok=false on a miss. Callers resolving a miss must hand
// that same version back to Put.
func (c *Cache) Get(ctx context.Context, roleID int64) ([]string, int64, bool, error) {
	version, err := c.version(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	payload, err := c.client.Get(ctx, c.entryKey(version, roleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, false, nil
		}
		return nil, 0, false, err
	}
	var objects []string
	if err := json.Unmarshal(payload, &objects); err != nil {
		return nil, 0, false, err
	}
	return objects, version, true, nil
}

// Put stores the resolved object set for roleID under the version captured
// before resolution. A mutation that bumps the counter while the resolution
// is in flight orphans this write instead of letting it resurrect stale data.
func (c *Cache) Put(ctx context.Context, roleID, version int64, objects []string) error {
	if objects == nil {
		objects = []string{}
	}
	payload, err := json.Marshal(objects)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.entryKey(version, roleID), payload, c.ttl).Err()
}

// InvalidateAll discards every cached resolution.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return version, nil
}

func (c *Cache) entryKey(version, roleID int64) string {
	return fmt.Sprintf("authz:v%d:role:%d", version, roleID)
}
