// Package cache implements the short-lived read-through cache used for list
// responses. Values are JSON documents stamped with the time they were
// stored; entries older than the TTL are treated as absent.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// DefaultTTL bounds how old a cached list may be before it is ignored.
const DefaultTTL = 5 * time.Minute

// Store is the key-value capability the cache persists into.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Value    json.RawMessage `json:"value"`
}

// Cache stamps values with their storage time and honours a TTL on read.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New wraps store. A non-positive ttl selects DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// Load decodes the entry for key into dst. It reports false when the entry
// is missing, expired or unreadable.
func (c *Cache) Load(key string, dst any) (bool, error) {
	raw, ok, err := c.store.Get(key)
	if err != nil || !ok {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if c.now().Sub(env.StoredAt) > c.ttl {
		return false, nil
	}
	if err := json.Unmarshal(env.Value, dst); err != nil {
		return false, fmt.Errorf("decode cached value %s: %w", key, err)
	}
	return true, nil
}

// Save stores v under key, stamped with the current time.
func (c *Cache) Save(key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cached value %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{StoredAt: c.now().UTC(), Value: value})
	if err != nil {
		return err
	}
	return c.store.Set(key, raw)
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) error {
	return c.store.Delete(key)
}

// Fetch returns the cached value for key when it is fresh and otherwise
// calls fetch, storing its result. A nil cache always fetches.
func Fetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c != nil {
		var cached T
		ok, err := c.Load(key, &cached)
		if err != nil {
			log.Printf("[cache] read %s failed: %v", key, err)
		}
		if ok {
			return cached, nil
		}
	}
	return fetchAndStore(ctx, c, key, fetch)
}

// Revalidate implements stale-while-revalidate: a fresh cached value is
// passed to emit first, then fetch runs and its result is stored and emitted.
// The fetched value is returned. emit may be nil.
func Revalidate[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error), emit func(T)) (T, error) {
	if c != nil && emit != nil {
		var cached T
		ok, err := c.Load(key, &cached)
		if err != nil {
			log.Printf("[cache] read %s failed: %v", key, err)
		}
		if ok {
			emit(cached)
		}
	}

	fresh, err := fetchAndStore(ctx, c, key, fetch)
	if err != nil {
		return fresh, err
	}
	if emit != nil {
		emit(fresh)
	}
	return fresh, nil
}

func fetchAndStore[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	fresh, err := fetch(ctx)
	if err != nil {
		return fresh, err
	}
	if c != nil {
		if err := c.Save(key, fresh); err != nil {
			log.Printf("[cache] write %s failed: %v", key, err)
		}
	}
	return fresh, nil
}
