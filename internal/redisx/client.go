package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Cache is the optional fast path in front of the store. A Cache built
// with a nil client misses on every read and ignores every write, so
// callers never branch on whether redis is configured. The store stays the
// source of truth.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// OrderStatus returns the cached order snapshot.
func (c *Cache) OrderStatus(ctx context.Context, orderID string) ([]byte, bool) {
	return c.get(ctx, fmt.Sprintf(KeyOrderStatus, orderID))
}

func (c *Cache) SetOrderStatus(ctx context.Context, orderID string, body []byte) error {
	return c.set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), body, TTLStatusCache)
}

func (c *Cache) InvalidateOrder(ctx context.Context, orderID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// ClaimState is the outcome of claiming an idempotency key.
type ClaimState int

const (
	// ClaimAcquired: the caller owns the key and must Complete or Release it.
	ClaimAcquired ClaimState = iota
	// ClaimPending: another request holds the key and has not finished.
	ClaimPending
	// ClaimDone: a previous request finished; its response is returned.
	ClaimDone
)

// pendingMarker is never a valid response body: bodies are JSON documents.
const pendingMarker = "\x00pending"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Claim atomically reserves key for the caller with a pending marker. A
// disabled cache always grants the claim.
func (c *Cache) Claim(ctx context.Context, key string) ([]byte, ClaimState, error) {
	if !c.Enabled() {
		return nil, ClaimAcquired, nil
	}
	ok, err := c.rdb.SetNX(ctx, key, pendingMarker, TTLIdempotencyPending).Result()
	if err != nil {
		return nil, ClaimAcquired, err
	}
	if ok {
		return nil, ClaimAcquired, nil
	}
	body, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// expired or released between the two calls
		return c.Claim(ctx, key)
	case err != nil:
		return nil, ClaimAcquired, err
	case string(body) == pendingMarker:
		return nil, ClaimPending, nil
	}
	return body, ClaimDone, nil
}

// Complete replaces the pending marker with the final response.
func (c *Cache) Complete(ctx context.Context, key string, body []byte) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Set(ctx, key, body, TTLIdempotency).Err()
}

// Release drops a claim that is still pending so the request can be retried.
// A completed response is left alone.
func (c *Cache) Release(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return releaseScript.Run(ctx, c.rdb, []string{key}, pendingMarker).Err()
}

// Seen reports whether service already processed id.
func (c *Cache) Seen(ctx context.Context, service, id string) bool {
	_, ok := c.get(ctx, fmt.Sprintf(KeyDedup, service, id))
	return ok
}

func (c *Cache) MarkSeen(ctx context.Context, service, id string) error {
	return c.set(ctx, fmt.Sprintf(KeyDedup, service, id), []byte("1"), TTLDedup)
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *Cache) set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Set(ctx, key, body, ttl).Err()
}
