package auth

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	version int64
	expires time.Time
}

// CachedVersionStore wraps a VersionStore with a short-TTL in-memory
// cache of (userID, version). The TTL is an explicit staleness window: a
// revoke may go unobserved for at most ttl on nodes that do not call
// Invalidate. Lookup errors are never cached.
type CachedVersionStore struct {
	store VersionStore
	ttl   time.Duration

	mu      sync.Mutex
	entries map[int64]cacheEntry

	now func() time.Time
}

func NewCachedVersionStore(store VersionStore, ttl time.Duration) *CachedVersionStore {
	return &CachedVersionStore{
		store:   store,
		ttl:     ttl,
		entries: make(map[int64]cacheEntry),
		now:     time.Now,
	}
}

func (c *CachedVersionStore) CurrentTokenVersion(ctx context.Context, userID int64) (int64, error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && now.Before(e.expires) {
		c.mu.Unlock()
		return e.version, nil
	}
	c.mu.Unlock()

	version, err := c.store.CurrentTokenVersion(ctx, userID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[userID] = cacheEntry{version: version, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return version, nil
}

// Invalidate drops the cached version for a user. Called after a revoke
// commits so local checks observe the new version immediately.
func (c *CachedVersionStore) Invalidate(userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
