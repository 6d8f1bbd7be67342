package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver wraps a ProfileResolver with TTL caching so authorization
// checks do not hit the database on every request.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	cache map[U]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// NewCachedResolver wraps inner with a cache; ttl bounds staleness.
func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		cache: make(map[U]*cacheEntry),
		ttl:   ttl,
	}
}

// Resolve returns the cached profile when fresh, otherwise re-fetches.
func (r *CachedResolver[U]) Resolve(ctx context.Context, subject U) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[subject]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[subject] = &cacheEntry{
		profile:   profile,
		expiresAt: time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return profile, nil
}

// Invalidate drops a subject from the cache. Call after a role change.
func (r *CachedResolver[U]) Invalidate(subject U) {
	r.mu.Lock()
	delete(r.cache, subject)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[U]*cacheEntry)
	r.mu.Unlock()
}
