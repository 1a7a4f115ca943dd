package repository

import (
	"context"
	"sync"
	"time"
)

const memorySweepInterval = time.Minute

// MemoryRepository is the process-local fallback for RedisRepository.
// Expired windows and cache entries are swept at most once per
// memorySweepInterval during writes.
type MemoryRepository struct {
	mu         sync.Mutex
	rateLimits map[string]*windowEntry
	cache      map[string]*cacheEntry
	now        func() time.Time
	lastSweep  time.Time
}

type windowEntry struct {
	count     int
	expiresAt time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rateLimits: make(map[string]*windowEntry),
		cache:      make(map[string]*cacheEntry),
		now:        time.Now,
	}
}

func (r *MemoryRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.maybeSweepLocked(now)
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &windowEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

func (r *MemoryRepository) GetCache(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.cache, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (r *MemoryRepository) SetCache(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.maybeSweepLocked(now)
	entry := &cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	r.cache[key] = entry
	return nil
}

func (r *MemoryRepository) DeleteCache(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, key)
	return nil
}

// Sweep removes expired rate-limit windows and cache entries and returns
// how many were dropped.
func (r *MemoryRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.lastSweep = now
	return r.sweepLocked(now)
}

func (r *MemoryRepository) maybeSweepLocked(now time.Time) {
	if now.Sub(r.lastSweep) < memorySweepInterval {
		return
	}
	r.lastSweep = now
	r.sweepLocked(now)
}

func (r *MemoryRepository) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range r.rateLimits {
		if now.After(e.expiresAt) {
			delete(r.rateLimits, k)
			removed++
		}
	}
	for k, e := range r.cache {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(r.cache, k)
			removed++
		}
	}
	return removed
}
