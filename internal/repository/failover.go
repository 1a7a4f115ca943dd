package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"consultdesk/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRepository sends calls to the primary backend and switches to the
// fallback after the first primary error. The primary is retried once per
// recoveryInterval.
type FailoverRepository struct {
	primary  domain.CounterRepository
	fallback domain.CounterRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverRepository(primary, fallback domain.CounterRepository, logger *zerolog.Logger) *FailoverRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverRepository) markResult(err error) {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("Primary repository recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary repository failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.markResult(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverRepository) GetCache(ctx context.Context, key string) ([]byte, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.GetCache(ctx, key)
		r.markResult(err)
		if err == nil {
			return val, ok, nil
		}
	}
	return r.fallback.GetCache(ctx, key)
}

func (r *FailoverRepository) SetCache(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.SetCache(ctx, key, value, ttl)
		r.markResult(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetCache(ctx, key, value, ttl)
}

func (r *FailoverRepository) DeleteCache(ctx context.Context, key string) error {
	if r.usePrimary() {
		err := r.primary.DeleteCache(ctx, key)
		r.markResult(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.DeleteCache(ctx, key)
}
