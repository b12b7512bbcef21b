package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"propdesk/internal/domain"

	"github.com/rs/zerolog"
)

const failoverRecheck = time.Minute

// FailoverCodeStore uses primary until it errors, then serves from
// fallback and retries primary once per minute.
type FailoverCodeStore struct {
	primary  domain.CodeStore
	fallback domain.CodeStore
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverCodeStore(primary, fallback domain.CodeStore, logger *zerolog.Logger) *FailoverCodeStore {
	return &FailoverCodeStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCodeStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary code store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether primary should be tried for this call.
func (r *FailoverCodeStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > failoverRecheck {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverCodeStore) SaveCode(ctx context.Context, target string, hash []byte, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.SaveCode(ctx, target, hash, ttl)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveCode(ctx, target, hash, ttl)
}

// GetCode consults fallback too when primary has nothing, since codes
// saved during an outage live only there.
func (r *FailoverCodeStore) GetCode(ctx context.Context, target string) ([]byte, error) {
	if r.usePrimary() {
		hash, err := r.primary.GetCode(ctx, target)
		if err == nil {
			r.isDown.Store(false)
			if hash != nil {
				return hash, nil
			}
		} else {
			r.markDown(err)
		}
	}
	return r.fallback.GetCode(ctx, target)
}

func (r *FailoverCodeStore) DeleteCode(ctx context.Context, target string) error {
	if r.usePrimary() {
		if err := r.primary.DeleteCode(ctx, target); err != nil {
			r.markDown(err)
		} else {
			r.isDown.Store(false)
		}
	}
	return r.fallback.DeleteCode(ctx, target)
}

var (
	_ domain.CodeStore = (*MemoryCodeStore)(nil)
	_ domain.CodeStore = (*RedisCodeStore)(nil)
	_ domain.CodeStore = (*FailoverCodeStore)(nil)
)
