package repository

import (
	"context"
	"sync"
	"time"
)

type codeEntry struct {
	hash      []byte
	expiresAt time.Time
}

// MemoryCodeStore keeps code hashes in a sync.Map with lazy expiry.
type MemoryCodeStore struct {
	codes sync.Map
	now   func() time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{now: time.Now}
}

func (r *MemoryCodeStore) SaveCode(ctx context.Context, target string, hash []byte, ttl time.Duration) error {
	entry := &codeEntry{hash: append([]byte(nil), hash...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.codes.Store(target, entry)
	return nil
}

func (r *MemoryCodeStore) GetCode(ctx context.Context, target string) ([]byte, error) {
	val, ok := r.codes.Load(target)
	if !ok {
		return nil, nil
	}
	entry := val.(*codeEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.codes.Delete(target)
		return nil, nil
	}
	return entry.hash, nil
}

func (r *MemoryCodeStore) DeleteCode(ctx context.Context, target string) error {
	r.codes.Delete(target)
	return nil
}
