package scheduler

import (
	"context"
	"sync"
	"time"
)

// LocalKeyRegistry is the in-process KeyRegistry used when no shared store
// is configured.
type LocalKeyRegistry struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewLocalKeyRegistry() *LocalKeyRegistry {
	return &LocalKeyRegistry{
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (r *LocalKeyRegistry) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if expiresAt, ok := r.keys[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	r.keys[key] = now.Add(ttl)
	return true, nil
}

func (r *LocalKeyRegistry) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
	return nil
}
