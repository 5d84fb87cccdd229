package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps overrides in process memory. It is the store when
// FLAGS_FROM_DATABASE is off, so overrides last until the process restarts.
type InMemoryRepository struct {
	mu        sync.RWMutex
	overrides map[string]Flag
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{overrides: make(map[string]Flag)}
}

// NewInMemoryRepositoryWithFlags creates a repository seeded with overrides.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	repo := NewInMemoryRepository()
	for key, f := range flags {
		repo.overrides[key] = *f
	}
	return repo
}

func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	f, ok := r.overrides[key]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrFlagNotFound
	}
	return &f, nil
}

func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.overrides))
	for key, f := range r.overrides {
		out[key] = &f
	}
	return out, nil
}

func (r *InMemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range flags {
		stored := *f
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = now
		}
		r.overrides[f.Key] = stored
	}
	return nil
}

func (r *InMemoryRepository) DeleteFlag(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.overrides[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.overrides, key)
	return nil
}
