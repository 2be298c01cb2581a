package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/matchday/internal/platform/resilience"
)

var errNilLoader = errors.New("cache loader is required")

type entry struct {
	value    any
	deadline time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !e.deadline.After(now)
}

// Store is an in-process cache with per-entry lifetimes and singleflight
// loading. A zero default TTL keeps entries until they are replaced or
// deleted.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	flight     resilience.SingleFlight
}

func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		s.evict(key, e.deadline)
		return nil, false
	}
	return e.value, true
}

// evict removes key only while its deadline is unchanged, so an entry
// replaced between the read and the delete survives.
func (s *Store) evict(key string, deadline time.Time) {
	s.mu.Lock()
	if current, ok := s.entries[key]; ok && current.deadline.Equal(deadline) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

func (s *Store) Set(ctx context.Context, key string, value any) {
	s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value with its own lifetime. A non-positive ttl
// falls back to the store default.
func (s *Store) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{value: value, deadline: deadline}
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	return s.GetOrLoadWithTTL(ctx, key, 0, loader)
}

// GetOrLoadWithTTL returns the cached value for key, or runs loader to
// fill it. Concurrent loads of the same key collapse into one loader
// call; a load error reaches every caller and nothing is cached.
func (s *Store) GetOrLoadWithTTL(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, errNilLoader
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		// The previous flight may have filled the entry while this call
		// waited its turn.
		if value, ok := s.Get(ctx, key); ok {
			return value, nil
		}

		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.SetWithTTL(ctx, key, value, ttl)
		return value, nil
	})
	return value, err
}
