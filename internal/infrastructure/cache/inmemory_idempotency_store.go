package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
)

// InMemoryIdempotencyStore implements IdempotencyStore with a map of claim expiries.
// Claims are only visible inside one process, which is enough for a single
// instance and for tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	claims    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store that purges expired claims every cleanupEvery.
// A zero cleanupEvery disables the background purge.
func NewInMemoryIdempotencyStore(cleanupEvery time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		claims:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if cleanupEvery > 0 {
		store.wg.Add(1)
		go store.cleanupLoop(cleanupEvery)
	}
	return store
}

// MarkProcessed claims key for ttl unless a live claim exists
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.claims[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key holds a live claim
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.claims[key]
	return ok && s.now().Before(expiresAt), nil
}

// Release drops the claim on key
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiresAt := range s.claims {
		if !now.Before(expiresAt) {
			delete(s.claims, key)
		}
	}
}

// Size returns the number of stored claims, expired ones included until purged
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
