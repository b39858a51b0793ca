package store

import (
	"context"
	"sync"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/port"
)

// MemorySeedStore keeps seeds for the lifetime of the process. Used when
// state.database is empty and in tests.
type MemorySeedStore struct {
	mu      sync.Mutex
	seeds   map[string]domain.Seed
	loadErr error
}

var _ port.SeedStore = (*MemorySeedStore)(nil)

func NewMemorySeedStore() *MemorySeedStore {
	return &MemorySeedStore{seeds: map[string]domain.Seed{}}
}

func (s *MemorySeedStore) Load(_ context.Context, uniqueId string) (domain.Seed, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return domain.Seed{}, false, s.loadErr
	}
	seed, ok := s.seeds[uniqueId]
	return seed, ok, nil
}

func (s *MemorySeedStore) Save(_ context.Context, uniqueId string, seed domain.Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds[uniqueId] = seed
	return nil
}

// SetLoadError makes every following Load fail with err, nil clears it.
func (s *MemorySeedStore) SetLoadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}
