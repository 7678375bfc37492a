package memory

import (
	"context"
	"sort"
	"sync"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/storage"
)

type profileKey struct {
	runID  string
	period int
}

// ProfileStore is an in-memory implementation of storage.ProfileStore.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[profileKey]*domain.ProfilePoint
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		data: make(map[profileKey]*domain.ProfilePoint),
	}
}

// InsertBulk adds multiple points atomically. Fails entire batch on any duplicate.
func (s *ProfileStore) InsertBulk(_ context.Context, points []*domain.ProfilePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[profileKey]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Period < 1 {
			return storage.ErrInvalidInput
		}
		key := profileKey{runID: p.RunID, period: p.Period}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[profileKey{runID: p.RunID, period: p.Period}] = &pointCopy
	}
	return nil
}

// GetByRunID retrieves all points for a run, ordered by period ASC.
func (s *ProfileStore) GetByRunID(_ context.Context, runID string) ([]*domain.ProfilePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProfilePoint
	for key, p := range s.data {
		if key.runID == runID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Period < result[j].Period
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ProfileStore = (*ProfileStore)(nil)
