package memory

import (
	"context"
	"sort"
	"sync"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunRecord // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunRecord),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[r.RunID] = cloneRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC.
func (s *RunStore) GetByTicker(_ context.Context, ticker string) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunRecord
	for _, r := range s.data {
		if r.Params.Ticker == ticker {
			result = append(result, cloneRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return lessByCreated(result[i], result[j])
	})
	return result, nil
}

// List retrieves the most recent runs, ordered by created_at DESC.
func (s *RunStore) List(_ context.Context, limit int) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneRun(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return lessByCreated(result[j], result[i])
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// lessByCreated orders by created_at, then run_id for a stable order.
func lessByCreated(a, b *domain.RunRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.RunID < b.RunID
}

func cloneRun(r *domain.RunRecord) *domain.RunRecord {
	c := *r
	if r.Params.Seed != nil {
		seed := *r.Params.Seed
		c.Params.Seed = &seed
	}
	if r.Summary.MeanNetCashFlowByPeriod != nil {
		c.Summary.MeanNetCashFlowByPeriod = append([]float64(nil), r.Summary.MeanNetCashFlowByPeriod...)
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.RunStore = (*RunStore)(nil)
