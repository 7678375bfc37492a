package storage

import (
	"context"

	"trs-pricer/internal/domain"
)

// RunStore provides access to trs_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.RunRecord, error)

	// List retrieves the most recent runs, ordered by created_at DESC.
	// limit <= 0 returns all runs.
	List(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

// ProfileStore provides access to trs_profiles storage.
type ProfileStore interface {
	// InsertBulk adds multiple points atomically. Fails entire batch on duplicate (run_id, period).
	InsertBulk(ctx context.Context, points []*domain.ProfilePoint) error

	// GetByRunID retrieves all points for a run, ordered by period ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ProfilePoint, error)
}
