package clickhouse

import (
	"context"
	"fmt"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/storage"
)

// ProfileStore implements storage.ProfileStore using ClickHouse.
type ProfileStore struct {
	conn *Conn
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(conn *Conn) *ProfileStore {
	return &ProfileStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, period).
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
func (s *ProfileStore) InsertBulk(ctx context.Context, points []*domain.ProfilePoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		runID  string
		period int
	}
	seen := make(map[key]struct{}, len(points))
	runs := make(map[string]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Period < 1 {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.Period}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[p.RunID] = struct{}{}
	}

	// Check for duplicates against existing DB rows, one query per run
	for runID := range runs {
		existing, err := s.periods(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, period := range existing {
			if _, dup := seen[key{runID, period}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trs_profiles (
			run_id, period, time_offset_years, expected_positive_exposure, mean_net_cash_flow
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, uint32(p.Period), p.TimeOffsetYears,
			p.ExpectedPositiveExposure, p.MeanNetCashFlow,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all points for a run, ordered by period ASC.
func (s *ProfileStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ProfilePoint, error) {
	query := `
		SELECT run_id, period, time_offset_years, expected_positive_exposure, mean_net_cash_flow
		FROM trs_profiles
		WHERE run_id = ?
		ORDER BY period ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

func (s *ProfileStore) periods(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.conn.Query(ctx, `SELECT period FROM trs_profiles WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var period uint32
		if err := rows.Scan(&period); err != nil {
			return nil, err
		}
		out = append(out, int(period))
	}
	return out, rows.Err()
}

// scanProfiles scans multiple rows.
func scanProfiles(rows chRows) ([]*domain.ProfilePoint, error) {
	var points []*domain.ProfilePoint

	for rows.Next() {
		var p domain.ProfilePoint
		var period uint32

		err := rows.Scan(
			&p.RunID, &period, &p.TimeOffsetYears,
			&p.ExpectedPositiveExposure, &p.MeanNetCashFlow,
		)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}

		p.Period = int(period)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}

	return points, nil
}
