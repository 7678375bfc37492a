package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, input_hash, execution_id, created_at,
	ticker, notional, initial_price, dividend_yield, benchmark_rate, funding_spread,
	tenor, payment_frequency, num_simulations, volatility, seed,
	path_count, npv_mean, npv_std, npv_p5, npv_p25, npv_p50, npv_p75, npv_p95,
	mean_net_cash_flow, total_return_total, funding_total,
	peak_epe, peak_epe_period, delta_exposure, funding_leg_pv,
	paths_simulated, paths_excluded, partial
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" || r.Params.Seed == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trs_runs (` + runColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23,
			$24, $25, $26,
			$27, $28, $29, $30,
			$31, $32, $33
		)
	`

	p, sm := r.Params, r.Summary
	meanNet := sm.MeanNetCashFlowByPeriod
	if meanNet == nil {
		meanNet = []float64{}
	}

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.InputHash, r.ExecutionID, r.CreatedAt,
		p.Ticker, p.Notional, p.InitialPrice, p.DividendYield, p.BenchmarkRate, p.FundingSpread,
		p.Tenor, p.PaymentFrequency, p.NumSimulations, p.Volatility, int64(*p.Seed),
		sm.PathCount, sm.NPVMean, sm.NPVStd,
		sm.NPVPercentiles.P5, sm.NPVPercentiles.P25, sm.NPVPercentiles.P50, sm.NPVPercentiles.P75, sm.NPVPercentiles.P95,
		meanNet, sm.TotalReturnLegTotal, sm.FundingLegTotal,
		r.PeakEPE, r.PeakEPEPeriod, r.DeltaExposure, r.FundingLegPV,
		r.PathsSimulated, r.PathsExcluded, r.Partial,
	)
	return mapError("insert run", err)
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM trs_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, mapError("get run by id", err)
	}
	return r, nil
}

// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC.
func (s *RunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM trs_runs WHERE ticker = $1 ORDER BY created_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query runs by ticker: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// List retrieves the most recent runs, ordered by created_at DESC.
func (s *RunStore) List(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM trs_runs ORDER BY created_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a RunRecord.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var seed int64
	p, sm := &r.Params, &r.Summary

	err := row.Scan(
		&r.RunID, &r.InputHash, &r.ExecutionID, &r.CreatedAt,
		&p.Ticker, &p.Notional, &p.InitialPrice, &p.DividendYield, &p.BenchmarkRate, &p.FundingSpread,
		&p.Tenor, &p.PaymentFrequency, &p.NumSimulations, &p.Volatility, &seed,
		&sm.PathCount, &sm.NPVMean, &sm.NPVStd,
		&sm.NPVPercentiles.P5, &sm.NPVPercentiles.P25, &sm.NPVPercentiles.P50, &sm.NPVPercentiles.P75, &sm.NPVPercentiles.P95,
		&sm.MeanNetCashFlowByPeriod, &sm.TotalReturnLegTotal, &sm.FundingLegTotal,
		&r.PeakEPE, &r.PeakEPEPeriod, &r.DeltaExposure, &r.FundingLegPV,
		&r.PathsSimulated, &r.PathsExcluded, &r.Partial,
	)
	if err != nil {
		return nil, err
	}

	u := uint64(seed)
	p.Seed = &u
	return &r, nil
}

// scanRuns scans multiple rows into RunRecords.
func scanRuns(rows pgx.Rows) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}
