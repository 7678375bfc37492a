package verification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/idhash"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/orchestrator"
	"trs-pricer/internal/storage"
)

var (
	// ErrRunNotFound is returned when the run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrMissingSeed is returned for a stored run without a recorded seed.
	ErrMissingSeed = errors.New("stored run has no seed")
)

// Pricer re-executes a valuation without side effects.
type Pricer interface {
	Price(ctx context.Context, params domain.TradeParameters) (*orchestrator.RunResult, error)
}

// ReplayVerifier implements Verifier.
type ReplayVerifier struct {
	runStore     storage.RunStore
	profileStore storage.ProfileStore // optional
	pricer       Pricer
	logger       *zap.Logger
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore     storage.RunStore
	ProfileStore storage.ProfileStore
	Pricer       Pricer
	Logger       *zap.Logger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:     opts.RunStore,
		profileStore: opts.ProfileStore,
		pricer:       opts.Pricer,
		logger:       logging.OrNop(opts.Logger),
	}
}

// VerifyRun verifies a single run by replaying the valuation.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*RunVerification, error) {
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return v.verify(ctx, stored)
}

func (v *ReplayVerifier) verify(ctx context.Context, stored *domain.RunRecord) (*RunVerification, error) {
	result := &RunVerification{
		RunID:     stored.RunID,
		Ticker:    stored.Params.Ticker,
		InputHash: stored.InputHash,
		StoredNPV: stored.Summary.NPVMean,
	}

	// Which paths finished before cancellation is not recorded.
	if stored.Partial {
		result.Skipped = "partial run"
		return result, nil
	}
	if stored.Params.Seed == nil {
		return nil, ErrMissingSeed
	}

	replayed, err := v.pricer.Price(ctx, stored.Params)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", idhash.ShortID(stored.RunID), err)
	}
	if replayed.Record.Partial {
		return nil, fmt.Errorf("replay %s: %w", idhash.ShortID(stored.RunID), context.Cause(ctx))
	}

	result.ReplayedNPV = replayed.Record.Summary.NPVMean
	result.Divergences = CompareRuns(stored, replayed.Record)

	if v.profileStore != nil {
		points, err := v.profileStore.GetByRunID(ctx, stored.RunID)
		if err != nil {
			return nil, err
		}
		replayedPoints := orchestrator.ProfilePoints(stored.RunID, replayed.EPE,
			replayed.Record.Summary.MeanNetCashFlowByPeriod)
		result.Divergences = append(result.Divergences, CompareProfiles(points, replayedPoints)...)
	}

	result.Match = len(result.Divergences) == 0
	if !result.Match {
		v.logger.Warn("replay diverged",
			zap.String("run_id", idhash.ShortID(stored.RunID)),
			zap.Int("divergences", len(result.Divergences)))
	}
	return result, nil
}

// VerifyAll verifies the most recent stored runs.
func (v *ReplayVerifier) VerifyAll(ctx context.Context, limit int) (*Report, error) {
	runs, err := v.runStore.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	report := &Report{Results: make([]RunVerification, 0, len(runs))}

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.verify(ctx, run)
		if err != nil {
			// Record error as divergence
			report.Add(RunVerification{
				RunID:     run.RunID,
				Ticker:    run.Params.Ticker,
				InputHash: run.InputHash,
				StoredNPV: run.Summary.NPVMean,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			continue
		}

		report.Add(*result)
	}

	return report, nil
}
