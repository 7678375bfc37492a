package reporting

import (
	"context"
	"fmt"
	"time"

	"trs-pricer/internal/decision"
	"trs-pricer/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore     storage.RunStore
	profileStore storage.ProfileStore
	evaluator    *decision.Evaluator
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. evaluator may be nil.
func NewGenerator(runStore storage.RunStore, profileStore storage.ProfileStore, evaluator *decision.Evaluator) *Generator {
	return &Generator{
		runStore:     runStore,
		profileStore: profileStore,
		evaluator:    evaluator,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of a stored run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	rec, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	points, err := g.profileStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", runID, err)
	}

	var dec *decision.Result
	if g.evaluator != nil {
		dec, err = g.evaluator.Evaluate(decision.InputFromRecord(rec))
		if err != nil {
			return nil, fmt.Errorf("evaluate run %s: %w", runID, err)
		}
	}

	r := NewReport(rec, points, dec, nil)
	r.GeneratedAt = g.now()
	return r, nil
}

// GenerateLatest builds reports for the most recent runs, newest first.
func (g *Generator) GenerateLatest(ctx context.Context, limit int) ([]*Report, error) {
	runs, err := g.runStore.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	reports := make([]*Report, 0, len(runs))
	for _, rec := range runs {
		r, err := g.Generate(ctx, rec.RunID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
