// Package orchestrator runs the end-to-end valuation of one trade:
// seed → simulation → cash flows → valuation → decision → persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trs-pricer/internal/cashflow"
	"trs-pricer/internal/decision"
	"trs-pricer/internal/domain"
	"trs-pricer/internal/idhash"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/marketdata"
	"trs-pricer/internal/observability"
	"trs-pricer/internal/reporting"
	"trs-pricer/internal/simulation"
	"trs-pricer/internal/storage"
	"trs-pricer/internal/valuation"
)

// ErrNoResolver is returned by RunRequest when no market data resolver is configured.
var ErrNoResolver = errors.New("no market data resolver configured")

// Orchestrator coordinates one valuation run.
type Orchestrator struct {
	simulator *simulation.Simulator
	cashflows *cashflow.Engine
	valuer    *valuation.Engine

	resolver     *marketdata.Resolver
	runStore     storage.RunStore
	profileStore storage.ProfileStore
	evaluator    *decision.Evaluator

	defaultSeed uint64
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// Options for creating Orchestrator. Every field except Workers is optional.
type Options struct {
	Workers int // <= 0 uses GOMAXPROCS

	Resolver     *marketdata.Resolver
	RunStore     storage.RunStore
	ProfileStore storage.ProfileStore
	Evaluator    *decision.Evaluator

	// DefaultSeed seeds runs whose parameters carry no seed. Zero draws a
	// fresh seed per run.
	DefaultSeed uint64

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := logging.OrNop(opts.Logger)
	return &Orchestrator{
		simulator:    simulation.NewSimulator(simulation.Options{Workers: opts.Workers, Logger: logger}),
		cashflows:    cashflow.NewEngine(opts.Workers),
		valuer:       valuation.NewEngine(valuation.Options{Workers: opts.Workers, Logger: logger}),
		resolver:     opts.Resolver,
		runStore:     opts.RunStore,
		profileStore: opts.ProfileStore,
		evaluator:    opts.Evaluator,
		defaultSeed:  opts.DefaultSeed,
		metrics:      opts.Metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RunResult contains results from one valuation run.
type RunResult struct {
	Record   *domain.RunRecord
	Profile  []*domain.ProfilePoint
	EPE      []domain.EPEPoint
	Warnings []domain.NumericalWarning
	Decision *decision.Result // nil without an evaluator

	Persisted bool
}

// Report renders r for the reporting package.
func (r *RunResult) Report() *reporting.Report {
	warnings := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		warnings[i] = w.String()
	}
	return reporting.NewReport(r.Record, r.Profile, r.Decision, warnings)
}

// RunRequest resolves market inputs for req and runs the valuation.
func (o *Orchestrator) RunRequest(ctx context.Context, req marketdata.Request) (*RunResult, error) {
	if o.resolver == nil {
		return nil, ErrNoResolver
	}
	start := time.Now()
	params, err := o.resolver.Resolve(ctx, req)
	if err != nil {
		o.recordFailure(req.Ticker, start)
		return nil, fmt.Errorf("resolve market data: %w", err)
	}
	return o.Run(ctx, params)
}

// Run prices params and persists the outcome when stores are configured.
//
// A cancelled ctx yields a partial run if at least one path completed;
// downstream stages then finish on the completed paths.
func (o *Orchestrator) Run(ctx context.Context, params domain.TradeParameters) (*RunResult, error) {
	start := time.Now()

	res, ctx, err := o.price(ctx, params)
	if err != nil {
		o.recordFailure(params.Ticker, start)
		return nil, err
	}

	if err := o.persist(ctx, res); err != nil {
		o.recordFailure(params.Ticker, start)
		return nil, err
	}

	o.recordSuccess(res, start)
	return res, nil
}

// Price runs the valuation without persisting or recording metrics.
func (o *Orchestrator) Price(ctx context.Context, params domain.TradeParameters) (*RunResult, error) {
	res, _, err := o.price(ctx, params)
	return res, err
}

// price returns the context downstream stages must use: detached from
// cancellation once the ensemble is partial.
func (o *Orchestrator) price(ctx context.Context, params domain.TradeParameters) (*RunResult, context.Context, error) {
	if err := params.Validate(); err != nil {
		return nil, ctx, err
	}

	seed, err := o.seedFor(params)
	if err != nil {
		return nil, ctx, err
	}
	params = params.WithSeed(seed)
	executionID := uuid.NewString()

	log := o.logger.With(
		zap.String("ticker", params.Ticker),
		zap.Uint64("seed", seed),
		zap.String("execution_id", executionID))
	log.Info("valuation started",
		zap.Int("paths", params.NumSimulations),
		zap.Int("periods", params.NumPeriods()))

	ensemble, err := o.simulator.Simulate(ctx, params, simulation.NewStreams(seed))
	if err != nil {
		return nil, ctx, err
	}
	if ensemble.Partial {
		ctx = context.WithoutCancel(ctx)
	}

	flows, err := o.cashflows.ForEnsemble(ctx, ensemble, params)
	if err != nil {
		return nil, ctx, err
	}

	val, err := o.valuer.Evaluate(ctx, ensemble, flows, params)
	if err != nil {
		return nil, ctx, err
	}

	rec := &domain.RunRecord{
		RunID:          idhash.ComputeRunID(params, seed, executionID),
		InputHash:      idhash.ComputeInputHash(params, seed),
		ExecutionID:    executionID,
		CreatedAt:      o.now(),
		Params:         params,
		Summary:        val.Summary,
		PeakEPE:        val.PeakEPE,
		PeakEPEPeriod:  val.PeakEPEPeriod,
		DeltaExposure:  val.DeltaExposure,
		FundingLegPV:   val.FundingLegPV,
		PathsSimulated: len(ensemble.Paths),
		PathsExcluded:  val.PathsExcluded,
		Partial:        ensemble.Partial,
	}

	res := &RunResult{
		Record:   rec,
		Profile:  ProfilePoints(rec.RunID, val.EPE, val.Summary.MeanNetCashFlowByPeriod),
		EPE:      val.EPE,
		Warnings: val.Warnings,
	}

	if o.evaluator != nil {
		res.Decision, err = o.evaluator.Evaluate(decision.NewInput(params, val.Summary, val.PeakEPE))
		if err != nil {
			return nil, ctx, fmt.Errorf("evaluate decision: %w", err)
		}
	}

	log.Info("valuation complete",
		zap.String("run_id", idhash.ShortID(rec.RunID)),
		zap.Float64("npv_mean", rec.Summary.NPVMean),
		zap.Float64("npv_std", rec.Summary.NPVStd),
		zap.Float64("peak_epe", rec.PeakEPE),
		zap.Int("paths_excluded", rec.PathsExcluded),
		zap.Bool("partial", rec.Partial))

	return res, ctx, nil
}

func (o *Orchestrator) seedFor(params domain.TradeParameters) (uint64, error) {
	if params.Seed != nil {
		return *params.Seed, nil
	}
	if o.defaultSeed != 0 {
		return o.defaultSeed, nil
	}
	seed, err := simulation.RandomSeed()
	if err != nil {
		return 0, fmt.Errorf("draw seed: %w", err)
	}
	return seed, nil
}

// ProfilePoints joins the EPE profile with mean net cash flows per period.
func ProfilePoints(runID string, epe []domain.EPEPoint, meanNet []float64) []*domain.ProfilePoint {
	points := make([]*domain.ProfilePoint, len(epe))
	for i, p := range epe {
		var net float64
		if i < len(meanNet) {
			net = meanNet[i]
		}
		points[i] = &domain.ProfilePoint{
			RunID:                    runID,
			Period:                   p.Period,
			TimeOffsetYears:          p.TimeOffsetYears,
			ExpectedPositiveExposure: p.ExpectedPositiveExposure,
			MeanNetCashFlow:          net,
		}
	}
	return points
}

func (o *Orchestrator) persist(ctx context.Context, res *RunResult) error {
	if o.runStore != nil {
		start := time.Now()
		err := o.runStore.Insert(ctx, res.Record)
		o.metrics.RecordDBQuery("runs", "insert", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist run %s: %w", res.Record.RunID, err)
		}
		res.Persisted = true
	}

	if o.profileStore != nil && len(res.Profile) > 0 {
		start := time.Now()
		err := o.profileStore.InsertBulk(ctx, res.Profile)
		o.metrics.RecordDBQuery("profiles", "insert_bulk", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist profile %s: %w", res.Record.RunID, err)
		}
	}
	return nil
}

func (o *Orchestrator) recordSuccess(res *RunResult, start time.Time) {
	rec := res.Record
	status := "success"
	if rec.Partial {
		status = "partial"
	}
	o.metrics.RecordRun(observability.RunOutcome{
		Ticker:          rec.Params.Ticker,
		Status:          status,
		DurationSeconds: time.Since(start).Seconds(),
		PathsSimulated:  rec.PathsSimulated,
		PathsExcluded:   rec.PathsExcluded,
		NPVMean:         rec.Summary.NPVMean,
		PeakEPE:         rec.PeakEPE,
		UnixTime:        float64(rec.CreatedAt.Unix()),
	})
	if res.Decision != nil {
		o.metrics.RecordDecision(rec.Params.Ticker, res.Decision.Overall.Level())
	}
}

func (o *Orchestrator) recordFailure(ticker string, start time.Time) {
	o.metrics.RecordRun(observability.RunOutcome{
		Ticker:          ticker,
		Status:          "error",
		DurationSeconds: time.Since(start).Seconds(),
	})
}
