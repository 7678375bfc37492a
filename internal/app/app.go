// Package app assembles the pricer's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"trs-pricer/internal/config"
	"trs-pricer/internal/decision"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/marketdata"
	"trs-pricer/internal/observability"
	"trs-pricer/internal/orchestrator"
	"trs-pricer/internal/reporting"
	"trs-pricer/internal/storage"
	chstore "trs-pricer/internal/storage/clickhouse"
	"trs-pricer/internal/storage/memory"
	"trs-pricer/internal/storage/migrations"
	pgstore "trs-pricer/internal/storage/postgres"
	"trs-pricer/internal/verification"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "trs_pricer"

// App holds the wired components. Close releases connections.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Metrics      *observability.Metrics
	RunStore     storage.RunStore
	ProfileStore storage.ProfileStore
	Provider     marketdata.Provider
	Resolver     *marketdata.Resolver
	Evaluator    *decision.Evaluator
	Orchestrator *orchestrator.Orchestrator

	closers []func() error
}

// Options adjusts wiring beyond what configuration covers.
type Options struct {
	Logger *zap.Logger // nil builds one from cfg.Log

	// Tickers to subscribe on the quote stream, when one is configured.
	StreamTickers []string
}

// New wires an App from cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: opts.Logger}

	if a.Logger == nil {
		logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closers = append(a.closers, func() error {
			_ = logger.Sync()
			return nil
		})
	}

	a.Registry = prometheus.NewRegistry()
	a.Metrics = observability.NewMetrics(MetricsNamespace, a.Registry)

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openProvider(ctx, opts.StreamTickers); err != nil {
		a.Close()
		return nil, err
	}

	a.Resolver = marketdata.NewResolver(marketdata.ResolverOptions{
		Provider: a.Provider,
		Defaults: cfg.Defaults.MarketDefaults(),
		Logger:   a.Logger.Named("marketdata"),
		Metrics:  a.Metrics,
	})
	a.Evaluator = decision.NewEvaluator(cfg.Decision)
	a.Orchestrator = orchestrator.New(orchestrator.Options{
		Workers:      cfg.Simulation.Workers,
		Resolver:     a.Resolver,
		RunStore:     a.RunStore,
		ProfileStore: a.ProfileStore,
		Evaluator:    a.Evaluator,
		DefaultSeed:  cfg.Simulation.Seed,
		Metrics:      a.Metrics,
		Logger:       a.Logger.Named("orchestrator"),
	})

	return a, nil
}

// openStores connects PostgreSQL for runs and ClickHouse for exposure
// profiles. Without a ClickHouse DSN profiles stay in memory.
func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config.Storage
	if !cfg.Persistent() {
		a.RunStore = memory.NewRunStore()
		a.ProfileStore = memory.NewProfileStore()
		a.Logger.Info("using in-memory storage")
		return nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
	}
	a.RunStore = pgstore.NewRunStore(pool)

	if cfg.ClickhouseDSN == "" {
		a.Logger.Warn("no clickhouse dsn, exposure profiles kept in memory")
		a.ProfileStore = memory.NewProfileStore()
		return nil
	}

	var conn *chstore.Conn
	if cfg.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	a.closers = append(a.closers, conn.Close)
	a.ProfileStore = chstore.NewProfileStore(conn)

	a.Logger.Info("using persistent storage")
	return nil
}

// openProvider builds the provider chain: source, cache, then live quotes.
func (a *App) openProvider(ctx context.Context, streamTickers []string) error {
	cfg := a.Config.MarketData

	var provider marketdata.Provider
	switch cfg.Provider {
	case config.ProviderHTTP:
		provider = marketdata.NewHTTPProvider(cfg.Endpoint,
			marketdata.WithTimeout(cfg.Timeout),
			marketdata.WithMaxRetries(cfg.MaxRetries))
	default:
		provider = marketdata.NewStaticProvider(cfg.Quotes, cfg.BenchmarkRate)
	}

	if cfg.Cache && cfg.CacheTTL > 0 {
		provider = marketdata.NewCachingProvider(provider, cfg.CacheTTL)
	}

	if cfg.StreamEndpoint != "" && len(streamTickers) > 0 {
		stream, err := marketdata.DialQuoteStream(ctx, cfg.StreamEndpoint, streamTickers, nil, a.Logger.Named("stream"))
		if err != nil {
			return fmt.Errorf("dial quote stream: %w", err)
		}
		a.closers = append(a.closers, stream.Close)
		provider = marketdata.NewStreamingProvider(provider, stream, cfg.StreamMaxAge)
	}

	a.Provider = provider
	a.Logger.Info("market data provider ready",
		zap.String("provider", cfg.Provider),
		zap.Bool("cache", cfg.Cache),
		zap.Bool("stream", cfg.StreamEndpoint != "" && len(streamTickers) > 0))
	return nil
}

// Generator builds reports from stored runs.
func (a *App) Generator() *reporting.Generator {
	return reporting.NewGenerator(a.RunStore, a.ProfileStore, a.Evaluator)
}

// Verifier replays stored runs against the configured stores.
func (a *App) Verifier() *verification.ReplayVerifier {
	return verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:     a.RunStore,
		ProfileStore: a.ProfileStore,
		Pricer:       a.Orchestrator,
		Logger:       a.Logger.Named("verify"),
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
