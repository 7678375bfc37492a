// Package main provides the revaluation server:
// - Scheduler: prices every trade of the configured portfolio each interval
// - HTTP: /health, /status and Prometheus /metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trs-pricer/internal/app"
	"trs-pricer/internal/config"
	"trs-pricer/internal/idhash"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/observability"
	"trs-pricer/internal/orchestrator"
)

// Server holds the scheduler state and its components.
type Server struct {
	app       *app.App
	portfolio []config.TradeConfig
	interval  time.Duration
	logger    *zap.Logger

	// State
	mu           sync.Mutex
	started      time.Time
	lastRun      time.Time
	running      bool
	cycles       int
	failures     int
	lastOutcomes map[string]TradeStatus
}

// TradeStatus is the latest outcome for one portfolio trade.
type TradeStatus struct {
	RunID     string    `json:"run_id,omitempty"`
	PricedAt  time.Time `json:"priced_at"`
	NPVMean   float64   `json:"npv_mean"`
	PeakEPE   float64   `json:"peak_epe"`
	Decision  string    `json:"decision,omitempty"`
	Partial   bool      `json:"partial,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	flag.Parse()

	logger := log.New(os.Stderr, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if len(cfg.Server.Portfolio) == 0 {
		logger.Fatal("server.portfolio is empty, nothing to revalue")
	}

	zl, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		logger.Fatal(err)
	}
	defer zl.Sync()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tickers := make([]string, len(cfg.Server.Portfolio))
	for i, t := range cfg.Server.Portfolio {
		tickers[i] = t.Request().Ticker
	}

	a, err := app.New(ctx, cfg, app.Options{Logger: zl, StreamTickers: tickers})
	if err != nil {
		zl.Fatal("initialize", zap.Error(err))
	}
	defer a.Close()

	server := &Server{
		app:          a,
		portfolio:    cfg.Server.Portfolio,
		interval:     cfg.Server.Interval,
		logger:       zl.Named("server"),
		started:      time.Now().UTC(),
		lastOutcomes: make(map[string]TradeStatus),
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		zl.Info("received signal, initiating graceful shutdown", zap.Stringer("signal", sig))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			zl.Warn("received second signal, forcing immediate shutdown", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			zl.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	httpServer := server.httpServer(cfg.Server.Addr)
	go func() {
		zl.Info("starting HTTP server", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("HTTP server error", zap.Error(err))
		}
	}()

	err = server.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = httpServer.Shutdown(shutdownCtx)
	shutdownCancel()
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("server error", zap.Error(err))
	}
	zl.Info("shutdown complete")
}

// Run revalues the portfolio immediately, then on every interval tick.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting revaluation scheduler",
		zap.Duration("interval", s.interval),
		zap.Int("trades", len(s.portfolio)))

	s.revalue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.revalue(ctx)
		}
	}
}

// revalue prices every portfolio trade once. Overlapping cycles are skipped.
func (s *Server) revalue(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("revaluation already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now().UTC()
		s.cycles++
		s.mu.Unlock()
	}()

	start := time.Now()
	var failed int
	for _, trade := range s.portfolio {
		if ctx.Err() != nil {
			return
		}
		req := trade.Request()
		res, err := s.app.Orchestrator.RunRequest(ctx, req)
		s.record(req.Ticker, res, err)
		if err != nil {
			failed++
			s.logger.Error("revaluation failed", zap.String("ticker", req.Ticker), zap.Error(err))
		}
	}

	s.logger.Info("revaluation cycle complete",
		zap.Int("trades", len(s.portfolio)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Server) record(ticker string, res *orchestrator.RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.lastOutcomes[ticker]
	st.PricedAt = time.Now().UTC()
	if err != nil {
		s.failures++
		st.LastError = err.Error()
		s.lastOutcomes[ticker] = st
		return
	}

	st = TradeStatus{
		RunID:    res.Record.RunID,
		PricedAt: res.Record.CreatedAt,
		NPVMean:  res.Record.Summary.NPVMean,
		PeakEPE:  res.Record.PeakEPE,
		Partial:  res.Record.Partial,
	}
	if res.Decision != nil {
		st.Decision = string(res.Decision.Overall)
	}
	s.lastOutcomes[ticker] = st
}

// httpServer builds the HTTP server for health/metrics/status.
func (s *Server) httpServer(addr string) *http.Server {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler(s.app.Registry))

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status   string                 `json:"status"`
	Uptime   string                 `json:"uptime"`
	Started  time.Time              `json:"started"`
	LastRun  time.Time              `json:"last_run,omitempty"`
	Running  bool                   `json:"running"`
	Cycles   int                    `json:"cycles"`
	Failures int                    `json:"failures"`
	Trades   map[string]TradeStatus `json:"trades"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	trades := make(map[string]TradeStatus, len(s.lastOutcomes))
	for k, v := range s.lastOutcomes {
		if v.RunID != "" {
			v.RunID = idhash.ShortID(v.RunID)
		}
		trades[k] = v
	}
	resp := StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Started:  s.started,
		LastRun:  s.lastRun,
		Running:  s.running,
		Cycles:   s.cycles,
		Failures: s.failures,
		Trades:   trades,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
