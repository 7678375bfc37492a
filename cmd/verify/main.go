// Command verify replays stored runs and reports any divergence from the
// persisted results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"trs-pricer/internal/app"
	"trs-pricer/internal/config"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	runID := flag.String("run-id", "", "Run ID to verify (default: latest runs)")
	limit := flag.Int("limit", 20, "Number of most recent runs to verify (0 = all)")
	output := flag.String("output", "", "Write markdown report to file instead of stdout")
	flag.Parse()

	logger := log.New(os.Stderr, "[verify] ", log.LstdFlags)

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if !cfg.Storage.Persistent() {
		logger.Fatal("verification needs persistent storage: set storage.postgres_dsn and disable storage.use_memory")
	}

	zl, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		logger.Fatal(err)
	}
	defer zl.Sync()

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Logger: zl})
	if err != nil {
		zl.Fatal("initialize", zap.Error(err))
	}
	defer a.Close()

	verifier := a.Verifier()

	var report *verification.Report
	if *runID != "" {
		res, err := verifier.VerifyRun(ctx, *runID)
		if err != nil {
			zl.Fatal("verify run", zap.String("run_id", *runID), zap.Error(err))
		}
		report = &verification.Report{}
		report.Add(*res)
	} else {
		report, err = verifier.VerifyAll(ctx, *limit)
		if err != nil {
			zl.Fatal("verify runs", zap.Error(err))
		}
	}

	md := verification.RenderMarkdown(report)
	if *output == "" {
		fmt.Print(md)
	} else if err := os.WriteFile(*output, []byte(md), 0o644); err != nil {
		zl.Fatal("write report", zap.String("path", *output), zap.Error(err))
	}

	zl.Info("verification complete",
		zap.Int("total", report.TotalRuns),
		zap.Int("matched", report.MatchedRuns),
		zap.Int("divergent", report.DivergentRuns),
		zap.Int("skipped", report.SkippedRuns))

	if report.DivergentRuns > 0 {
		a.Close()
		_ = zl.Sync()
		os.Exit(1)
	}
}
