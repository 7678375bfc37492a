// Command trsprice prices one total return swap and prints the report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"trs-pricer/internal/app"
	"trs-pricer/internal/config"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/marketdata"
	"trs-pricer/internal/reporting"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
	formatYAML     = "yaml"
	formatJSON     = "json"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	ticker := flag.String("ticker", "", "Underlying ticker (required)")
	notional := flag.Float64("notional", 0, "Notional amount (0 uses config default)")
	tenor := flag.Float64("tenor", 0, "Tenor in years (0 uses config default)")
	frequency := flag.Int("frequency", 0, "Payments per year (0 uses config default)")
	simulations := flag.Int("simulations", 0, "Number of Monte Carlo paths (0 uses config default)")
	workers := flag.Int("workers", -1, "Worker goroutines (-1 uses config, 0 uses GOMAXPROCS)")
	format := flag.String("format", formatText, "Output format: text, markdown, csv, yaml, json")
	output := flag.String("output", "", "Write report to file instead of stdout")
	persist := flag.Bool("persist", false, "Persist the run using the configured storage")

	var req marketdata.Request
	flag.Func("seed", "Random seed (unset draws one)", func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		req.Seed = &v
		return err
	})
	floatOverride("price", "Override initial price", &req.Overrides.InitialPrice)
	floatOverride("volatility", "Override annualized volatility", &req.Overrides.Volatility)
	floatOverride("dividend-yield", "Override annual dividend yield", &req.Overrides.DividendYield)
	floatOverride("funding-spread", "Override annual funding spread", &req.Overrides.FundingSpread)
	floatOverride("benchmark-rate", "Override annual benchmark rate", &req.Overrides.BenchmarkRate)

	flag.Parse()

	// Fatal flag errors only; zap takes over once config is loaded.
	logger := log.New(os.Stderr, "[trsprice] ", log.LstdFlags)

	if *ticker == "" {
		logger.Fatal("--ticker is required")
	}
	switch *format {
	case formatText, formatMarkdown, formatCSV, formatYAML, formatJSON:
	default:
		logger.Fatalf("unknown --format %q", *format)
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if *workers >= 0 {
		cfg.Simulation.Workers = *workers
	}
	if !*persist {
		cfg.Storage.UseMemory = true
	}

	zl, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		logger.Fatal(err)
	}
	defer zl.Sync()

	// Create context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req.Ticker = strings.ToUpper(*ticker)
	req.Notional = *notional
	req.Tenor = *tenor
	req.PaymentFrequency = *frequency
	req.NumSimulations = *simulations

	a, err := app.New(ctx, cfg, app.Options{Logger: zl, StreamTickers: []string{req.Ticker}})
	if err != nil {
		zl.Fatal("initialize", zap.Error(err))
	}
	defer a.Close()

	res, err := a.Orchestrator.RunRequest(ctx, req)
	if err != nil {
		zl.Fatal("pricing failed", zap.Error(err))
	}

	out, err := render(res.Report(), *format)
	if err != nil {
		zl.Fatal("render report", zap.Error(err))
	}

	if *output == "" {
		fmt.Print(out)
	} else {
		if err := os.WriteFile(*output, []byte(out), 0o644); err != nil {
			zl.Fatal("write report", zap.String("path", *output), zap.Error(err))
		}
		zl.Info("report written", zap.String("path", *output))
	}

	if res.Record.Partial {
		zl.Warn("run was interrupted, results cover completed paths only",
			zap.Int("paths", res.Record.PathsSimulated))
		a.Close()
		_ = zl.Sync()
		os.Exit(130)
	}
}

func floatOverride(name, usage string, dst **float64) {
	flag.Func(name, usage, func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	})
}

func render(r *reporting.Report, format string) (string, error) {
	switch format {
	case formatMarkdown:
		return reporting.RenderMarkdown(r), nil
	case formatCSV:
		return reporting.RenderCSV(r.Profile), nil
	case formatYAML:
		b, err := reporting.RenderYAML(r)
		return string(b), err
	case formatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	default:
		return reporting.RenderText(r), nil
	}
}
