// Command report renders reports for stored runs into an output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"trs-pricer/internal/app"
	"trs-pricer/internal/config"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	runID := flag.String("run-id", "", "Single run to report (default: latest runs)")
	limit := flag.Int("limit", 50, "Number of most recent runs to report (0 = all)")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if !cfg.Storage.Persistent() {
		logger.Fatal("reports need persistent storage: set storage.postgres_dsn and disable storage.use_memory")
	}

	zl, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		logger.Fatal(err)
	}
	defer zl.Sync()

	ctx := context.Background()

	a, err := app.New(ctx, cfg, app.Options{Logger: zl})
	if err != nil {
		zl.Fatal("initialize", zap.Error(err))
	}
	defer a.Close()

	gen := a.Generator()

	var reports []*reporting.Report
	if *runID != "" {
		r, err := gen.Generate(ctx, *runID)
		if err != nil {
			zl.Fatal("generate report", zap.String("run_id", *runID), zap.Error(err))
		}
		reports = append(reports, r)
	} else {
		reports, err = gen.GenerateLatest(ctx, *limit)
		if err != nil {
			zl.Fatal("generate reports", zap.Error(err))
		}
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		zl.Fatal("create output directory", zap.Error(err))
	}

	files, err := writeReports(*outputDir, reports)
	if err != nil {
		zl.Fatal("write reports", zap.Error(err))
	}

	fmt.Printf("%d reports generated:\n", len(reports))
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
}

// writeReports writes one markdown and profile CSV per run plus RUNS.csv.
func writeReports(dir string, reports []*reporting.Report) ([]string, error) {
	var files []string
	write := func(name, content string) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	for _, r := range reports {
		if err := write(fmt.Sprintf("REPORT_%s.md", r.ShortID), reporting.RenderMarkdown(r)); err != nil {
			return nil, err
		}
		if err := write(fmt.Sprintf("PROFILE_%s.csv", r.ShortID), reporting.RenderCSV(r.Profile)); err != nil {
			return nil, err
		}
	}
	if err := write("RUNS.csv", reporting.RenderRunsCSV(reports)); err != nil {
		return nil, err
	}
	return files, nil
}
