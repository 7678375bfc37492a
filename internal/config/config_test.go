package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10_000_000.0, cfg.Defaults.Notional)
	assert.Equal(t, 1.0, cfg.Defaults.Tenor)
	assert.Equal(t, 4, cfg.Defaults.PaymentFrequency)
	assert.Equal(t, 1000, cfg.Defaults.NumSimulations)
	assert.Equal(t, 0.05, cfg.Defaults.BenchmarkRate)
	assert.Equal(t, 0.015, cfg.Defaults.FundingSpread)
	assert.Equal(t, 0.25, cfg.Defaults.Volatility)
	assert.Equal(t, ProviderStatic, cfg.MarketData.Provider)
	assert.True(t, cfg.Storage.UseMemory)
	assert.False(t, cfg.Storage.Persistent())
	assert.Equal(t, 0.40, cfg.Decision.VaR.Green)
	assert.Equal(t, 0.55, cfg.Decision.VaR.Yellow)
	assert.Equal(t, time.Hour, cfg.Server.Interval)
	assert.Nil(t, cfg.MarketData.BenchmarkRate)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "trs.yaml", `
log:
  level: debug
simulation:
  workers: 4
  seed: 42
defaults:
  num_simulations: 5000
market_data:
  provider: static
  benchmark_rate: 0.045
  quotes:
    AAPL:
      price: 190.5
      volatility: 0.28
storage:
  use_memory: false
  postgres_dsn: postgres://trs@localhost:5432/trs
decision:
  var:
    green: 0.35
    yellow: 0.50
server:
  interval: 15m
  portfolio:
    - ticker: aapl
      notional: 5000000
    - ticker: MSFT
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Simulation.Workers)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, 5000, cfg.Defaults.NumSimulations)
	assert.Equal(t, 0.25, cfg.Defaults.Volatility)

	require.NotNil(t, cfg.MarketData.BenchmarkRate)
	assert.Equal(t, 0.045, *cfg.MarketData.BenchmarkRate)
	q, ok := cfg.MarketData.Quotes["aapl"]
	require.True(t, ok, "quote keys are case-folded")
	assert.Equal(t, 190.5, q.Price)
	assert.Equal(t, 0.28, q.Volatility)

	assert.True(t, cfg.Storage.Persistent())
	assert.Equal(t, 0.35, cfg.Decision.VaR.Green)
	assert.Equal(t, 0.10, cfg.Decision.EPE.Green)

	assert.Equal(t, 15*time.Minute, cfg.Server.Interval)
	require.Len(t, cfg.Server.Portfolio, 2)
	req := cfg.Server.Portfolio[0].Request()
	assert.Equal(t, "AAPL", req.Ticker)
	assert.Equal(t, 5_000_000.0, req.Notional)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRS_DEFAULTS_VOLATILITY", "0.4")
	t.Setenv("TRS_STORAGE_USE_MEMORY", "false")
	t.Setenv("TRS_STORAGE_POSTGRES_DSN", "postgres://env@db/trs")
	t.Setenv("TRS_MARKET_DATA_TIMEOUT", "3s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.4, cfg.Defaults.Volatility)
	assert.False(t, cfg.Storage.UseMemory)
	assert.Equal(t, "postgres://env@db/trs", cfg.Storage.PostgresDSN)
	assert.Equal(t, 3*time.Second, cfg.MarketData.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero notional", func(c *Config) { c.Defaults.Notional = 0 }},
		{"negative volatility", func(c *Config) { c.Defaults.Volatility = -0.1 }},
		{"negative workers", func(c *Config) { c.Simulation.Workers = -1 }},
		{"http without endpoint", func(c *Config) { c.MarketData.Provider = ProviderHTTP }},
		{"unknown provider", func(c *Config) { c.MarketData.Provider = "bloomberg" }},
		{"postgres dsn missing", func(c *Config) { c.Storage.UseMemory = false }},
		{"inverted epe band", func(c *Config) { c.Decision.EPE.Green = 0.5 }},
		{"portfolio without ticker", func(c *Config) { c.Server.Portfolio = []TradeConfig{{Notional: 1}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "TRS_LOG_LEVEL=warn\nTRS_DEFAULTS_TENOR=2\n")
	t.Setenv("TRS_DEFAULTS_TENOR", "3")
	t.Setenv("TRS_LOG_LEVEL", "")
	os.Unsetenv("TRS_LOG_LEVEL")

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("TRS_LOG_LEVEL") })

	assert.Equal(t, "warn", os.Getenv("TRS_LOG_LEVEL"))
	assert.Equal(t, "3", os.Getenv("TRS_DEFAULTS_TENOR"), "existing variables win")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3.0, cfg.Defaults.Tenor)
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
