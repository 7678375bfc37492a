// Package config loads pricer configuration from an optional YAML file,
// TRS_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"trs-pricer/internal/decision"
	"trs-pricer/internal/marketdata"
)

// EnvPrefix prefixes every environment override, e.g. TRS_STORAGE_POSTGRES_DSN.
const EnvPrefix = "TRS"

// Config is the full pricer configuration.
type Config struct {
	Log        LogConfig           `mapstructure:"log"`
	Simulation SimulationConfig    `mapstructure:"simulation"`
	Defaults   DefaultsConfig      `mapstructure:"defaults"`
	MarketData MarketDataConfig    `mapstructure:"market_data"`
	Storage    StorageConfig       `mapstructure:"storage"`
	Decision   decision.Thresholds `mapstructure:"decision"`
	Server     ServerConfig        `mapstructure:"server"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type SimulationConfig struct {
	Workers int `mapstructure:"workers"` // 0 means GOMAXPROCS
	// Seed fixes the seed of every run that does not set its own. Zero means
	// draw a fresh seed per run.
	Seed uint64 `mapstructure:"seed"`
}

// DefaultsConfig supplies trade terms and fallback market inputs.
type DefaultsConfig struct {
	Notional         float64 `mapstructure:"notional"`
	Tenor            float64 `mapstructure:"tenor"`
	PaymentFrequency int     `mapstructure:"payment_frequency"`
	NumSimulations   int     `mapstructure:"num_simulations"`
	BenchmarkRate    float64 `mapstructure:"benchmark_rate"`
	FundingSpread    float64 `mapstructure:"funding_spread"`
	Volatility       float64 `mapstructure:"volatility"`
	DividendYield    float64 `mapstructure:"dividend_yield"`
}

// MarketDefaults converts d for the market data resolver.
func (d DefaultsConfig) MarketDefaults() marketdata.Defaults {
	return marketdata.Defaults{
		Notional:         d.Notional,
		Tenor:            d.Tenor,
		PaymentFrequency: d.PaymentFrequency,
		NumSimulations:   d.NumSimulations,
		BenchmarkRate:    d.BenchmarkRate,
		FundingSpread:    d.FundingSpread,
		Volatility:       d.Volatility,
		DividendYield:    d.DividendYield,
	}
}

const (
	ProviderStatic = "static"
	ProviderHTTP   = "http"
)

type MarketDataConfig struct {
	Provider       string                      `mapstructure:"provider"` // static or http
	Endpoint       string                      `mapstructure:"endpoint"`
	StreamEndpoint string                      `mapstructure:"stream_endpoint"` // optional websocket quote feed
	StreamMaxAge   time.Duration               `mapstructure:"stream_max_age"`
	Timeout        time.Duration               `mapstructure:"timeout"`
	MaxRetries     int                         `mapstructure:"max_retries"`
	Cache          bool                        `mapstructure:"cache"`
	CacheTTL       time.Duration               `mapstructure:"cache_ttl"`
	BenchmarkRate  *float64                    `mapstructure:"benchmark_rate"` // static provider only
	Quotes         map[string]marketdata.Quote `mapstructure:"quotes"`         // static provider only
}

type StorageConfig struct {
	UseMemory     bool   `mapstructure:"use_memory"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
	Migrate       bool   `mapstructure:"migrate"`
}

// Persistent reports whether runs should be written to databases.
func (s StorageConfig) Persistent() bool {
	return !s.UseMemory && s.PostgresDSN != ""
}

// TradeConfig is one trade of the server's revaluation portfolio.
// Zero fields take the defaults section.
type TradeConfig struct {
	Ticker           string  `mapstructure:"ticker"`
	Notional         float64 `mapstructure:"notional"`
	Tenor            float64 `mapstructure:"tenor"`
	PaymentFrequency int     `mapstructure:"payment_frequency"`
	NumSimulations   int     `mapstructure:"num_simulations"`
}

// Request converts t into a market data request.
func (t TradeConfig) Request() marketdata.Request {
	return marketdata.Request{
		Ticker:           strings.ToUpper(t.Ticker),
		Notional:         t.Notional,
		Tenor:            t.Tenor,
		PaymentFrequency: t.PaymentFrequency,
		NumSimulations:   t.NumSimulations,
	}
}

type ServerConfig struct {
	Addr      string        `mapstructure:"addr"`
	Interval  time.Duration `mapstructure:"interval"`
	Portfolio []TradeConfig `mapstructure:"portfolio"`
}

// setDefaults registers every key so environment overrides bind even
// without a config file.
func setDefaults(v *viper.Viper) {
	d := marketdata.StandardDefaults()
	th := decision.DefaultThresholds()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("defaults.notional", d.Notional)
	v.SetDefault("defaults.tenor", d.Tenor)
	v.SetDefault("defaults.payment_frequency", d.PaymentFrequency)
	v.SetDefault("defaults.num_simulations", d.NumSimulations)
	v.SetDefault("defaults.benchmark_rate", d.BenchmarkRate)
	v.SetDefault("defaults.funding_spread", d.FundingSpread)
	v.SetDefault("defaults.volatility", d.Volatility)
	v.SetDefault("defaults.dividend_yield", d.DividendYield)

	v.SetDefault("market_data.provider", ProviderStatic)
	v.SetDefault("market_data.endpoint", "")
	v.SetDefault("market_data.stream_endpoint", "")
	v.SetDefault("market_data.stream_max_age", time.Minute)
	v.SetDefault("market_data.timeout", marketdata.DefaultTimeout)
	v.SetDefault("market_data.max_retries", marketdata.DefaultMaxRetries)
	v.SetDefault("market_data.cache", true)
	v.SetDefault("market_data.cache_ttl", 15*time.Minute)

	v.SetDefault("storage.use_memory", true)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.migrate", true)

	v.SetDefault("decision.npv.green", th.NPV.Green)
	v.SetDefault("decision.npv.yellow", th.NPV.Yellow)
	v.SetDefault("decision.var.green", th.VaR.Green)
	v.SetDefault("decision.var.yellow", th.VaR.Yellow)
	v.SetDefault("decision.epe.green", th.EPE.Green)
	v.SetDefault("decision.epe.yellow", th.EPE.Yellow)
	v.SetDefault("decision.baseline_volatility", th.BaselineVolatility)
	v.SetDefault("decision.baseline_tenor", th.BaselineTenor)
	v.SetDefault("decision.min_scale", th.MinScale)
	v.SetDefault("decision.max_scale", th.MaxScale)

	v.SetDefault("server.addr", ":9090")
	v.SetDefault("server.interval", time.Hour)
}

// Load reads configuration. An empty path uses defaults and environment
// only; a non-empty path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Validate rejects configuration no run could use.
func (c *Config) Validate() error {
	d := c.Defaults
	switch {
	case d.Notional <= 0:
		return errors.New("config: defaults.notional must be positive")
	case d.Tenor <= 0:
		return errors.New("config: defaults.tenor must be positive")
	case d.PaymentFrequency <= 0:
		return errors.New("config: defaults.payment_frequency must be positive")
	case d.NumSimulations <= 0:
		return errors.New("config: defaults.num_simulations must be positive")
	case d.Volatility < 0:
		return errors.New("config: defaults.volatility must be non-negative")
	case d.FundingSpread < 0:
		return errors.New("config: defaults.funding_spread must be non-negative")
	case d.DividendYield < 0:
		return errors.New("config: defaults.dividend_yield must be non-negative")
	}

	if c.Simulation.Workers < 0 {
		return errors.New("config: simulation.workers must be non-negative")
	}

	switch c.MarketData.Provider {
	case ProviderStatic:
	case ProviderHTTP:
		if c.MarketData.Endpoint == "" {
			return errors.New("config: market_data.endpoint required for http provider")
		}
	default:
		return fmt.Errorf("config: unknown market_data.provider %q", c.MarketData.Provider)
	}

	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return errors.New("config: storage.postgres_dsn required unless storage.use_memory")
	}

	if err := c.Decision.Validate(); err != nil {
		return fmt.Errorf("config: decision: %w", err)
	}

	if c.Server.Interval <= 0 {
		return errors.New("config: server.interval must be positive")
	}
	for i, t := range c.Server.Portfolio {
		if t.Ticker == "" {
			return fmt.Errorf("config: server.portfolio[%d].ticker is required", i)
		}
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
