// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	PathsSimulated     prometheus.Counter
	PathsExcluded      prometheus.Counter
	NumericalWarnings  prometheus.Counter
	PartialRuns        prometheus.Counter
	LastNPVMean        *prometheus.GaugeVec
	LastPeakEPE        *prometheus.GaugeVec
	LastDecisionStatus *prometheus.GaugeVec

	// Market data metrics
	MarketDataLatency  *prometheus.HistogramVec
	MarketDataFallback *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "trs_pricer"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "runs_total",
			Help:      "Total number of pricing runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "run_duration_seconds",
			Help:      "Pricing run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		PathsSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "paths_simulated_total",
			Help:      "Total number of simulated price paths",
		}),
		PathsExcluded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "paths_excluded_total",
			Help:      "Total number of paths excluded from aggregates",
		}),
		NumericalWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "numerical_warnings_total",
			Help:      "Total number of numerical warnings raised",
		}),
		PartialRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "partial_runs_total",
			Help:      "Total number of runs cancelled before every path completed",
		}),
		LastNPVMean: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "last_npv_mean",
			Help:      "Mean NPV of the latest run per ticker",
		}, []string{"ticker"}),
		LastPeakEPE: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "last_peak_epe",
			Help:      "Peak expected positive exposure of the latest run per ticker",
		}, []string{"ticker"}),
		LastDecisionStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "last_status",
			Help:      "Overall traffic light of the latest run per ticker (0 green, 1 yellow, 2 red)",
		}, []string{"ticker"}),

		MarketDataLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "call_latency_seconds",
			Help:      "Market data provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		MarketDataFallback: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fallbacks_total",
			Help:      "Total number of inputs resolved from defaults after a provider failure",
		}, []string{"input"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pricing run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint serving g.
// A nil g serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RunOutcome summarizes one pricing run for metrics.
type RunOutcome struct {
	Ticker          string
	Status          string // "success", "partial" or "error"
	DurationSeconds float64
	PathsSimulated  int
	PathsExcluded   int
	NPVMean         float64
	PeakEPE         float64
	UnixTime        float64
}

// RecordRun records a finished pricing run.
func (m *Metrics) RecordRun(o RunOutcome) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(o.Status).Inc()
	m.RunDuration.Observe(o.DurationSeconds)
	if o.Status == "error" {
		return
	}
	m.PathsSimulated.Add(float64(o.PathsSimulated))
	m.PathsExcluded.Add(float64(o.PathsExcluded))
	m.NumericalWarnings.Add(float64(o.PathsExcluded))
	if o.Status == "partial" {
		m.PartialRuns.Inc()
	}
	m.LastNPVMean.WithLabelValues(o.Ticker).Set(o.NPVMean)
	m.LastPeakEPE.WithLabelValues(o.Ticker).Set(o.PeakEPE)
	m.LastSuccessfulRun.Set(o.UnixTime)
}

// RecordDecision records the overall traffic light level for ticker.
func (m *Metrics) RecordDecision(ticker string, level int) {
	if m == nil {
		return
	}
	m.LastDecisionStatus.WithLabelValues(ticker).Set(float64(level))
}

// RecordMarketDataCall records provider call latency.
func (m *Metrics) RecordMarketDataCall(method string, seconds float64) {
	if m == nil {
		return
	}
	m.MarketDataLatency.WithLabelValues(method).Observe(seconds)
}

// RecordFallback records an input resolved from defaults.
func (m *Metrics) RecordFallback(input string) {
	if m == nil {
		return
	}
	m.MarketDataFallback.WithLabelValues(input).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
