package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordRun(RunOutcome{Ticker: "AAPL", Status: "success", DurationSeconds: 0.2, PathsSimulated: 1000, PathsExcluded: 2, NPVMean: 1234.5, PeakEPE: 99, UnixTime: 1700000000})
	m.RecordRun(RunOutcome{Ticker: "AAPL", Status: "partial", PathsSimulated: 10})
	m.RecordRun(RunOutcome{Ticker: "AAPL", Status: "error"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
	assert.Equal(t, 1010.0, testutil.ToFloat64(m.PathsSimulated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PathsExcluded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartialRuns))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastNPVMean.WithLabelValues("AAPL")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRun(RunOutcome{Status: "success"})
	m.RecordDecision("X", 2)
	m.RecordMarketDataCall("price", 0.1)
	m.RecordFallback("volatility")
	m.RecordDBQuery("postgres", "insert", 0.01, errors.New("boom"))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordDBQuery("postgres", "insert_run", 0.01, errors.New("boom"))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `test_database_query_errors_total{database="postgres",operation="insert_run"} 1`))
}
