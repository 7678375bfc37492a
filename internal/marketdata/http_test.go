package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcHandler answers JSON-RPC calls from a method->result table.
func rpcHandler(t *testing.T, results map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch v := results[req.Method].(type) {
		case nil:
			resp["error"] = rpcError{Code: -32601, Message: "method not found"}
		case rpcError:
			resp["error"] = v
		default:
			resp["result"] = v
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestHTTPProvider(url string) *HTTPProvider {
	return NewHTTPProvider(url,
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithMaxRetries(2),
	)
}

func TestHTTPProvider_Quote(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{
		"getQuote":             map[string]float64{"price": 187.5},
		"getDividendYield":     0.52,
		"getImpliedVolatility": 28.0,
		"getBenchmarkRate":     4.25,
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	ctx := context.Background()

	price, err := p.CurrentPrice(ctx, "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 187.5 {
		t.Errorf("price = %v, want 187.5", price)
	}

	y, err := p.DividendYield(ctx, "AAPL")
	if err != nil {
		t.Fatalf("DividendYield: %v", err)
	}
	if y != 0.52 {
		t.Errorf("yield = %v, want 0.52", y)
	}

	vol, err := p.Volatility(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Volatility: %v", err)
	}
	if math.Abs(vol-0.28) > 1e-12 {
		t.Errorf("vol = %v, want 0.28", vol)
	}

	rate, err := p.BenchmarkRate(ctx)
	if err != nil {
		t.Fatalf("BenchmarkRate: %v", err)
	}
	if math.Abs(rate-0.0425) > 1e-12 {
		t.Errorf("rate = %v, want 0.0425", rate)
	}
}

func TestHTTPProvider_VolatilityFallsBackToHistory(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			closes = append(closes, 100)
		} else {
			closes = append(closes, 102)
		}
	}
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{
		"getPriceHistory": closes,
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	vol, err := p.Volatility(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Volatility: %v", err)
	}
	want, _ := HistoricalVolatility(closes, DefaultVolatilityLookback)
	if vol != want || vol <= 0 {
		t.Errorf("vol = %v, want %v", vol, want)
	}
}

func TestHTTPProvider_FundingSpreadFromProfile(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{
		"getIssuerProfile":     map[string]interface{}{"beta": 1.0, "marketCap": 300e9, "sector": "Utilities"},
		"getImpliedVolatility": 0.20,
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	spread, err := p.FundingSpread(context.Background(), "DUK")
	if err != nil {
		t.Fatalf("FundingSpread: %v", err)
	}
	if math.Abs(spread-0.015*0.8*0.85) > 1e-12 {
		t.Errorf("spread = %v, want %v", spread, 0.015*0.8*0.85)
	}
}

func TestHTTPProvider_UnknownTicker(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{
		"getQuote": rpcError{Code: codeUnknownTicker, Message: "unknown symbol"},
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	_, err := p.CurrentPrice(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrUnknownTicker) {
		t.Fatalf("err = %v, want ErrUnknownTicker", err)
	}
}

func TestHTTPProvider_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	ok := rpcHandler(t, map[string]interface{}{"getQuote": map[string]float64{"price": 10}})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		ok(w, r)
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	price, err := p.CurrentPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 10 {
		t.Errorf("price = %v, want 10", price)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestHTTPProvider_MaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	_, err := p.CurrentPrice(context.Background(), "AAPL")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}
