package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// RPC error code a quote server uses for tickers it does not cover.
const codeUnknownTicker = -32004

// HTTPProvider implements Provider against a JSON-RPC 2.0 quote service.
//
// Methods used: getQuote, getDividendYield, getImpliedVolatility,
// getPriceHistory, getIssuerProfile, getBenchmarkRate.
type HTTPProvider struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	lookback    int
	requestID   atomic.Uint64
}

// HTTPOption configures HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) HTTPOption {
	return func(p *HTTPProvider) {
		p.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// WithVolatilityLookback sets how many closes feed the historical volatility fallback.
func WithVolatilityLookback(n int) HTTPOption {
	return func(p *HTTPProvider) {
		p.lookback = n
	}
}

// NewHTTPProvider creates a provider for the quote service at endpoint.
func NewHTTPProvider(endpoint string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		lookback:    DefaultVolatilityLookback,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

func (e *rpcError) Unwrap() error {
	if e.Code == codeUnknownTicker {
		return ErrUnknownTicker
	}
	return nil
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (p *HTTPProvider) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      p.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := p.retryDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.backoffMult)
			if delay > p.maxDelay {
				delay = p.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		// RPC errors are not retried
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("%w: max retries exceeded: %v", ErrUnavailable, lastErr)
}

type quoteResult struct {
	Price *float64 `json:"price"`
}

// CurrentPrice returns the latest traded price.
func (p *HTTPProvider) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	var res quoteResult
	if err := p.call(ctx, "getQuote", []interface{}{ticker}, &res); err != nil {
		return 0, err
	}
	if res.Price == nil || *res.Price <= 0 {
		return 0, fmt.Errorf("%w: price for %s", ErrUnavailable, ticker)
	}
	return *res.Price, nil
}

// DividendYield returns the annual yield. Values above 1 are read as percentages.
func (p *HTTPProvider) DividendYield(ctx context.Context, ticker string) (float64, error) {
	var y *float64
	if err := p.call(ctx, "getDividendYield", []interface{}{ticker}, &y); err != nil {
		return 0, err
	}
	if y == nil {
		return 0, nil
	}
	return fromPercent(*y), nil
}

// Volatility prefers implied volatility and falls back to historical
// volatility of recent closes.
func (p *HTTPProvider) Volatility(ctx context.Context, ticker string) (float64, error) {
	var iv *float64
	if err := p.call(ctx, "getImpliedVolatility", []interface{}{ticker}, &iv); err == nil && iv != nil && *iv > 0 {
		return fromPercent(*iv), nil
	} else if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	closes, err := p.PriceHistory(ctx, ticker)
	if err != nil {
		return 0, err
	}
	vol, err := HistoricalVolatility(closes, p.lookback)
	if err != nil {
		return 0, fmt.Errorf("%w: volatility for %s: %v", ErrUnavailable, ticker, err)
	}
	return vol, nil
}

// PriceHistory returns daily closes, oldest first.
func (p *HTTPProvider) PriceHistory(ctx context.Context, ticker string) ([]float64, error) {
	var closes []float64
	if err := p.call(ctx, "getPriceHistory", []interface{}{ticker, p.lookback + 1}, &closes); err != nil {
		return nil, err
	}
	return closes, nil
}

// IssuerProfile returns the fundamentals used by the spread model.
func (p *HTTPProvider) IssuerProfile(ctx context.Context, ticker string) (IssuerProfile, error) {
	var profile IssuerProfile
	if err := p.call(ctx, "getIssuerProfile", []interface{}{ticker}, &profile); err != nil {
		return IssuerProfile{}, err
	}
	return profile, nil
}

// FundingSpread estimates the spread from the issuer profile. A missing
// volatility only drops the volatility adjustment.
func (p *HTTPProvider) FundingSpread(ctx context.Context, ticker string) (float64, error) {
	profile, err := p.IssuerProfile(ctx, ticker)
	if err != nil {
		return 0, err
	}
	vol, err := p.Volatility(ctx, ticker)
	if err != nil {
		vol = 0
	}
	return EstimateFundingSpread(profile, vol), nil
}

// BenchmarkRate returns the annual risk-free rate. Values above 1 are read as percentages.
func (p *HTTPProvider) BenchmarkRate(ctx context.Context) (float64, error) {
	var r *float64
	if err := p.call(ctx, "getBenchmarkRate", nil, &r); err != nil {
		return 0, err
	}
	if r == nil {
		return 0, fmt.Errorf("%w: benchmark rate", ErrUnavailable)
	}
	return fromPercent(*r), nil
}

func fromPercent(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}
