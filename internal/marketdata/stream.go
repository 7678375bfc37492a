package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trs-pricer/internal/logging"
)

// StreamConfig configures QuoteStream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

type streamQuote struct {
	price float64
	at    time.Time
}

// QuoteStream keeps the latest pushed price per ticker from a websocket
// quote feed, reconnecting and resubscribing on failure.
type QuoteStream struct {
	endpoint string
	tickers  []string
	config   StreamConfig
	logger   *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	prices   map[string]streamQuote
	pricesMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup
}

type streamRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type streamMessage struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type quoteNotification struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}

// DialQuoteStream connects to endpoint and subscribes to tickers.
func DialQuoteStream(ctx context.Context, endpoint string, tickers []string, config *StreamConfig, logger *zap.Logger) (*QuoteStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	upper := make([]string, len(tickers))
	for i, t := range tickers {
		upper[i] = strings.ToUpper(t)
	}

	s := &QuoteStream{
		endpoint: endpoint,
		tickers:  upper,
		config:   cfg,
		logger:   logging.OrNop(logger),
		prices:   make(map[string]streamQuote),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.closeConn()
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

func (s *QuoteStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

func (s *QuoteStream) subscribe() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	params := make([]interface{}, len(s.tickers))
	for i, t := range s.tickers {
		params[i] = t
	}
	req := streamRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "quotesSubscribe",
		Params:  params,
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

func (s *QuoteStream) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// Latest returns the most recent price pushed for ticker and when it arrived.
func (s *QuoteStream) Latest(ticker string) (float64, time.Time, bool) {
	s.pricesMu.RLock()
	q, ok := s.prices[strings.ToUpper(ticker)]
	s.pricesMu.RUnlock()
	return q.price, q.at, ok
}

// Close closes the stream. It is safe to call more than once.
func (s *QuoteStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *QuoteStream) readLoop() {
	defer s.wg.Done()

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Warn("quote stream read failed", zap.String("endpoint", s.endpoint), zap.Error(err))
			s.closeConn()
			continue
		}

		s.handleMessage(message)
	}
}

// reconnect retries with exponential backoff until connected or closed.
// It reports false once the stream is closed.
func (s *QuoteStream) reconnect() bool {
	delay := s.config.ReconnectDelay
	for {
		select {
		case <-s.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.HandshakeTimeout)
		err := s.connect(ctx)
		cancel()
		if err == nil {
			if err = s.subscribe(); err == nil {
				s.logger.Info("quote stream reconnected", zap.String("endpoint", s.endpoint))
				return true
			}
			s.closeConn()
		}
		s.logger.Debug("quote stream reconnect failed", zap.Duration("delay", delay), zap.Error(err))

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

func (s *QuoteStream) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Method != "quoteNotification" {
		return
	}

	var n quoteNotification
	if err := json.Unmarshal(msg.Params, &n); err != nil {
		return
	}
	if n.Ticker == "" || !(n.Price > 0) {
		return
	}

	s.pricesMu.Lock()
	s.prices[strings.ToUpper(n.Ticker)] = streamQuote{price: n.Price, at: time.Now()}
	s.pricesMu.Unlock()
}

// PriceSource reports the latest known price for a ticker.
type PriceSource interface {
	Latest(ticker string) (price float64, at time.Time, ok bool)
}

// StreamingProvider serves CurrentPrice from a PriceSource while its quote
// is fresh and delegates everything else to the wrapped Provider.
type StreamingProvider struct {
	Provider
	source PriceSource
	maxAge time.Duration
	now    func() time.Time
}

// NewStreamingProvider wraps inner, which must not be nil. A maxAge <= 0
// accepts streamed prices of any age.
func NewStreamingProvider(inner Provider, source PriceSource, maxAge time.Duration) *StreamingProvider {
	return &StreamingProvider{
		Provider: inner,
		source:   source,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

func (p *StreamingProvider) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	if price, at, ok := p.source.Latest(ticker); ok {
		if p.maxAge <= 0 || p.now().Sub(at) <= p.maxAge {
			return price, nil
		}
	}
	return p.Provider.CurrentPrice(ctx, ticker)
}
