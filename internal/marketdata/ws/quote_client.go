// Package ws implements a streaming quote feed over WebSocket.
// The client keeps the latest quote per subscribed symbol and serves
// it through the marketdata.QuoteSource interface.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/marketdata"
	"quant-model-lab/internal/observability"
)

// Config configures QuoteClient behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfig returns default quote feed configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// QuoteClient maintains a live quote table fed by a WebSocket stream.
// Implements marketdata.QuoteSource over the last observed quotes.
type QuoteClient struct {
	endpoint string
	config   Config

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// latest quote per symbol
	quotes   map[string]domain.Quote
	quotesMu sync.RWMutex

	// symbols to (re)subscribe after connect
	symbols   map[string]struct{}
	symbolsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// Compile-time interface check.
var _ marketdata.QuoteSource = (*QuoteClient)(nil)

// NewQuoteClient creates a quote client and connects to the endpoint.
func NewQuoteClient(ctx context.Context, endpoint string, config *Config) (*QuoteClient, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	c := &QuoteClient{
		endpoint: endpoint,
		config:   cfg,
		quotes:   make(map[string]domain.Quote),
		symbols:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *QuoteClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe adds symbols to the live quote table. Subscriptions
// survive reconnects.
func (c *QuoteClient) Subscribe(symbols ...string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	c.symbolsMu.Lock()
	for _, s := range symbols {
		c.symbols[s] = struct{}{}
	}
	c.symbolsMu.Unlock()

	return c.sendSubscribe(symbols)
}

// sendSubscribe writes a subscribe request for the given symbols.
func (c *QuoteClient) sendSubscribe(symbols []string) error {
	req := wsRequest{
		Type:    "subscribe",
		Symbols: symbols,
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Quote returns the latest streamed quote for symbol.
func (c *QuoteClient) Quote(_ context.Context, symbol string) (*domain.Quote, error) {
	c.quotesMu.RLock()
	q, ok := c.quotes[symbol]
	c.quotesMu.RUnlock()

	if !ok {
		return nil, marketdata.ErrNoData
	}
	quoteCopy := q
	return &quoteCopy, nil
}

// Close closes the WebSocket connection.
func (c *QuoteClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads quote messages and updates the live table.
func (c *QuoteClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *QuoteClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	// Resubscribe to the full symbol set
	c.symbolsMu.Lock()
	symbols := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		symbols = append(symbols, s)
	}
	c.symbolsMu.Unlock()

	if len(symbols) > 0 {
		if err := c.sendSubscribe(symbols); err != nil {
			log.Printf("[ws] resubscribe after reconnect failed: %v", err)
		}
	}
}

// handleMessage processes one incoming message.
func (c *QuoteClient) handleMessage(message []byte) {
	var msg wsQuoteMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "quote" {
		return
	}

	c.quotesMu.Lock()
	c.quotes[msg.Symbol] = domain.Quote{
		Symbol:    msg.Symbol,
		Last:      msg.Last,
		Bid:       msg.Bid,
		Ask:       msg.Ask,
		Timestamp: time.UnixMilli(msg.TimestampMs),
	}
	c.quotesMu.Unlock()

	observability.RecordQuoteReceived()
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *QuoteClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A failed ping means the connection is likely dead;
				// the read loop handles the reconnect.
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

type wsQuoteMessage struct {
	Type        string  `json:"type"`
	Symbol      string  `json:"symbol"`
	Last        float64 `json:"last"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	TimestampMs int64   `json:"ts"`
}
