package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// tickerMessage is the wire format of a live ticker update.
type tickerMessage struct {
	Type   string  `json:"type"`
	Venue  string  `json:"venue"`
	Pair   string  `json:"pair"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume_24h"`
}

// wsCommand is a subscription command sent to the ticker endpoint.
type wsCommand struct {
	Type  string   `json:"type"`
	Pairs []string `json:"pairs"`
}

// TickerFeed is a WebSocket client for live DEX ticker streams. Incoming
// ticks are written straight into the price cache so that HTTP polling and
// the live stream share one view of the market. It manages the connection
// lifecycle and restores subscriptions after a reconnect.
type TickerFeed struct {
	wsURL string
	cache domain.PriceCache
	log   *slog.Logger
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	// done is closed when the feed is shut down.
	done chan struct{}
}

// NewTickerFeed creates a ticker feed for the given WebSocket URL. Ticks are
// written into cache as they arrive.
func NewTickerFeed(wsURL string, cache domain.PriceCache, log *slog.Logger) *TickerFeed {
	return &TickerFeed{
		wsURL: wsURL,
		cache: cache,
		log:   log.With(slog.String("component", "ticker_feed")),
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read loop.
func (t *TickerFeed) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("feed/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, t.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed/ws: connect: %w", err)
	}

	t.conn = conn

	// Set up pong handler for keep-alive.
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go t.readLoop()
	go t.pingLoop()

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range t.subscriptions {
		if err := t.sendCommand(cmd); err != nil {
			return fmt.Errorf("feed/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to ticker updates for the given pairs.
func (t *TickerFeed) Subscribe(ctx context.Context, pairs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return fmt.Errorf("feed/ws: not connected")
	}

	canonical := make([]string, 0, len(pairs))
	for _, p := range pairs {
		canonical = append(canonical, domain.CanonicalPair(p))
	}

	cmd := wsCommand{Type: "subscribe", Pairs: canonical}
	if err := t.sendCommand(cmd); err != nil {
		return fmt.Errorf("feed/ws: subscribe: %w", err)
	}

	// Track subscription for reconnection.
	t.subscriptions = append(t.subscriptions, cmd)
	return nil
}

// Close shuts down the WebSocket connection and stops the read loop.
func (t *TickerFeed) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	close(t.done)

	if t.conn != nil {
		_ = t.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return t.conn.Close()
	}

	return nil
}

// sendCommand sends a JSON command to the WebSocket. Caller must hold t.mu.
func (t *TickerFeed) sendCommand(cmd wsCommand) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads ticker messages and caches them. It runs in
// its own goroutine. On disconnect, it attempts to reconnect with
// exponential backoff.
func (t *TickerFeed) readLoop() {
	defer func() {
		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-t.done:
			return
		default:
		}

		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Check if we've been shut down.
			select {
			case <-t.done:
				return
			default:
			}

			t.log.Warn("ticker stream disconnected", slog.String("error", err.Error()))
			t.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		t.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (t *TickerFeed) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.RLock()
			conn := t.conn
			t.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw message and writes ticker updates into the
// price cache. Unparseable or non-ticker messages are dropped.
func (t *TickerFeed) handleMessage(raw []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Type != "ticker" || msg.Pair == "" || msg.Venue == "" {
		return
	}

	pair := domain.CanonicalPair(msg.Pair)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.cache.SetPrice(ctx, msg.Venue, pair, msg.Price, time.Now().UTC()); err != nil {
		t.log.Warn("cache ticker update failed",
			slog.String("pair", pair),
			slog.String("venue", msg.Venue),
			slog.String("error", err.Error()))
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. It blocks until successful or the feed is closed.
func (t *TickerFeed) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-t.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := t.Connect(ctx)
		cancel()

		if err == nil {
			t.log.Info("ticker stream reconnected")
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
