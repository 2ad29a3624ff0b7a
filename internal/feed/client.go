package feed

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/intraday-pulse/pulse/internal/hub"
	"github.com/intraday-pulse/pulse/internal/market"
)

// Connection states.
const (
	StateDisconnected int32 = iota
	StateConnecting
	StateConnected
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
)

// Config holds feed client settings.
type Config struct {
	// URL is the provider websocket endpoint.
	URL string

	// AuthToken is sent as the Authorization header on dial.
	AuthToken string

	// ReconnectDelay is the fixed wait before the single reconnect attempt
	// that follows a connection failure.
	ReconnectDelay time.Duration
}

// Client ingests the upstream price feed: it dials the provider, subscribes
// once per connection, normalizes ticks into the price store, and signals
// the hub. A failed connection schedules exactly one reconnect attempt after
// the configured delay.
type Client struct {
	cfg     Config
	symbols []string
	session *market.Session
	store   *market.PriceStore
	hub     *hub.Hub
	journal *Journal
	logger  *logrus.Logger

	state atomic.Int32
	now   func() time.Time

	// dial is swappable for tests.
	dial func() (*websocket.Conn, error)
}

// NewClient creates a feed client for the given canonical symbols. journal
// may be nil to disable tick archival.
func NewClient(cfg Config, symbols []string, session *market.Session, store *market.PriceStore,
	h *hub.Hub, journal *Journal, logger *logrus.Logger) *Client {

	c := &Client{
		cfg:     cfg,
		symbols: symbols,
		session: session,
		store:   store,
		hub:     h,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
	c.dial = c.dialProvider
	return c
}

func (c *Client) dialProvider() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	header := http.Header{}
	if c.cfg.AuthToken != "" {
		header.Set("Authorization", c.cfg.AuthToken)
	}

	conn, _, err := dialer.Dial(c.cfg.URL, header)
	return conn, err
}

// IsConnected reports whether the client currently holds a live connection.
func (c *Client) IsConnected() bool {
	return c.state.Load() == StateConnected
}

// State returns the current connection state for status reporting.
func (c *Client) State() int32 {
	return c.state.Load()
}

// Run drives the connection state machine until ctx is cancelled. Each
// connection failure transitions to Disconnected and schedules a single
// reconnect after the fixed delay; resubscription is idempotent.
func (c *Client) Run(ctx context.Context) {
	for {
		c.state.Store(StateConnecting)
		conn, err := c.dial()
		if err != nil {
			c.state.Store(StateDisconnected)
			c.logger.Errorf("Feed connect failed: %v. Reconnecting in %v...", err, c.cfg.ReconnectDelay)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		err = c.handleConnection(ctx, conn)
		c.state.Store(StateDisconnected)

		if ctx.Err() != nil {
			return
		}

		c.logger.Errorf("Feed connection lost: %v. Reconnecting in %v...", err, c.cfg.ReconnectDelay)
		if !c.sleep(ctx) {
			return
		}
	}
}

// sleep waits out the reconnect delay. Returns false when ctx was cancelled.
func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cfg.ReconnectDelay):
		return true
	}
}

// handleConnection owns one connection: subscribe, then read until failure
// or shutdown. On shutdown it sends a close frame rather than dropping the
// socket.
func (c *Client) handleConnection(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	if err := c.subscribe(conn); err != nil {
		return err
	}

	c.state.Store(StateConnected)
	c.logger.Infof("Feed connected, subscribed to %v", c.symbols)

	readErr := make(chan error, 1)
	messages := make(chan []byte, 100)

	go func() {
		for {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case messages <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutting down feed connection")
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			return ctx.Err()

		case err := <-readErr:
			return err

		case raw := <-messages:
			c.handleMessage(raw)
		}
	}
}

func (c *Client) subscribe(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(newSubscribeMessage(c.symbols))
}

// handleMessage normalizes one inbound message. Malformed messages are
// logged and skipped; they never terminate the connection loop.
func (c *Client) handleMessage(raw []byte) {
	tick, ok, err := parseTick(raw)
	if err != nil {
		c.logger.Errorf("Skipping malformed feed message: %v", err)
		return
	}
	if !ok {
		return
	}

	canonical, mapped := ToCanonical(tick.ProviderSymbol)
	if !mapped {
		return
	}

	now := c.now()
	if !c.session.IsOpen(now) {
		c.logger.Debugf("Market closed, dropping tick for %s", canonical)
		return
	}

	ohlc := market.OHLC{
		Open:   tick.Open,
		High:   tick.High,
		Low:    tick.Low,
		Close:  tick.Last,
		Volume: tick.Volume,
	}
	entry := c.store.Upsert(canonical, tick.Last, ohlc, now, true)

	c.hub.Publish(hub.Event{
		Type:   hub.EventPriceUpdate,
		Symbol: canonical,
		Data: map[string]any{
			"symbol":        entry.Symbol,
			"price":         entry.Price,
			"change":        entry.Change,
			"changePercent": entry.ChangePercent,
			"ohlc":          entry.OHLC,
			"timestamp":     entry.Timestamp,
		},
	})

	if c.journal != nil {
		if err := c.journal.Publish(canonical, tick, now); err != nil {
			c.logger.Errorf("Tick journal publish failed for %s: %v", canonical, err)
		}
	}
}
