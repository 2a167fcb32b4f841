// Package stream maintains the subscription to the NEAR event stream. It owns
// at most one live connection, re-sends the handshake on every connect and
// reconnects whenever the connection closes.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"burrowfeed/internal/metrics"
	"burrowfeed/internal/model"
	"burrowfeed/internal/visibility"
)

// Handler receives each decoded batch in arrival order. It is never called
// concurrently and never called for a connection that has been superseded.
// It must not call Resubscribe.
type Handler func(batch []model.RawEvent)

// Client is a reconnecting event stream subscriber.
type Client struct {
	cfg     Config
	handler Handler
	vis     visibility.Source
	logger  *zap.Logger
	metrics *metrics.Metrics
	dialer  *websocket.Dialer

	state atomic.Int32

	mu     sync.Mutex
	conn   *websocket.Conn
	gen    uint64
	filter model.Filter

	// dispatchMu serializes handler calls with Resubscribe.
	dispatchMu sync.Mutex

	// retry is only touched by the Run goroutine.
	retry *time.Timer
}

// Option customizes a Client.
type Option func(*Client)

func WithVisibility(v visibility.Source) Option {
	return func(c *Client) { c.vis = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client that subscribes with filter and delivers batches to handler.
func New(cfg Config, filter model.Filter, handler Handler, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg.withDefaults(),
		handler: handler,
		filter:  filter,
		vis:     visibility.Always{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewUnregistered()
	}
	c.dialer = &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.metrics.ConnectionState.Set(float64(s))
	c.logger.Debug("stream state", zap.Stringer("state", s))
}

// Filter returns the filter sent with the next handshake.
func (c *Client) Filter() model.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Resubscribe replaces the filter and closes the live connection, which makes
// Run reconnect with the new handshake. afterClose, when set, runs once the
// old connection is closed and before any batch of the next connection is
// dispatched. When Resubscribe returns, no batch from the old connection is
// being dispatched or will be dispatched later.
func (c *Client) Resubscribe(filter model.Filter, afterClose func()) {
	c.mu.Lock()
	c.filter = filter
	c.gen++
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		c.closeConn(conn)
	}

	// holding dispatchMu waits out a dispatch that passed the generation
	// check before the bump
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if afterClose != nil {
		afterClose()
	}
}

// Run connects and keeps the subscription alive until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		if c.retry != nil {
			c.retry.Stop()
		}
		c.setState(Disconnected)
	}()

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if !c.vis.Visible() {
			c.setState(AwaitingRetry)
			if !c.wait(ctx, c.cfg.HiddenPoll) {
				return nil
			}
			continue
		}

		c.setState(Connecting)
		connID := uuid.NewString()
		conn, gen, filter, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			c.metrics.DialFailures.Inc()
			delay := dialBackoff(failures, c.cfg.DialBackoff, c.cfg.MaxDialBackoff)
			c.logger.Warn("stream dial failed",
				zap.String("url", c.cfg.URL),
				zap.Int("attempt", failures),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			c.setState(AwaitingRetry)
			if !c.wait(ctx, delay) {
				return nil
			}
			continue
		}
		failures = 0
		c.metrics.Connects.Inc()
		c.setState(Connected)

		logger := c.logger.With(zap.String("conn_id", connID))
		logger.Info("stream connected", zap.String("url", c.cfg.URL), zap.Int("filter_clauses", len(filter)))

		err = c.serve(ctx, conn, gen, filter, logger)
		c.detach(conn)
		c.closeConn(conn)
		if ctx.Err() != nil {
			return nil
		}
		logger.Info("stream closed", zap.Error(err), zap.Duration("reconnect_in", c.cfg.ReconnectDelay))

		c.setState(AwaitingRetry)
		if !c.wait(ctx, c.cfg.ReconnectDelay) {
			return nil
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, uint64, model.Filter, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, 0, nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	// The generation and filter are captured together so a Resubscribe that
	// raced the dial is reflected in this handshake.
	c.mu.Lock()
	c.conn = conn
	gen := c.gen
	filter := c.filter
	c.mu.Unlock()
	return conn, gen, filter, nil
}

// detach forgets conn if it is still the live connection.
func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Client) closeConn(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = conn.Close()
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn, gen uint64, filter model.Filter, logger *zap.Logger) error {
	if filter == nil {
		filter = model.Filter{}
	}
	hello := model.Subscribe{
		Secret:          c.cfg.Secret,
		Filter:          filter,
		FetchPastEvents: c.cfg.FetchPastEvents,
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn, done, logger)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.metrics.MessagesReceived.Inc()

		batch, err := DecodeMessage(data)
		if err != nil {
			c.metrics.MalformedDropped.Inc()
			logger.Warn("dropping stream message", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		if !c.dispatch(gen, batch) {
			c.metrics.StaleDropped.Inc()
			return errSuperseded
		}
	}
}

var errSuperseded = errors.New("connection superseded")

func (c *Client) dispatch(gen uint64, batch []model.RawEvent) bool {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if !c.current(gen) {
		return false
	}
	if c.handler != nil {
		c.handler(batch)
	}
	return true
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// wait blocks for d on the client's single retry timer. It reports false when
// ctx is done first.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	if c.retry == nil {
		c.retry = time.NewTimer(d)
	} else {
		if !c.retry.Stop() {
			select {
			case <-c.retry.C:
			default:
			}
		}
		c.retry.Reset(d)
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.retry.C:
		return true
	}
}
