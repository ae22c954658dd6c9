package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/logging"
	"github.com/litescript/ls-meteors/internal/metrics"
)

// Config configures the channel client.
type Config struct {
	// SendBuffer is the number of outbound events queued before new ones are dropped.
	SendBuffer int
	// PayloadBuffer is the number of inbound payloads queued for the consumer.
	// When full, the oldest queued payload is discarded.
	PayloadBuffer int
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential reconnect backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval between ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long the connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns default channel configuration.
func DefaultConfig() Config {
	return Config{
		SendBuffer:        64,
		PayloadBuffer:     8,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// StatusFunc is called whenever the connection comes up or goes down.
// err is the reason for a disconnect or failed dial, if any.
type StatusFunc func(connected bool, err error)

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithStatus registers a connection status callback.
func WithStatus(fn StatusFunc) Option {
	return func(c *Client) {
		c.status = fn
	}
}

// Client is a reconnecting WebSocket channel to the analytics process.
// Outbound events are fire-and-forget: Emit never blocks, and events that
// cannot be queued are dropped.
type Client struct {
	url     string
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.Collector
	status  StatusFunc

	out      chan Envelope
	payloads chan analytics.Payload

	connected atomic.Bool
	started   atomic.Bool
	closed    atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a client for the given ws:// or wss:// URL. Call Start
// to connect.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		cfg:    DefaultConfig(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.SendBuffer <= 0 {
		c.cfg.SendBuffer = 1
	}
	if c.cfg.PayloadBuffer <= 0 {
		c.cfg.PayloadBuffer = 1
	}

	c.out = make(chan Envelope, c.cfg.SendBuffer)
	c.payloads = make(chan analytics.Payload, c.cfg.PayloadBuffer)
	return c
}

// Start connects in the background and keeps reconnecting until ctx is
// cancelled or Close is called.
func (c *Client) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run(ctx)
}

// Close stops the client and closes the Payloads channel. Safe to call more
// than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	close(c.payloads)
	return nil
}

// Payloads delivers decoded graph_data payloads.
func (c *Client) Payloads() <-chan analytics.Payload {
	return c.payloads
}

// Connected reports whether the channel is currently up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// URL returns the analytics endpoint.
func (c *Client) URL() string {
	return c.url
}

// EmitMeteorInRegion sends a meteor_in_region event.
func (c *Client) EmitMeteorInRegion(count int) {
	env, err := NewEnvelope(EventMeteorInRegion, MeteorInRegion{Count: count})
	if err != nil {
		c.logger.Warn("drop event", "event", EventMeteorInRegion, "error", err)
		c.metrics.IncDropped(EventMeteorInRegion)
		return
	}
	c.Emit(env)
}

// RequestGraphData sends a get_graph_data event.
func (c *Client) RequestGraphData() {
	c.Emit(Envelope{Event: EventGetGraphData})
}

// Emit queues an envelope without blocking. It is dropped when the channel
// is down or the send buffer is full.
func (c *Client) Emit(env Envelope) {
	if c.closed.Load() || !c.connected.Load() {
		c.metrics.IncDropped(env.Event)
		c.logger.Debug("drop event, channel down", "event", env.Event)
		return
	}

	select {
	case c.out <- env:
		c.metrics.IncEvent(env.Event)
	default:
		c.metrics.IncDropped(env.Event)
		c.logger.Debug("drop event, send buffer full", "event", env.Event)
	}
}

// run owns the connection lifecycle: dial, serve, back off, repeat.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	delay := c.cfg.ReconnectDelay
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("analytics channel dial failed", "url", c.url, "error", err, "retry_in", delay)
			c.notify(false, err)
		} else {
			delay = c.cfg.ReconnectDelay
			err = c.serve(ctx, conn)
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("analytics channel lost", "url", c.url, "error", err, "retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// serve runs one connection until it fails or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.connected.Store(true)
	c.metrics.SetConnected(true)
	c.notify(true, nil)
	c.logger.Info("analytics channel connected", "url", c.url)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writeLoop(connCtx, conn)
	}()

	err := c.readLoop(conn)

	c.connected.Store(false)
	c.metrics.SetConnected(false)
	cancel()
	<-writeDone
	_ = conn.Close()

	if ctx.Err() == nil {
		c.notify(false, err)
	}
	return err
}

// writeLoop is the connection's only writer. It closes the connection on
// exit, which also unblocks readLoop.
func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case env := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteJSON(env); err != nil {
				// No retry: the event is lost and the reader notices the broken connection.
				c.metrics.IncDropped(env.Event)
				c.logger.Debug("write failed", "event", env.Event, "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop decodes inbound frames until the connection fails.
func (c *Client) readLoop(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("closed by peer")
			}
			return fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.handleMessage(message)
	}
}

// handleMessage dispatches one inbound frame. Malformed frames are dropped.
func (c *Client) handleMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.metrics.IncPayload(metrics.ResultInvalid)
		c.logger.Warn("drop malformed frame", "error", err)
		return
	}

	if env.Event != EventGraphData {
		c.logger.Debug("ignore event", "event", env.Event)
		return
	}

	payload, err := analytics.DecodePayload(env.Data)
	if err != nil {
		c.metrics.IncPayload(metrics.ResultInvalid)
		c.logger.Warn("drop graph_data", "error", err)
		return
	}

	c.deliver(payload)
}

// deliver queues a payload for the consumer, discarding the oldest queued
// payload when the buffer is full. readLoop is the only producer.
func (c *Client) deliver(p analytics.Payload) {
	select {
	case c.payloads <- p:
		return
	default:
	}

	select {
	case <-c.payloads:
		c.logger.Debug("consumer behind, discarded oldest payload")
	default:
	}
	select {
	case c.payloads <- p:
	default:
	}
}

func (c *Client) notify(connected bool, err error) {
	if c.status != nil {
		c.status(connected, err)
	}
}
