package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chronologos/roomwatch/internal/logging"
	"github.com/chronologos/roomwatch/internal/metrics"
	"github.com/chronologos/roomwatch/internal/monitor"
	"github.com/chronologos/roomwatch/internal/protocol"
	"github.com/chronologos/roomwatch/internal/transport"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultWatchdogInterval  = 45 * time.Second
	defaultIdleTimeout       = 35 * time.Second
	defaultDialTimeout       = 10 * time.Second
	defaultDialRetryDelay    = 1 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	readBufSize              = 16 * 1024
)

// Config holds client configuration. Zero durations take the defaults above,
// except ReconnectDelay where zero means reconnect immediately.
type Config struct {
	Host   string
	Port   int
	RoomID int64
	UID    int64

	HeartbeatInterval time.Duration // heartbeat send period, after the first ack
	WatchdogInterval  time.Duration // liveness check period
	IdleTimeout       time.Duration // silence that forces a reconnect
	DialTimeout       time.Duration
	DialRetryDelay    time.Duration // wait after a failed dial
	ReconnectDelay    time.Duration // wait after losing an established connection
	WriteTimeout      time.Duration
	KeepAlive         time.Duration // TCP keepalive period
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = defaultWatchdogInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.DialRetryDelay <= 0 {
		c.DialRetryDelay = defaultDialRetryDelay
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.ReconnectDelay < 0 {
		c.ReconnectDelay = 0
	}
	return c
}

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Client keeps one room connection alive: it dials, handshakes, sends
// heartbeats, decodes frames, hands notifications to its Interpreter and
// reconnects whenever the connection drops for any reason other than Close
// or an interpreter's ActionClose.
type Client struct {
	cfg     Config
	interp  monitor.Interpreter
	kind    string
	log     *slog.Logger
	metrics *metrics.Metrics

	handshake []byte // pre-built OpHandshake frame
	heartbeat []byte // pre-built OpHeartbeat frame

	startOnce sync.Once
	closeOnce sync.Once
	closeCh   chan struct{}
	forceCh   chan struct{} // Reconnect requests, capacity 1
	done      chan int64

	state    atomic.Int32
	connects atomic.Int64

	mu       sync.Mutex // guards connID, lastRead
	connID   string
	lastRead time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client's logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records connection metrics to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for cfg.RoomID driven by interp.
func New(cfg Config, interp monitor.Interpreter, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	if interp == nil {
		interp = monitor.Base{}
	}
	c := &Client{
		cfg:       cfg,
		interp:    interp,
		kind:      string(monitor.KindOf(interp)),
		log:       logging.Discard(),
		handshake: protocol.Encode(protocol.OpHandshake, protocol.HandshakePayload(cfg.RoomID, cfg.UID)),
		heartbeat: protocol.Encode(protocol.OpHeartbeat, nil),
		closeCh:   make(chan struct{}),
		forceCh:   make(chan struct{}, 1),
		done:      make(chan int64, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "client", "room", cfg.RoomID, "kind", c.kind)
	return c
}

// RoomID returns the watched room.
func (c *Client) RoomID() int64 { return c.cfg.RoomID }

// Connect starts the connection loop in the background and returns the
// completion channel. The room id is sent on it exactly once, when the client
// stops for good (Close, ctx cancellation, or ActionClose); the channel is
// then closed. Internal reconnects never signal it. Later calls return the
// same channel without starting a second loop.
func (c *Client) Connect(ctx context.Context) <-chan int64 {
	c.startOnce.Do(func() {
		go c.run(ctx)
	})
	return c.done
}

// Close stops the client without reconnecting. Safe to call from any
// goroutine, more than once, and before or after Connect.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
}

// Reconnect drops the current connection as if it had failed. The client
// reconnects once, as for any other connection loss. It is a no-op while no
// connection is up.
func (c *Client) Reconnect() {
	if c.State() != Connected {
		return
	}
	select {
	case c.forceCh <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// Status is a point-in-time snapshot for status pages.
type Status struct {
	RoomID   int64     `json:"room_id"`
	Kind     string    `json:"kind"`
	State    string    `json:"state"`
	Connects int64     `json:"connects"`
	ConnID   string    `json:"conn_id,omitempty"`
	LastRead time.Time `json:"last_read,omitzero"`
}

// Status returns a snapshot of the client.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		RoomID:   c.cfg.RoomID,
		Kind:     c.kind,
		State:    c.State().String(),
		Connects: c.connects.Load(),
		ConnID:   c.connID,
		LastRead: c.lastRead,
	}
}

// run is the client's main loop. It owns every socket and timer; nothing
// else touches them.
func (c *Client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() {
		select {
		case <-c.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	defer func() {
		c.setState(Disconnected)
		c.done <- c.cfg.RoomID
		close(c.done)
	}()

	for {
		if c.closed() || ctx.Err() != nil {
			return
		}

		c.setState(Connecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.metrics.DialFailed(c.kind)
			c.log.Warn("connect failed, retrying", "err", err, "delay", c.cfg.DialRetryDelay)
			if !sleep(ctx, c.cfg.DialRetryDelay) {
				return
			}
			continue
		}

		reason := c.serve(ctx, conn)
		if reason.terminal() {
			return
		}
		if c.cfg.ReconnectDelay > 0 {
			c.log.Info("reconnecting", "reason", reason, "delay", c.cfg.ReconnectDelay)
		} else {
			c.log.Info("reconnecting", "reason", reason)
		}
		if !sleep(ctx, c.cfg.ReconnectDelay) {
			return
		}
	}
}

// closed reports whether Close has been called.
func (c *Client) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

func (c *Client) dial(ctx context.Context) (*transport.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	return transport.Dial(dialCtx, c.cfg.Host, c.cfg.Port, c.cfg.KeepAlive)
}

// sleep waits for d or until ctx is done. Reports whether the caller should
// keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
