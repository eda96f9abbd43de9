package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/chronologos/roomwatch/internal/monitor"
	"github.com/chronologos/roomwatch/internal/protocol"
	"github.com/chronologos/roomwatch/internal/transport"
)

// closeReason describes why a connection ended.
type closeReason string

const (
	reasonCaller closeReason = "caller" // Close or ctx cancellation
	reasonPolicy closeReason = "policy" // interpreter returned ActionClose
	reasonSocket closeReason = "socket" // read/write error or EOF
	reasonIdle   closeReason = "idle"   // liveness watchdog
	reasonDecode closeReason = "decode" // corrupt frame stream
	reasonForced closeReason = "forced" // Reconnect
)

// terminal reports whether the client stops instead of reconnecting.
func (r closeReason) terminal() bool {
	return r == reasonCaller || r == reasonPolicy
}

// session is the state of one TCP connection. It lives on the run goroutine.
type session struct {
	conn      *transport.Conn
	dec       *protocol.Decoder
	heartbeat *time.Ticker // nil until the first heartbeat ack
	lastRead  time.Time
	log       *slog.Logger
}

// heartbeatC returns the heartbeat tick channel, or nil (blocks forever in
// select) while no heartbeat timer is running.
func (s *session) heartbeatC() <-chan time.Time {
	if s.heartbeat == nil {
		return nil
	}
	return s.heartbeat.C
}

// close stops the heartbeat timer and releases the socket.
func (s *session) close() {
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// serve runs one connection from handshake to close.
func (c *Client) serve(ctx context.Context, conn *transport.Conn) closeReason {
	id := uuid.NewString()
	s := &session{
		conn:     conn,
		dec:      protocol.NewDecoder(),
		lastRead: time.Now(),
		log:      c.log.With("conn_id", id),
	}

	c.mu.Lock()
	c.connID = id
	c.mu.Unlock()
	c.connects.Add(1)

	// A Reconnect aimed at the previous connection must not drop this one.
	select {
	case <-c.forceCh:
	default:
	}
	c.setState(Connected)
	c.metrics.Connected(c.kind)
	s.log.Debug("connected", "addr", conn.RemoteAddr())

	reason := c.ioLoop(ctx, s)

	c.setState(Closing)
	s.close()
	c.metrics.Disconnected(c.kind, string(reason))
	if reason.terminal() {
		s.log.Debug("connection closed", "reason", reason)
	} else {
		s.log.Info("lost connection", "reason", reason)
	}
	return reason
}

// readResult carries bytes or a terminal error from the socket reader.
type readResult struct {
	data []byte
	err  error
}

// ioLoop is the per-connection event loop. Socket reads, timer ticks and
// close requests are handled one at a time, in arrival order.
func (c *Client) ioLoop(ctx context.Context, s *session) closeReason {
	if err := s.conn.WriteFrame(c.handshake, c.cfg.WriteTimeout); err != nil {
		s.log.Warn("handshake failed", "err", err)
		return reasonSocket
	}

	watchdog := time.NewTicker(c.cfg.WatchdogInterval)
	defer watchdog.Stop()

	readCh := make(chan readResult, 16)
	stop := make(chan struct{})
	defer close(stop)
	go readLoop(s.conn, readCh, stop)

	for {
		select {
		case <-ctx.Done():
			return reasonCaller

		case <-c.forceCh:
			return reasonForced

		case res := <-readCh:
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					s.log.Debug("server closed connection")
				} else {
					s.log.Warn("socket error", "err", res.err)
				}
				return reasonSocket
			}
			s.lastRead = time.Now()
			c.mu.Lock()
			c.lastRead = s.lastRead
			c.mu.Unlock()

			s.dec.Feed(res.data)
			for {
				f, ok, err := s.dec.Next()
				if err != nil {
					c.metrics.DecodeError("frame")
					s.log.Warn("frame decode failed, reconnecting", "err", err, "buffered", s.dec.Buffered())
					return reasonDecode
				}
				if !ok {
					break
				}
				if c.dispatch(s, f) == monitor.ActionClose {
					return reasonPolicy
				}
			}

		case <-s.heartbeatC():
			if err := s.conn.WriteFrame(c.heartbeat, c.cfg.WriteTimeout); err != nil {
				s.log.Warn("heartbeat failed", "err", err)
				return reasonSocket
			}

		case <-watchdog.C:
			if idle := time.Since(s.lastRead); idle > c.cfg.IdleTimeout {
				s.log.Warn("no data received, reconnecting", "idle", idle)
				return reasonIdle
			}
		}
	}
}

// readLoop copies socket reads to ch until the socket fails or stop closes.
func readLoop(conn *transport.Conn, ch chan<- readResult, stop <-chan struct{}) {
	buf := make([]byte, readBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case ch <- readResult{data: data}:
			case <-stop:
				return
			}
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case ch <- readResult{err: err}:
			case <-stop:
			}
			return
		}
	}
}
