package transport

import (
	"net"
	"sync"
	"time"
)

// Conn is one TCP connection to the broadcast server. Reads and writes are
// raw bytes; framing is the caller's job (see protocol.Decoder).
type Conn struct {
	conn      net.Conn
	writeMu   sync.Mutex // serializes frame writes
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an established connection.
func NewConn(c net.Conn) *Conn {
	return &Conn{conn: c}
}

// Read reads raw bytes from the socket.
func (c *Conn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// WriteFrame writes one pre-encoded frame. A zero timeout disables the
// write deadline.
func (c *Conn) WriteFrame(raw []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	_, err := c.conn.Write(raw)
	return err
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the socket, unblocking any pending Read. Safe to call more
// than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
