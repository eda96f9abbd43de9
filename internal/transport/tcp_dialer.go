package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultKeepAlive is the TCP keepalive period used when none is given.
const DefaultKeepAlive = 15 * time.Second

// Dial opens a plain TCP connection to the broadcast server with TCP
// keepalive enabled. ctx bounds the connect phase only.
func Dial(ctx context.Context, host string, port int, keepAlive time.Duration) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	dialer := &net.Dialer{KeepAlive: keepAlive}

	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("TCP dial %s: %w", addr, err)
	}
	return NewConn(raw), nil
}
