package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronologos/roomwatch/internal/config"
	"github.com/chronologos/roomwatch/internal/monitor"
	"github.com/chronologos/roomwatch/internal/protocol"
)

// syncBuffer is a bytes.Buffer safe for one writer goroutine and a polling test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runRoot executes the root command with args in the background.
func runRoot(ctx context.Context, args ...string) (out *syncBuffer, errCh <-chan error) {
	out = &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	ch := make(chan error, 1)
	go func() { ch <- cmd.ExecuteContext(ctx) }()
	return out, ch
}

// acceptHandshake accepts one connection and reads its handshake frame.
func acceptHandshake(t *testing.T, ln net.Listener) (net.Conn, protocol.Frame) {
	t.Helper()
	ln.(*net.TCPListener).SetDeadline(time.Now().Add(3 * time.Second))
	conn, err := ln.Accept()
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	f, err := protocol.ReadFrame(conn)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Time{})
	return conn, f
}

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
}

func TestGuardCommandReportsGift(t *testing.T) {
	ln, port := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, errCh := runRoot(ctx, "guard", "23058", "--host", "127.0.0.1", "--port", port, "--uid", "7")

	conn, hs := acceptHandshake(t, ln)
	defer conn.Close()
	assert.JSONEq(t, `{"roomid":23058,"uid":7}`, string(hs.Payload))

	require.NoError(t, protocol.WriteFrame(conn, protocol.OpNotification,
		[]byte(`{"cmd":"NOTICE_MSG","msg_type":3,"real_roomid":23058}`)))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "gift 23058\n")
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("command did not exit after cancel")
	}
}

func TestRaffleCommandExitsWhenAreaChanges(t *testing.T) {
	ln, port := listen(t)
	_, errCh := runRoot(context.Background(), "raffle", "1017", "--area", "3", "--host", "127.0.0.1", "--port", port)

	conn, _ := acceptHandshake(t, ln)
	defer conn.Close()
	require.NoError(t, protocol.WriteFrame(conn, protocol.OpNotification,
		[]byte(`{"cmd":"ROOM_CHANGE","data":{"parent_area_id":9}}`)))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("command did not exit once its only monitor finished")
	}
}

func TestWatchRequiresConfig(t *testing.T) {
	_, errCh := runRoot(context.Background(), "watch")
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config")
}

func TestRoomArgsMustBeNumbers(t *testing.T) {
	_, errCh := runRoot(context.Background(), "guard", "abc")
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"abc"`)
}

func TestBadColorFlag(t *testing.T) {
	_, errCh := runRoot(context.Background(), "guard", "1", "--color", "rainbow")
	assert.Error(t, <-errCh)
}

func TestVersionCommand(t *testing.T) {
	out, errCh := runRoot(context.Background(), "version")
	require.NoError(t, <-errCh)
	assert.True(t, strings.HasPrefix(out.String(), "roomwatch "))
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
uid: 1
server:
  host: file.example
  port: 1000
rooms:
  - id: 5
    kind: raffle
    area: 2
`), 0o600))

	root := newRootCmd()
	watch, _, err := root.Find([]string{"watch"})
	require.NoError(t, err)

	var gf globalFlags
	gf.configPath = path
	gf.port = 2000
	gf.color = "never"
	require.NoError(t, watch.InheritedFlags().Set("port", "2000"))

	cfg, err := loadConfig(watch, &gf)
	require.NoError(t, err)
	assert.Equal(t, "file.example", cfg.Server.Host, "unset flag keeps file value")
	assert.Equal(t, 2000, cfg.Server.Port, "set flag overrides file value")
	assert.Equal(t, int64(1), cfg.UID)
	assert.Equal(t, []config.Room{{ID: 5, Kind: monitor.KindRaffle, Area: 2}}, cfg.Rooms)
	require.NotNil(t, cfg.Log.Color)
	assert.False(t, *cfg.Log.Color)
}

func TestParseRooms(t *testing.T) {
	rooms, err := parseRooms([]string{"1", "22"}, monitor.KindRaffle, 4)
	require.NoError(t, err)
	assert.Equal(t, []config.Room{
		{ID: 1, Kind: monitor.KindRaffle, Area: 4},
		{ID: 22, Kind: monitor.KindRaffle, Area: 4},
	}, rooms)
}
