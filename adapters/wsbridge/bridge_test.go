//go:build !windows
// +build !windows

package wsbridge

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zhiburt/ptyprocess"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestServer spawns a cat child, bridges it and serves it over a test
// WebSocket endpoint.
func newTestServer(t *testing.T) (*Bridge, *httptest.Server) {
	t.Helper()

	proc, err := ptyprocess.Spawn(ptyprocess.NewStartOptions("cat"))
	require.NoError(t, err)
	t.Cleanup(func() { proc.Close() })

	bridge, err := New(proc, 0)
	require.NoError(t, err)
	t.Cleanup(func() { bridge.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		bridge.ServeConn(conn)
	}))
	t.Cleanup(srv.Close)

	return bridge, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads frames until one of the wanted types arrives.
func readMessage(t *testing.T, conn *websocket.Conn, types ...string) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		for _, want := range types {
			if msg.Type == want {
				return msg
			}
		}
	}
}

// TestBridgeStdinStdout pushes input through the socket and reads the
// child's output back.
func TestBridgeStdinStdout(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeStdin, Data: "hi\n"}))

	msg := readMessage(t, conn, TypeStdout)
	require.Contains(t, msg.Data, "hi\r\n")
}

// TestBridgeHistoryReplay verifies a late joiner receives output produced
// before it connected.
func TestBridgeHistoryReplay(t *testing.T) {
	bridge, srv := newTestServer(t)

	first := dial(t, srv)
	require.NoError(t, first.WriteJSON(Message{Type: TypeStdin, Data: "early\n"}))
	readMessage(t, first, TypeStdout)

	// The replay buffer now holds the output.
	require.Contains(t, string(bridge.History()), "early\r\n")

	second := dial(t, srv)
	msg := readMessage(t, second, TypeHistory)
	require.Contains(t, msg.Data, "early\r\n")
}

// TestBridgePing answers a ping with a pong.
func TestBridgePing(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	readMessage(t, conn, TypePong)
}

// TestBridgeExitNotification reports the child's exit to clients.
func TestBridgeExitNotification(t *testing.T) {
	proc, err := ptyprocess.Spawn(ptyprocess.NewStartOptions("cat"))
	require.NoError(t, err)
	defer proc.Close()

	bridge, err := New(proc, 0)
	require.NoError(t, err)
	defer bridge.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		bridge.ServeConn(conn)
	}))
	defer srv.Close()

	conn := dial(t, srv)

	require.NoError(t, proc.SendControl('d'))

	msg := readMessage(t, conn, TypeExit)
	require.NotNil(t, msg.Code)
	require.Equal(t, 0, *msg.Code)

	select {
	case <-bridge.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge read loop did not finish after child exit")
	}
}
