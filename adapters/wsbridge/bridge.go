// Package wsbridge exposes a pty-attached child over WebSockets.
//
// It is an async adapter in the narrow sense: the core stays a
// file-descriptor-level byte stream, and the bridge pumps that stream into
// a hub of WebSocket clients, replaying recent output to late joiners and
// forwarding their input and resize requests back to the child. Clients
// cannot send signals to the child through the bridge.
package wsbridge

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/zhiburt/ptyprocess"
)

// DefaultReplaySize is the replay buffer capacity in bytes.
const DefaultReplaySize = 64 * 1024

// Message is the wire format exchanged with WebSocket clients.
type Message struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
	Code *int   `json:"code,omitempty"`
}

// Message types.
const (
	// Client -> bridge.
	TypeStdin  = "stdin"
	TypeResize = "resize"
	TypePing   = "ping"

	// Bridge -> client.
	TypeStdout  = "stdout"
	TypeHistory = "history"
	TypeExit    = "exit"
	TypePong    = "pong"
)

// client is one WebSocket attachment to the bridge.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func (c *client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow consumer; drop the connection rather than the child's
		// output.
		c.closeLocked()
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Bridge fans a child's terminal output out to WebSocket clients and
// feeds their input back into the pty.
type Bridge struct {
	proc   *ptyprocess.PtyProcess
	stream *ptyprocess.Stream
	replay *ReplayBuffer

	mu      sync.RWMutex
	clients map[*client]bool
	done    chan struct{}
}

// New wires a bridge onto a spawned process and starts pumping its
// output. The caller remains the owner of proc; closing the bridge does
// not terminate the child.
func New(proc *ptyprocess.PtyProcess, replaySize int) (*Bridge, error) {
	if replaySize <= 0 {
		replaySize = DefaultReplaySize
	}
	stream, err := proc.GetStream()
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		proc:    proc,
		stream:  stream,
		replay:  NewReplayBuffer(replaySize),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	return b, nil
}

// Done is closed once the child's output stream has ended.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// History returns the replayable output collected so far.
func (b *Bridge) History() []byte {
	return b.replay.Bytes()
}

// readLoop pumps the pty master into the replay buffer and the clients.
func (b *Bridge) readLoop() {
	defer close(b.done)

	buf := make([]byte, 4096)
	for {
		n, err := b.stream.Read(buf)
		if n > 0 {
			data := buf[:n]
			b.replay.Write(data)
			b.broadcast(Message{Type: TypeStdout, Data: string(data)})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.announceExit()
			}
			return
		}
	}
}

// announceExit reaps the child and tells every client how it ended.
func (b *Bridge) announceExit() {
	msg := Message{Type: TypeExit}
	if st, err := b.proc.Wait(); err == nil && st.Kind == ptyprocess.StatusExited {
		code := st.ExitCode
		msg.Code = &code
	}
	b.broadcast(msg)
}

func (b *Bridge) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		c.enqueue(data)
	}
}

// ServeConn attaches a WebSocket connection to the bridge and blocks
// until the peer disconnects. Recent output is replayed first.
func (b *Bridge) ServeConn(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 256)}

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
		c.close()
		conn.Close()
	}()

	if history := b.replay.Bytes(); len(history) > 0 {
		if data, err := json.Marshal(Message{Type: TypeHistory, Data: string(history)}); err == nil {
			c.enqueue(data)
		}
	}

	go func() {
		for data := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		b.handleMessage(c, &msg)
	}
}

// handleMessage applies one client message to the child.
func (b *Bridge) handleMessage(c *client, msg *Message) {
	switch msg.Type {
	case TypeStdin:
		b.proc.Send([]byte(msg.Data))
	case TypeResize:
		if msg.Rows > 0 && msg.Cols > 0 {
			b.proc.SetWindowSize(ptyprocess.WindowSize{Rows: msg.Rows, Cols: msg.Cols})
		}
	case TypePing:
		if data, err := json.Marshal(Message{Type: TypePong}); err == nil {
			c.enqueue(data)
		}
	}
}

// ClientCount returns the number of attached clients.
func (b *Bridge) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close detaches every client and releases the bridge's stream. The child
// itself is left to its owner.
func (b *Bridge) Close() error {
	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.clients = make(map[*client]bool)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
		c.conn.Close()
	}
	return b.stream.Close()
}
