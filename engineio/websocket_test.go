package engineio

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log15 "github.com/inconshreveable/log15/v3"
)

// echoCallbacks replies to every frame and records lifecycle events
type echoCallbacks struct {
	mu          sync.Mutex
	connected   []Transport
	disconnects int
	gone        chan struct{}
}

func newEchoCallbacks() *echoCallbacks {
	return &echoCallbacks{gone: make(chan struct{}, 8)}
}

func (c *echoCallbacks) OnConnect(t Transport) {
	c.mu.Lock()
	c.connected = append(c.connected, t)
	c.mu.Unlock()
	t.SendText("hello " + t.SessionID())
}

func (c *echoCallbacks) OnMessage(t Transport, text string) {
	if text == "bye" {
		t.SendText("one")
		t.SendText("two")
		t.Disconnect()
		return
	}
	t.SendText("echo:" + text)
}

func (c *echoCallbacks) OnDisconnect(t Transport) {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
	c.gone <- struct{}{}
}

func newTestServer(t *testing.T, callbacks Callbacks) *httptest.Server {
	t.Helper()

	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	config := DefaultConfig()
	config.Logger = logger
	config.ReadLimit = func() int64 { return 1024 }

	ts := httptest.NewServer(NewServer(callbacks, config))
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/?"+query, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestWebSocket_Echo(t *testing.T) {
	callbacks := newEchoCallbacks()
	ts := newTestServer(t, callbacks)
	conn := dial(t, ts, "sid=abc")

	if got := read(t, conn); got != "hello abc" {
		t.Fatalf("expected greeting, got %q", got)
	}

	for _, msg := range []string{"a", "b", "c"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, want := range []string{"echo:a", "echo:b", "echo:c"} {
		if got := read(t, conn); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestWebSocket_DisconnectFlushes(t *testing.T) {
	callbacks := newEchoCallbacks()
	ts := newTestServer(t, callbacks)
	conn := dial(t, ts, "")
	read(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte("bye"))
	if got := read(t, conn); got != "one" {
		t.Fatalf("expected one, got %q", got)
	}
	if got := read(t, conn); got != "two" {
		t.Fatalf("expected two, got %q", got)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}

	select {
	case <-callbacks.gone:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect not called")
	}

	callbacks.mu.Lock()
	defer callbacks.mu.Unlock()
	if callbacks.disconnects != 1 {
		t.Fatalf("expected one OnDisconnect, got %d", callbacks.disconnects)
	}
	if err := callbacks.connected[0].SendText("late"); err != ErrTransportClosed {
		t.Fatalf("expected ErrTransportClosed, got %v", err)
	}
}

func TestWebSocket_UniqueIDs(t *testing.T) {
	callbacks := newEchoCallbacks()
	ts := newTestServer(t, callbacks)

	first := dial(t, ts, "")
	read(t, first)
	second := dial(t, ts, "")
	read(t, second)

	callbacks.mu.Lock()
	defer callbacks.mu.Unlock()
	if len(callbacks.connected) != 2 || callbacks.connected[0].ID() == callbacks.connected[1].ID() {
		t.Fatalf("expected two distinct transports, got %v", callbacks.connected)
	}
}
