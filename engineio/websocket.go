package engineio

import (
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
	log15 "github.com/inconshreveable/log15/v3"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrSlowClient      = errors.New("slow client")
)

// Transport is a bidirectional text channel carrying one session's frames.
type Transport interface {
	// ID is unique among the transports of one server.
	ID() int64

	// SessionID returns the sid passed in the handshake query, or "" when the
	// client connected without one.
	SessionID() string

	// SendText queues a text frame for delivery.
	SendText(text string) error

	// Disconnect flushes queued frames and closes the channel. It is safe to
	// call more than once.
	Disconnect()
}

// WebSocket is a Transport backed by a gorilla websocket connection.
type WebSocket struct {
	id          int64
	sid         string
	conn        *websocket.Conn
	writeWait   time.Duration
	queueLength int
	logger      log15.Logger

	mu      sync.Mutex
	pending *queue.Queue
	wake    chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func newWebSocket(id int64, sid string, conn *websocket.Conn, config *Config, logger log15.Logger) *WebSocket {
	return &WebSocket{
		id:          id,
		sid:         sid,
		conn:        conn,
		writeWait:   config.WriteWait,
		queueLength: config.QueueLength,
		logger:      logger.New("transport", id),
		pending:     queue.New(),
		wake:        make(chan struct{}, 1),
		closed:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// ID returns the transport id
func (ws *WebSocket) ID() int64 {
	return ws.id
}

// SessionID returns the sid from the upgrade request query
func (ws *WebSocket) SessionID() string {
	return ws.sid
}

// SendText queues a text frame for the write loop
func (ws *WebSocket) SendText(text string) error {
	select {
	case <-ws.closed:
		return ErrTransportClosed
	default:
	}

	ws.mu.Lock()
	if ws.queueLength > 0 && ws.pending.Length() >= ws.queueLength {
		ws.mu.Unlock()
		return ErrSlowClient
	}
	ws.pending.Add(text)
	ws.mu.Unlock()

	select {
	case ws.wake <- struct{}{}:
	default:
	}
	return nil
}

// Disconnect closes the transport once the write loop has flushed
func (ws *WebSocket) Disconnect() {
	ws.closeOnce.Do(func() {
		close(ws.closed)
	})
}

// Done is closed after the underlying connection has been closed.
func (ws *WebSocket) Done() <-chan struct{} {
	return ws.done
}

func (ws *WebSocket) start(callbacks Callbacks, readLimit int64) {
	go ws.writeLoop()
	callbacks.OnConnect(ws)
	go ws.readLoop(callbacks, readLimit)
}

func (ws *WebSocket) readLoop(callbacks Callbacks, readLimit int64) {
	defer func() {
		ws.Disconnect()
		callbacks.OnDisconnect(ws)
	}()

	if readLimit > 0 {
		ws.conn.SetReadLimit(readLimit)
	}

	for {
		messageType, data, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				ws.logger.Debug("websocket read failed", "err", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		callbacks.OnMessage(ws, string(data))
	}
}

func (ws *WebSocket) writeLoop() {
	defer func() {
		ws.conn.Close()
		close(ws.done)
	}()

	for {
		select {
		case <-ws.wake:
			if err := ws.flush(); err != nil {
				ws.logger.Debug("websocket write failed", "err", err)
				ws.Disconnect()
				return
			}
		case <-ws.closed:
			if err := ws.flush(); err != nil {
				return
			}
			ws.conn.SetWriteDeadline(time.Now().Add(ws.writeWait))
			ws.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (ws *WebSocket) flush() error {
	for {
		ws.mu.Lock()
		if ws.pending.Length() == 0 {
			ws.mu.Unlock()
			return nil
		}
		text := ws.pending.Remove().(string)
		ws.mu.Unlock()

		ws.conn.SetWriteDeadline(time.Now().Add(ws.writeWait))
		if err := ws.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return err
		}
	}
}
