package engineio

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log15 "github.com/inconshreveable/log15/v3"
)

// Callbacks receives transport lifecycle events. OnConnect is invoked before
// the first OnMessage and OnDisconnect is invoked exactly once per transport.
type Callbacks interface {
	OnConnect(t Transport)
	OnMessage(t Transport, text string)
	OnDisconnect(t Transport)
}

// Config holds Engine.IO transport configuration
type Config struct {
	// ReadLimit returns the maximum accepted frame size in bytes. It is read
	// on every upgrade so the limit can change at runtime.
	ReadLimit func() int64

	// WriteWait bounds a single frame write.
	WriteWait time.Duration

	// QueueLength caps undelivered frames per transport; 0 means unbounded.
	QueueLength int

	// CheckOrigin is passed to the websocket upgrader. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool

	Logger log15.Logger
}

// DefaultConfig returns default Engine.IO configuration
func DefaultConfig() *Config {
	return &Config{
		WriteWait:   10 * time.Second,
		QueueLength: 256,
	}
}

// Server upgrades HTTP requests to websocket transports
type Server struct {
	config    *Config
	upgrader  websocket.Upgrader
	callbacks Callbacks
	logger    log15.Logger
	nextID    atomic.Int64
}

// NewServer creates a new Engine.IO server
func NewServer(callbacks Callbacks, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = log15.New("module", "engineio")
	}

	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool {
			return true
		}
	}

	return &Server{
		config:    config,
		callbacks: callbacks,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// IsUpgrade reports whether r asks for a websocket transport
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// ServeHTTP upgrades the request and hands the transport to the callbacks
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	var readLimit int64
	if s.config.ReadLimit != nil {
		readLimit = s.config.ReadLimit()
	}

	ws := newWebSocket(s.nextID.Add(1), r.URL.Query().Get("sid"), conn, s.config, s.logger)
	ws.start(s.callbacks, readLimit)
}
