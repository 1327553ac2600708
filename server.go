package socketio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log15 "github.com/inconshreveable/log15/v3"

	"github.com/ramory-l/socketio-session/engineio"
)

// Server represents a Socket.IO server
type Server struct {
	config     *Config
	settings   *Settings
	registry   *Registry
	namespaces *Namespaces
	callbacks  ConnectionCallbacks
	dispatcher *Dispatcher
	eio        *engineio.Server
	router     *mux.Router
	logger     log15.Logger
}

// NopCallbacks accepts every session and ignores disconnects
type NopCallbacks struct{}

// Connected accepts the session
func (NopCallbacks) Connected(*Session) error { return nil }

// Disconnected does nothing
func (NopCallbacks) Disconnected(*Session) {}

// NewServer creates a new Socket.IO server. Nil callbacks accept every
// session.
func NewServer(config *Config, callbacks ConnectionCallbacks) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Path == "" {
		config.Path = DefaultConfig().Path
	}
	if callbacks == nil {
		callbacks = NopCallbacks{}
	}

	logger := config.Logger
	if logger == nil {
		logger = log15.New("module", "socketio")
	}

	s := &Server{
		config:     config,
		settings:   NewSettings(config),
		registry:   NewRegistry(),
		namespaces: NewNamespaces(),
		callbacks:  callbacks,
		router:     mux.NewRouter(),
		logger:     logger,
	}

	s.dispatcher = NewDispatcher(s.registry, s.namespaces, s.settings, callbacks, logger)
	s.dispatcher.newData = config.SessionData

	eioConfig := engineio.DefaultConfig()
	eioConfig.ReadLimit = s.settings.MaxPayload
	eioConfig.CheckOrigin = config.CheckOrigin
	eioConfig.Logger = logger.New("module", "engineio")
	s.eio = engineio.NewServer(s.dispatcher, eioConfig)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Path(s.config.Path).MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return engineio.IsUpgrade(r)
	}).Handler(s.eio)

	s.router.Path(s.config.Path).Methods(http.MethodGet).HandlerFunc(s.handlePoll)
	s.router.Path(s.config.Path).Methods(http.MethodPost).HandlerFunc(s.handlePost)
}

// Of registers the handler for its namespace
func (s *Server) Of(handler NamespaceHandler) {
	s.namespaces.Add(handler)
}

// Handle registers fn as the handler of a namespace
func (s *Server) Handle(namespace string, fn HandlerFunc) {
	s.namespaces.Add(NewHandler(namespace, fn))
}

// Settings returns the runtime-mutable heartbeat settings
func (s *Server) Settings() *Settings {
	return s.settings
}

// Registry returns the live session registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// Session retrieves a live session by ID
func (s *Server) Session(sid string) (*Session, bool) {
	return s.registry.LookupBySessionID(sid)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close disconnects every session
func (s *Server) Close() error {
	for _, session := range s.registry.Sessions() {
		Disconnect(s.registry, session, s.callbacks, s.logger)
	}
	return nil
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		s.handleHandshake(w, r)
		return
	}

	session, ok := s.registry.LookupBySessionID(sid)
	if !ok {
		http.Error(w, fmt.Sprintf("SocketIo not found with id %s", sid), http.StatusBadRequest)
		return
	}
	session.UpdateActivity()

	if session.ackPoll() {
		ack, err := engineio.EncodeConnectAck(sid)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeText(w, ack)
		return
	}

	lp := NewLongPoll()
	session.SetLongPoll(lp)

	ctx, cancel := context.WithTimeout(r.Context(), s.settings.PingInterval())
	defer cancel()

	frame, err := lp.Wait(ctx)
	session.ReleaseLongPoll(lp)

	var lpErr *LongPollError
	switch {
	case errors.As(err, &lpErr):
		writeText(w, lpErr.Reason)
	case err != nil:
		writeText(w, engineio.NoopFrame)
	default:
		writeText(w, frame)
	}
}

func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	var data any
	if s.config.SessionData != nil {
		data = s.config.SessionData()
	}

	_, handshake, err := Connect(ConnectRequest{
		Callbacks: s.callbacks,
		Registry:  s.registry,
		Settings:  s.settings,
		Data:      data,
		Logger:    s.logger,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	writeText(w, handshake)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	session, ok := s.registry.LookupBySessionID(sid)
	if !ok {
		http.Error(w, fmt.Sprintf("SocketIo not found with id %s", sid), http.StatusBadRequest)
		return
	}
	session.UpdateActivity()

	io.Copy(io.Discard, http.MaxBytesReader(w, r.Body, s.settings.MaxPayload()))
	writeText(w, engineio.PostResponse)
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}
