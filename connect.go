package socketio

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	log15 "github.com/inconshreveable/log15/v3"

	"github.com/ramory-l/socketio-session/engineio"
)

const maxSessionIDAttempts = 8

// ConnectionCallbacks is implemented by the application to observe session
// lifecycle. A Connected error rejects the session.
type ConnectionCallbacks interface {
	Connected(s *Session) error
	Disconnected(s *Session)
}

// ConnectRequest carries the inputs of Connect.
type ConnectRequest struct {
	Callbacks ConnectionCallbacks
	Registry  *Registry
	Settings  *Settings
	// Transport is attached up front when the client opened a websocket
	// without a prior polling phase.
	Transport engineio.Transport
	Data      any
	Logger    log15.Logger
}

// Connect creates and registers a new session and returns it along with the
// handshake payload. When the application rejects the session it is not
// registered, a pre-attached transport is closed and the error is returned.
func Connect(req ConnectRequest) (*Session, string, error) {
	logger := req.Logger
	if logger == nil {
		logger = log15.New("module", "socketio")
	}

	sid, err := allocateSessionID(req.Registry)
	if err != nil {
		return nil, "", err
	}

	handshake, err := engineio.EncodeHandshake(sid,
		int(req.Settings.PingInterval().Milliseconds()),
		int(req.Settings.PingTimeout().Milliseconds()),
		int(req.Settings.MaxPayload()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode handshake: %w", err)
	}

	session := NewSession(sid, req.Transport, req.Data)

	if err := req.Callbacks.Connected(session); err != nil {
		session.Disconnect()
		logger.Info("connect rejected", "sid", sid, "err", err)
		return nil, "", err
	}

	if err := req.Registry.Create(session); err != nil {
		// lost a race for the id after the application accepted the session
		session.Disconnect()
		req.Callbacks.Disconnected(session)
		return nil, "", fmt.Errorf("failed to register session %s: %w", sid, err)
	}

	logger.Info("session connected", "sid", sid, "websocket", req.Transport != nil)
	return session, handshake, nil
}

func allocateSessionID(registry *Registry) (string, error) {
	for attempt := 0; attempt < maxSessionIDAttempts; attempt++ {
		sid := newSessionID()
		if _, ok := registry.LookupBySessionID(sid); !ok {
			return sid, nil
		}
	}
	return "", fmt.Errorf("failed to allocate session id after %d attempts: %w", maxSessionIDAttempts, ErrSessionExists)
}

// Disconnect removes the session and notifies the application exactly once.
// It reports whether this call performed the teardown. A panicking
// Disconnected callback is logged and swallowed.
func Disconnect(registry *Registry, session *Session, callbacks ConnectionCallbacks, logger log15.Logger) (torndown bool) {
	removed, ok := registry.Remove(session.ID())
	if !ok {
		return false
	}
	torndown = true

	if logger == nil {
		logger = log15.New("module", "socketio")
	}
	logger.Info("session disconnected", "sid", removed.ID())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("disconnected callback panic", "sid", removed.ID(), "panic", r)
		}
	}()
	callbacks.Disconnected(removed)
	return true
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
