package socketio

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ramory-l/socketio-session/engineio"
)

const disconnectLongPollReason = "Canceling this LongPoll since we disconnect it."

// State is the lifecycle stage of a session
type State int

const (
	StatePolling State = iota
	StateWebSocketAttached
	StateDisconnected
)

// String returns the state name
func (st State) String() string {
	switch st {
	case StatePolling:
		return "polling"
	case StateWebSocketAttached:
		return "websocket"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session represents one logical client connection across transport changes
type Session struct {
	id      string
	created time.Time
	data    any

	// unix microseconds of the last inbound frame
	lastIncoming atomic.Int64
	connected    atomic.Bool
	loopStarted  atomic.Bool
	pollAcked    atomic.Bool

	// guards the transport-mutating state below
	mu        sync.Mutex
	transport engineio.Transport
	longPoll  *LongPoll
	upgraded  bool
}

// NewSession creates a connected session, optionally with a transport
// already attached.
func NewSession(id string, transport engineio.Transport, data any) *Session {
	now := time.Now()
	s := &Session{
		id:        id,
		created:   now,
		data:      data,
		transport: transport,
	}
	s.lastIncoming.Store(now.UnixMicro())
	s.connected.Store(true)
	return s
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Created returns the creation time
func (s *Session) Created() time.Time {
	return s.created
}

// Data returns the application payload attached at creation
func (s *Session) Data() any {
	return s.data
}

// IsConnected reports whether the session has not been torn down yet
func (s *Session) IsConnected() bool {
	return s.connected.Load()
}

// IsUpgraded reports whether the client confirmed the websocket upgrade
func (s *Session) IsUpgraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgraded
}

// State returns the current lifecycle stage
func (s *Session) State() State {
	if !s.connected.Load() {
		return StateDisconnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil && s.upgraded {
		return StateWebSocketAttached
	}
	return StatePolling
}

// Transport returns the attached transport, if any
func (s *Session) Transport() engineio.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

// HasTransport reports whether the transport with the given id is attached
func (s *Session) HasTransport(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil && s.transport.ID() == id
}

// InWebSocketMode reports whether an upgraded persistent transport is
// attached. A transport still in its probe phase does not count.
func (s *Session) InWebSocketMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil && s.upgraded
}

// UpdateActivity records an inbound frame without taking the session lock
func (s *Session) UpdateActivity() {
	s.lastIncoming.Store(time.Now().UnixMicro())
}

// LastIncoming returns the time of the last inbound frame
func (s *Session) LastIncoming() time.Time {
	return time.UnixMicro(s.lastIncoming.Load())
}

// AddTransport installs t. A previously attached transport is told it was
// kicked, closed and returned.
func (s *Session) AddTransport(t engineio.Transport) engineio.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.transport
	s.transport = t

	if old == nil || old.ID() == t.ID() {
		return nil
	}

	old.SendText(fmt.Sprintf("SocketIO WebSocket %d has been kicked by Websocket %d ", old.ID(), t.ID()))
	old.Disconnect()
	return old
}

// UpgradeToWebSocket marks the upgrade as confirmed and fails the pending
// long-poll, which the upgrade obsoletes.
func (s *Session) UpgradeToWebSocket() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upgraded = true
	if s.longPoll != nil {
		s.longPoll.Fail((&Packet{Type: PacketTypeDisconnect}).Encode())
		s.longPoll = nil
	}
}

// SetLongPoll parks lp as the outstanding polling request. A poll already
// parked is released with a noop; a poll arriving after upgrade or
// disconnect fails immediately.
func (s *Session) SetLongPoll(lp *LongPoll) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected.Load() {
		lp.Fail(disconnectLongPollReason)
		return
	}
	if s.upgraded {
		lp.Fail((&Packet{Type: PacketTypeDisconnect}).Encode())
		return
	}

	if s.longPoll != nil {
		s.longPoll.Complete(engineio.NoopFrame)
	}
	s.longPoll = lp
}

// ReleaseLongPoll forgets lp if it is still the pending poll
func (s *Session) ReleaseLongPoll(lp *LongPoll) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.longPoll == lp {
		s.longPoll = nil
	}
}

// Send encodes packet and forwards it over the attached transport. Without
// a transport the packet is dropped.
func (s *Session) Send(packet *Packet) error {
	t := s.Transport()
	if t == nil {
		return nil
	}

	return t.SendText(packet.Encode())
}

// Emit sends an event with JSON-encoded arguments
func (s *Session) Emit(namespace, event string, args ...any) error {
	values := make([]any, 0, len(args)+1)
	values = append(values, event)
	values = append(values, args...)

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal event %q: %w", event, err)
	}

	return s.Send(NewMessage(namespace, "", data))
}

// Disconnect tears the session down and returns the transport it detached.
// Calling it again is a no-op returning nil.
func (s *Session) Disconnect() engineio.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected.Store(false)

	t := s.transport
	s.transport = nil
	if t != nil {
		t.Disconnect()
	}

	if s.longPoll != nil {
		s.longPoll.Fail(disconnectLongPollReason)
		s.longPoll = nil
	}

	return t
}

// claimLiveness reports whether the caller won the right to run the
// session's liveness loop.
func (s *Session) claimLiveness() bool {
	return s.loopStarted.CompareAndSwap(false, true)
}

// ackPoll reports whether this is the first poll to be acknowledged.
func (s *Session) ackPoll() bool {
	return s.pollAcked.CompareAndSwap(false, true)
}
