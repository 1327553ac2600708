package socketio

import (
	"errors"
	"sync"

	"github.com/ramory-l/socketio-session/engineio"
)

var (
	ErrSessionExists  = errors.New("session already exists")
	ErrUnknownSession = errors.New("unknown session id")
)

// Registry is the process-wide store of live sessions, indexed by session id
// and by the id of the transport currently attached. Both indices sit behind
// one lock so they never disagree.
type Registry struct {
	sessions   map[string]*Session // sid -> session
	transports map[int64]*Session  // transport id -> session
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		transports: make(map[int64]*Session),
	}
}

// Create registers a session, indexing its transport if one is attached
func (r *Registry) Create(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID()]; ok {
		return ErrSessionExists
	}

	r.sessions[s.ID()] = s
	if t := s.Transport(); t != nil {
		r.transports[t.ID()] = s
	}
	return nil
}

// LookupBySessionID retrieves a session by its id
func (r *Registry) LookupBySessionID(sid string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sid]
	return s, ok
}

// LookupByTransportID retrieves the session a transport is attached to
func (r *Registry) LookupByTransportID(id int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.transports[id]
	return s, ok
}

// AssignTransport attaches t to the session sid, evicting the transport it
// held before. The old index entry is gone before the new transport is
// visible.
func (r *Registry) AssignTransport(sid string, t engineio.Transport) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}

	r.transports[t.ID()] = s
	if old := s.AddTransport(t); old != nil {
		delete(r.transports, old.ID())
	}
	return s, true
}

// Remove deletes the session and tears it down. The session is returned
// only by the call that actually removed it.
func (r *Registry) Remove(sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sid)

	if t := s.Disconnect(); t != nil {
		if owner, ok := r.transports[t.ID()]; ok && owner == s {
			delete(r.transports, t.ID())
		}
	}
	return s, true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Sessions returns a snapshot of all live sessions
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	return result
}
