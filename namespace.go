package socketio

import (
	"encoding/json"
	"sync"
)

// DefaultNamespace is used when a frame carries no namespace
const DefaultNamespace = "/"

// NamespaceHandler handles the events of one namespace. On returns the ack
// payload to send back, or nil for no ack.
type NamespaceHandler interface {
	Namespace() string
	On(s *Session, event string, data json.RawMessage) (json.RawMessage, error)
}

// Namespaces maps namespace paths to their handlers
type Namespaces struct {
	handlers map[string]NamespaceHandler
	mu       sync.RWMutex
}

// NewNamespaces creates an empty namespace registry
func NewNamespaces() *Namespaces {
	return &Namespaces{
		handlers: make(map[string]NamespaceHandler),
	}
}

// Add registers a handler under its namespace, replacing any previous one
func (n *Namespaces) Add(handler NamespaceHandler) {
	name := normalizeNamespace(handler.Namespace())

	n.mu.Lock()
	n.handlers[name] = handler
	n.mu.Unlock()
}

// Get retrieves the handler for a namespace
func (n *Namespaces) Get(name string) (NamespaceHandler, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	handler, ok := n.handlers[normalizeNamespace(name)]
	return handler, ok
}

// Has reports whether a namespace is registered
func (n *Namespaces) Has(name string) bool {
	_, ok := n.Get(name)
	return ok
}

func normalizeNamespace(name string) string {
	if name == "" {
		return DefaultNamespace
	}
	return name
}

// HandlerFunc adapts a function to a NamespaceHandler
type HandlerFunc func(s *Session, event string, data json.RawMessage) (json.RawMessage, error)

type funcHandler struct {
	name string
	fn   HandlerFunc
}

// NewHandler creates a NamespaceHandler for name from fn
func NewHandler(name string, fn HandlerFunc) NamespaceHandler {
	return &funcHandler{name: normalizeNamespace(name), fn: fn}
}

func (h *funcHandler) Namespace() string {
	return h.name
}

func (h *funcHandler) On(s *Session, event string, data json.RawMessage) (json.RawMessage, error) {
	return h.fn(s, event, data)
}
