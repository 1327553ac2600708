package socketio

import (
	"errors"
	"sync"
	"time"

	log15 "github.com/inconshreveable/log15/v3"

	"github.com/ramory-l/socketio-session/engineio"
)

func testLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

type fakeTransport struct {
	id  int64
	sid string

	mu          sync.Mutex
	sent        []string
	disconnects int
}

func newFakeTransport(id int64, sid string) *fakeTransport {
	return &fakeTransport{id: id, sid: sid}
}

func (f *fakeTransport) ID() int64 {
	return f.id
}

func (f *fakeTransport) SessionID() string {
	return f.sid
}

func (f *fakeTransport) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disconnects > 0 {
		return engineio.ErrTransportClosed
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]string, len(f.sent))
	copy(result, f.sent)
	return result
}

func (f *fakeTransport) Disconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects > 0
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var errRejected = errors.New("rejected")

type recordingCallbacks struct {
	reject error

	mu           sync.Mutex
	connected    []string
	disconnected []string
}

func (c *recordingCallbacks) Connected(s *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reject != nil {
		return c.reject
	}
	c.connected = append(c.connected, s.ID())
	return nil
}

func (c *recordingCallbacks) Disconnected(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = append(c.disconnected, s.ID())
}

func (c *recordingCallbacks) Disconnects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]string, len(c.disconnected))
	copy(result, c.disconnected)
	return result
}
