package socketio

import (
	"net/http"
	"sync/atomic"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
)

// Config represents Socket.IO server configuration. Durations are in
// milliseconds.
type Config struct {
	PingInterval int
	PingTimeout  int
	// DisconnectTimeout is how long a session may stay silent before the
	// liveness loop tears it down. Zero means PingInterval + PingTimeout.
	DisconnectTimeout int
	MaxPayload        int
	// Path is the HTTP path the server answers on.
	Path string

	// CheckOrigin vets websocket upgrades. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool

	// SessionData builds the application payload attached to new sessions.
	SessionData func() any

	Logger log15.Logger
}

// DefaultConfig returns default Socket.IO configuration
func DefaultConfig() *Config {
	return &Config{
		PingInterval:      25000,
		PingTimeout:       20000,
		DisconnectTimeout: 45000,
		MaxPayload:        1e6,
		Path:              "/socket.io/",
	}
}

// Settings holds heartbeat and payload limits that may be changed while the
// server runs.
type Settings struct {
	pingInterval      atomic.Int64
	pingTimeout       atomic.Int64
	disconnectTimeout atomic.Int64
	maxPayload        atomic.Int64
}

// NewSettings creates settings from config, falling back to defaults for
// zero fields.
func NewSettings(config *Config) *Settings {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}

	s := &Settings{}
	s.pingInterval.Store(int64(orDefault(config.PingInterval, defaults.PingInterval)))
	s.pingTimeout.Store(int64(orDefault(config.PingTimeout, defaults.PingTimeout)))
	s.maxPayload.Store(int64(orDefault(config.MaxPayload, defaults.MaxPayload)))

	disconnect := config.DisconnectTimeout
	if disconnect <= 0 {
		disconnect = int(s.pingInterval.Load() + s.pingTimeout.Load())
	}
	s.disconnectTimeout.Store(int64(disconnect))

	return s
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// PingInterval returns the heartbeat period
func (s *Settings) PingInterval() time.Duration {
	return time.Duration(s.pingInterval.Load()) * time.Millisecond
}

// PingTimeout returns how long a client waits for a heartbeat
func (s *Settings) PingTimeout() time.Duration {
	return time.Duration(s.pingTimeout.Load()) * time.Millisecond
}

// DisconnectTimeout returns the inactivity bound enforced by the liveness loop
func (s *Settings) DisconnectTimeout() time.Duration {
	return time.Duration(s.disconnectTimeout.Load()) * time.Millisecond
}

// MaxPayload returns the maximum accepted frame size in bytes
func (s *Settings) MaxPayload() int64 {
	return s.maxPayload.Load()
}

// SetPingInterval changes the heartbeat period. Non-positive values are
// ignored.
func (s *Settings) SetPingInterval(d time.Duration) {
	storePositive(&s.pingInterval, d.Milliseconds())
}

// SetPingTimeout changes the advertised heartbeat timeout. Non-positive
// values are ignored.
func (s *Settings) SetPingTimeout(d time.Duration) {
	storePositive(&s.pingTimeout, d.Milliseconds())
}

// SetDisconnectTimeout changes the inactivity bound. Non-positive values are
// ignored.
func (s *Settings) SetDisconnectTimeout(d time.Duration) {
	storePositive(&s.disconnectTimeout, d.Milliseconds())
}

// SetMaxPayload changes the frame size limit for new transports. Non-positive
// values are ignored.
func (s *Settings) SetMaxPayload(n int64) {
	storePositive(&s.maxPayload, n)
}

func storePositive(v *atomic.Int64, n int64) {
	if n > 0 {
		v.Store(n)
	}
}
