package socketio

import (
	"testing"
	"time"
)

func TestNewSettings_Defaults(t *testing.T) {
	settings := NewSettings(&Config{PingInterval: 1000, PingTimeout: 500})

	if settings.PingInterval() != time.Second {
		t.Errorf("expected 1s interval, got %v", settings.PingInterval())
	}
	if settings.DisconnectTimeout() != 1500*time.Millisecond {
		t.Errorf("expected disconnect timeout to default to interval + timeout, got %v", settings.DisconnectTimeout())
	}
	if settings.MaxPayload() != 1e6 {
		t.Errorf("expected default max payload, got %d", settings.MaxPayload())
	}
}

func TestSettings_SettersIgnoreNonPositive(t *testing.T) {
	settings := NewSettings(nil)

	settings.SetPingInterval(0)
	settings.SetPingTimeout(-time.Second)
	settings.SetDisconnectTimeout(0)
	settings.SetMaxPayload(-1)

	if settings.PingInterval() != 25*time.Second {
		t.Errorf("expected interval unchanged, got %v", settings.PingInterval())
	}
	if settings.PingTimeout() != 20*time.Second {
		t.Errorf("expected timeout unchanged, got %v", settings.PingTimeout())
	}
	if settings.DisconnectTimeout() != 45*time.Second {
		t.Errorf("expected disconnect timeout unchanged, got %v", settings.DisconnectTimeout())
	}
	if settings.MaxPayload() != 1e6 {
		t.Errorf("expected max payload unchanged, got %d", settings.MaxPayload())
	}

	settings.SetPingInterval(5 * time.Second)
	settings.SetMaxPayload(512)
	if settings.PingInterval() != 5*time.Second || settings.MaxPayload() != 512 {
		t.Errorf("expected positive values applied, got %v %d", settings.PingInterval(), settings.MaxPayload())
	}
}
