package socketio

import (
	"time"

	log15 "github.com/inconshreveable/log15/v3"
)

const (
	reasonTimeout      = "ping timeout"
	reasonDisconnected = "disconnected"
)

// startLiveness spawns the session's heartbeat loop unless one is already
// running. The loop exits on its own once the session goes silent for longer
// than the disconnect timeout or is disconnected elsewhere, and then calls
// teardown with the reason.
func startLiveness(session *Session, settings *Settings, logger log15.Logger, teardown func(*Session, string)) bool {
	if !session.claimLiveness() {
		return false
	}

	go livenessLoop(session, settings, logger, teardown)
	return true
}

func livenessLoop(session *Session, settings *Settings, logger log15.Logger, teardown func(*Session, string)) {
	var reason string
	for {
		if time.Since(session.LastIncoming()) >= settings.DisconnectTimeout() {
			reason = reasonTimeout
			break
		}

		if !session.IsConnected() {
			reason = reasonDisconnected
			break
		}

		if session.InWebSocketMode() {
			if err := session.Send(&Packet{Type: PacketTypePing}); err != nil {
				logger.Debug("failed to send ping", "sid", session.ID(), "err", err)
			}
		}

		time.Sleep(settings.PingInterval())
	}

	teardown(session, reason)
}
