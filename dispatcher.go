package socketio

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	log15 "github.com/inconshreveable/log15/v3"

	"github.com/ramory-l/socketio-session/engineio"
)

// Dispatcher drives the protocol state machine for transport events. It
// implements engineio.Callbacks.
type Dispatcher struct {
	registry   *Registry
	namespaces *Namespaces
	settings   *Settings
	callbacks  ConnectionCallbacks
	logger     log15.Logger
	newData    func() any
}

// NewDispatcher creates a dispatcher over the given registries
func NewDispatcher(registry *Registry, namespaces *Namespaces, settings *Settings, callbacks ConnectionCallbacks, logger log15.Logger) *Dispatcher {
	if logger == nil {
		logger = log15.New("module", "socketio")
	}

	return &Dispatcher{
		registry:   registry,
		namespaces: namespaces,
		settings:   settings,
		callbacks:  callbacks,
		logger:     logger,
	}
}

// OnConnect binds a new transport. Without a sid in its handshake query a
// fresh session is created around it; otherwise it is attached to the named
// session, evicting the transport that session held.
func (d *Dispatcher) OnConnect(t engineio.Transport) {
	sid := t.SessionID()
	if sid == "" {
		d.connectDirect(t)
		return
	}

	session, ok := d.registry.AssignTransport(sid, t)
	if !ok {
		d.logger.Info("transport for unknown session", "sid", sid, "transport", t.ID())
		d.send(t, fmt.Sprintf("SocketIo not found with id %s", sid))
		return
	}

	d.logger.Debug("transport attached", "sid", sid, "transport", t.ID())
	startLiveness(session, d.settings, d.logger, d.teardown)
}

func (d *Dispatcher) connectDirect(t engineio.Transport) {
	var data any
	if d.newData != nil {
		data = d.newData()
	}

	session, handshake, err := Connect(ConnectRequest{
		Callbacks: d.callbacks,
		Registry:  d.registry,
		Settings:  d.settings,
		Transport: t,
		Data:      data,
		Logger:    d.logger,
	})
	if err != nil {
		t.Disconnect()
		return
	}

	// a transport opened without polling needs no probe
	session.UpgradeToWebSocket()

	d.send(t, handshake)
	startLiveness(session, d.settings, d.logger, d.teardown)
}

// OnDisconnect tears down the session bound to t, if any
func (d *Dispatcher) OnDisconnect(t engineio.Transport) {
	session, ok := d.registry.LookupByTransportID(t.ID())
	if !ok {
		return
	}

	d.disconnect(session)
}

// OnMessage handles one inbound text frame
func (d *Dispatcher) OnMessage(t engineio.Transport, text string) {
	session, bound := d.registry.LookupByTransportID(t.ID())
	if bound {
		session.UpdateActivity()
	}

	switch text {
	case engineio.ProbeRequest:
		d.send(t, engineio.ProbeResponse)
		return
	case engineio.UpgradeFrame:
		if !bound {
			d.send(t, fmt.Sprintf("SocketIo not found for websocket %d", t.ID()))
			t.Disconnect()
			return
		}
		session.UpgradeToWebSocket()
		d.logger.Debug("session upgraded", "sid", session.ID(), "transport", t.ID())
		return
	}

	packet, err := DecodePacket([]byte(text))
	if err != nil {
		d.logger.Warn("dropping frame", "transport", t.ID(), "err", err)
		return
	}
	if packet == nil || !bound {
		return
	}

	switch packet.Type {
	case PacketTypeMessage:
		d.dispatchEvent(session, packet)
	case PacketTypeRequestAccess:
		if !d.namespaces.Has(packet.Namespace) {
			return
		}
		grant := &Packet{
			Type:      PacketTypeGrantAccess,
			Namespace: packet.Namespace,
			SessionID: session.ID(),
		}
		d.send(t, grant.Encode())
	}
}

// dispatchEvent routes an event to its namespace handler and sends back the
// handler's ack, if any.
func (d *Dispatcher) dispatchEvent(session *Session, packet *Packet) {
	handler, ok := d.namespaces.Get(packet.Namespace)
	if !ok {
		return
	}

	event, err := jsonparser.GetString(packet.Data, "[0]")
	if err != nil {
		d.logger.Debug("event without name", "sid", session.ID(), "err", err)
		return
	}

	ack, err := d.invoke(handler, session, event, eventData(packet.Data))
	if err != nil {
		d.logger.Warn("event handler failed", "sid", session.ID(), "event", event, "err", err)
		return
	}
	if ack == nil {
		return
	}

	if err := session.Send(NewAck(packet.Namespace, packet.AckID, ackArray(ack))); err != nil {
		d.logger.Debug("failed to send ack", "sid", session.ID(), "err", err)
	}
}

func (d *Dispatcher) invoke(handler NamespaceHandler, session *Session, event string, data json.RawMessage) (ack json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler.On(session, event, data)
}

// eventData returns the second element of the event array as raw JSON.
func eventData(data []byte) json.RawMessage {
	value, dataType, _, err := jsonparser.Get(data, "[1]")
	if err != nil {
		return nil
	}

	if dataType == jsonparser.String {
		quoted := make([]byte, 0, len(value)+2)
		quoted = append(quoted, '"')
		quoted = append(quoted, value...)
		quoted = append(quoted, '"')
		return quoted
	}

	return json.RawMessage(value)
}

func ackArray(ack json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(ack)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed
	}

	result := make([]byte, 0, len(trimmed)+2)
	result = append(result, '[')
	result = append(result, trimmed...)
	result = append(result, ']')
	return result
}

// send writes text to t, logging a failed write
func (d *Dispatcher) send(t engineio.Transport, text string) {
	if err := t.SendText(text); err != nil {
		d.logger.Debug("failed to send frame", "transport", t.ID(), "err", err)
	}
}

func (d *Dispatcher) teardown(session *Session, reason string) {
	if reason == reasonTimeout {
		d.logger.Info("session timed out", "sid", session.ID(), "last_incoming", session.LastIncoming())
	}

	d.disconnect(session)
}

func (d *Dispatcher) disconnect(session *Session) {
	Disconnect(d.registry, session, d.callbacks, d.logger)
}
