// Package socketio provides the server side of a Socket.IO/Engine.IO
// compatible session protocol.
//
// A session starts on HTTP long-polling and may be upgraded to a websocket
// transport. Events are routed by namespace, dead peers are detected by
// heartbeats and a session never has more than one active transport: a
// transport attaching to a session evicts the one it held.
//
// # Quick Start
//
//	server := socketio.NewServer(nil, nil)
//
//	server.Handle("/", func(s *socketio.Session, event string, data json.RawMessage) (json.RawMessage, error) {
//	    log.Printf("%s from %s: %s", event, s.ID(), data)
//	    return json.RawMessage(`["received"]`), nil
//	})
//
//	http.Handle("/socket.io/", server)
//	http.ListenAndServe(":3000", nil)
//
// # Sessions
//
// Applications observe session lifecycle through ConnectionCallbacks.
// Returning an error from Connected rejects the session: it is never
// registered and the client receives the error.
//
//	type callbacks struct{}
//
//	func (callbacks) Connected(s *socketio.Session) error { return nil }
//	func (callbacks) Disconnected(s *socketio.Session)    {}
//
//	server := socketio.NewServer(nil, callbacks{})
//
// # Acknowledgements
//
// A namespace handler that returns a non-nil payload answers the event with
// an ack frame carrying the event's ack id. A payload that is not a JSON
// array is wrapped into one.
//
// # Configuration
//
//	config := &socketio.Config{
//	    PingInterval:      25000, // 25 seconds
//	    PingTimeout:       20000, // 20 seconds
//	    DisconnectTimeout: 45000, // silence before teardown
//	    MaxPayload:        1000000,
//	}
//	server := socketio.NewServer(config, nil)
//
// Heartbeat settings can be changed while the server runs through
// Server.Settings.
//
// # Thread Safety
//
// All operations are goroutine-safe. Event handlers run on the transport's
// read goroutine, so a slow handler delays that session's next frame only.
package socketio
