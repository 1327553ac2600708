package engineio

import (
	"encoding/json"
	"strconv"
)

// PacketType represents Engine.IO packet types
type PacketType byte

const (
	PacketTypeOpen PacketType = iota
	PacketTypeClose
	PacketTypePing
	PacketTypePong
	PacketTypeMessage
	PacketTypeUpgrade
	PacketTypeNoop
)

// Frames exchanged verbatim during the probe/upgrade handshake and on the
// polling transport.
var (
	ProbeRequest  = Frame(PacketTypePing, "probe")
	ProbeResponse = Frame(PacketTypePong, "probe")
	UpgradeFrame  = Frame(PacketTypeUpgrade, "")
	NoopFrame     = Frame(PacketTypeNoop, "")
)

// PostResponse is the body returned for an accepted polling POST
const PostResponse = "ok"

// Packet represents an Engine.IO packet
type Packet struct {
	Type PacketType
	Data []byte
}

// Encode encodes the packet to bytes
func (p *Packet) Encode() []byte {
	result := make([]byte, 0, len(p.Data)+1)
	result = append(result, byte('0'+p.Type))
	result = append(result, p.Data...)
	return result
}

// Frame encodes a packet of type pt carrying data as a text frame
func Frame(pt PacketType, data string) string {
	packet := &Packet{Type: pt, Data: []byte(data)}
	return string(packet.Encode())
}

// HandshakeData represents the Engine.IO handshake response
type HandshakeData struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// EncodeHandshake creates an open packet with handshake data. The open packet
// advertises the websocket upgrade so polling clients can probe for it.
func EncodeHandshake(sid string, pingInterval, pingTimeout, maxPayload int) (string, error) {
	data := HandshakeData{
		SID:          sid,
		Upgrades:     []string{"websocket"},
		PingInterval: pingInterval,
		PingTimeout:  pingTimeout,
		MaxPayload:   maxPayload,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	packet := &Packet{
		Type: PacketTypeOpen,
		Data: jsonData,
	}

	return string(packet.Encode()), nil
}

// EncodeConnectAck builds the simplified `40{"sid":...}` acknowledgement
// returned to a polling client that reconnects with a known session id.
func EncodeConnectAck(sid string) (string, error) {
	jsonData, err := json.Marshal(struct {
		SID string `json:"sid"`
	}{SID: sid})
	if err != nil {
		return "", err
	}

	return "40" + string(jsonData), nil
}

// String returns the packet type as a string
func (pt PacketType) String() string {
	switch pt {
	case PacketTypeOpen:
		return "open"
	case PacketTypeClose:
		return "close"
	case PacketTypePing:
		return "ping"
	case PacketTypePong:
		return "pong"
	case PacketTypeMessage:
		return "message"
	case PacketTypeUpgrade:
		return "upgrade"
	case PacketTypeNoop:
		return "noop"
	default:
		return "unknown(" + strconv.Itoa(int(pt)) + ")"
	}
}
