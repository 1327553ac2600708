package socketio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPacket is matched by every error returned from DecodePacket.
var ErrMalformedPacket = errors.New("malformed packet")

// PacketType represents Socket.IO packet types
type PacketType int

const (
	PacketTypePing PacketType = iota
	PacketTypePong
	PacketTypeDisconnect
	PacketTypeConnect
	PacketTypeGrantAccess
	PacketTypeMessage
	PacketTypeAck
)

// PacketTypeRequestAccess is how a decoded connect frame is interpreted on
// the inbound side: the client asks to join a namespace.
const PacketTypeRequestAccess = PacketTypeConnect

// Packet is a single wire frame. Namespace and AckID are empty when absent.
type Packet struct {
	Type      PacketType
	Namespace string
	AckID     string
	// SessionID is carried by grant packets only.
	SessionID string
	// Data holds the raw JSON array of message and ack packets.
	Data []byte
}

// DecodeError identifies a frame that claims a segment but is cut short
// before its terminator.
type DecodeError struct {
	Frame  string
	Reason string
}

// Error describes the malformed frame
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed packet %q: %s", e.Frame, e.Reason)
}

// Unwrap returns ErrMalformedPacket
func (e *DecodeError) Unwrap() error {
	return ErrMalformedPacket
}

// NewMessage builds an event packet
func NewMessage(namespace, ackID string, data []byte) *Packet {
	return &Packet{Type: PacketTypeMessage, Namespace: namespace, AckID: ackID, Data: data}
}

// NewAck builds an ack packet
func NewAck(namespace, ackID string, data []byte) *Packet {
	return &Packet{Type: PacketTypeAck, Namespace: namespace, AckID: ackID, Data: data}
}

// Encode encodes a Socket.IO packet to its text frame
func (p *Packet) Encode() string {
	var builder strings.Builder

	switch p.Type {
	case PacketTypePing:
		return "2"
	case PacketTypePong:
		return "3"
	case PacketTypeDisconnect:
		return "41"
	case PacketTypeConnect:
		builder.WriteString("40")
		p.writeNamespace(&builder)
	case PacketTypeGrantAccess:
		builder.WriteString("40")
		p.writeNamespace(&builder)
		builder.WriteString(p.SessionID)
	case PacketTypeMessage, PacketTypeAck:
		if p.Type == PacketTypeMessage {
			builder.WriteString("42")
		} else {
			builder.WriteString("43")
		}
		p.writeNamespace(&builder)
		builder.WriteString(p.AckID)
		builder.Write(p.Data)
	}

	return builder.String()
}

func (p *Packet) writeNamespace(builder *strings.Builder) {
	if p.Namespace != "" {
		builder.WriteString(p.Namespace)
		builder.WriteByte(',')
	}
}

// DecodePacket decodes a Socket.IO text frame. Frames with an unknown prefix
// yield a nil packet and a nil error.
func DecodePacket(frame []byte) (*Packet, error) {
	switch {
	case bytes.HasPrefix(frame, []byte("40")):
		namespace, _, err := decodeNamespace(frame)
		if err != nil {
			return nil, err
		}
		return &Packet{Type: PacketTypeConnect, Namespace: namespace}, nil
	case bytes.HasPrefix(frame, []byte("41")):
		return &Packet{Type: PacketTypeDisconnect}, nil
	case bytes.HasPrefix(frame, []byte("42")):
		return decodePayload(PacketTypeMessage, frame)
	case bytes.HasPrefix(frame, []byte("43")):
		return decodePayload(PacketTypeAck, frame)
	case bytes.HasPrefix(frame, []byte("2")):
		return &Packet{Type: PacketTypePing}, nil
	case bytes.HasPrefix(frame, []byte("3")):
		return &Packet{Type: PacketTypePong}, nil
	}

	return nil, nil
}

// decodeNamespace reads an optional "/name," segment at offset 2 and returns
// the namespace and the offset just past it.
func decodeNamespace(frame []byte) (string, int, error) {
	pos := 2
	if len(frame) <= pos || frame[pos] != '/' {
		return "", pos, nil
	}

	end := bytes.IndexByte(frame[pos:], ',')
	if end == -1 {
		return "", 0, &DecodeError{Frame: string(frame), Reason: "namespace is not terminated by ','"}
	}

	return string(frame[pos : pos+end]), pos + end + 1, nil
}

func decodePayload(packetType PacketType, frame []byte) (*Packet, error) {
	namespace, pos, err := decodeNamespace(frame)
	if err != nil {
		return nil, err
	}

	start := pos
	for pos < len(frame) && frame[pos] >= '0' && frame[pos] <= '9' {
		pos++
	}
	ackID := string(frame[start:pos])

	open := bytes.IndexByte(frame[pos:], '[')
	if open == -1 {
		return nil, &DecodeError{Frame: string(frame), Reason: "missing payload array"}
	}

	data := make([]byte, len(frame)-pos-open)
	copy(data, frame[pos+open:])

	return &Packet{
		Type:      packetType,
		Namespace: namespace,
		AckID:     ackID,
		Data:      data,
	}, nil
}

// String returns the packet type as a string
func (pt PacketType) String() string {
	switch pt {
	case PacketTypePing:
		return "ping"
	case PacketTypePong:
		return "pong"
	case PacketTypeDisconnect:
		return "disconnect"
	case PacketTypeConnect:
		return "connect"
	case PacketTypeGrantAccess:
		return "grant_access"
	case PacketTypeMessage:
		return "message"
	case PacketTypeAck:
		return "ack"
	default:
		return "unknown"
	}
}
