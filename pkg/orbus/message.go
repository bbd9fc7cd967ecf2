package orbus

import "fmt"

// Message option codes.
const (
	// OptionData marks a message carrying a value.
	OptionData byte = '='
	// OptionRequest asks the peer to reply with a value.
	OptionRequest byte = '?'
	// OptionAck acknowledges a received message.
	OptionAck byte = 'K'
	// OptionNack rejects a received message.
	OptionNack byte = 'N'
)

// GroupKeepalive is the reserved group of the liveness probe message.
const GroupKeepalive byte = 0

// headerLen is the encoded size of a message without payload: the
// self-length byte plus option, group and command.
const headerLen = 4

// Message is one multiplexed unit of application data addressed to the
// handler registered for its group. The payload beyond the common header
// is opaque to the link; its shape is the handler's business.
type Message struct {
	Option  byte
	Group   byte
	Command byte
	Payload []byte
}

// Keepalive returns the zero-payload group-0 message used to verify link
// liveness without side effects.
func Keepalive() Message {
	return Message{Option: OptionRequest}
}

// IsKeepalive reports whether the message is a liveness probe or its echo.
func (m Message) IsKeepalive() bool {
	return m.Group == GroupKeepalive && len(m.Payload) == 0
}

// EncodedLen returns the total encoded size of the message, including the
// leading self-length byte.
func (m Message) EncodedLen() int {
	return headerLen + len(m.Payload)
}

// EncodeMessage serializes a message. The first byte of the result equals
// the total encoded length, which is how a decoder walking a frame payload
// advances from one message to the next.
func EncodeMessage(m Message) ([]byte, error) {
	n := m.EncodedLen()
	if n > 0xff {
		return nil, &ProtocolError{Reason: fmt.Sprintf("message payload %d bytes, exceeds one-byte length", len(m.Payload))}
	}
	b := make([]byte, n)
	b[0] = byte(n)
	b[1] = m.Option
	b[2] = m.Group
	b[3] = m.Command
	copy(b[headerLen:], m.Payload)
	return b, nil
}

// DecodeMessage parses exactly one encoded message.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) < headerLen {
		return Message{}, &ProtocolError{Reason: fmt.Sprintf("message %d bytes, below minimum header %d", len(b), headerLen)}
	}
	if int(b[0]) != len(b) {
		return Message{}, &ProtocolError{Reason: fmt.Sprintf("self-length %d does not match %d encoded bytes", b[0], len(b))}
	}
	m := Message{Option: b[1], Group: b[2], Command: b[3]}
	if len(b) > headerLen {
		m.Payload = append([]byte(nil), b[headerLen:]...)
	}
	return m, nil
}
