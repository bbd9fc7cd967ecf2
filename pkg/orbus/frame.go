package orbus

import "fmt"

// Frame layout: two sync bytes, one payload length byte, the concatenated
// message encodings, one trailing checksum byte.
const (
	frameSyncA byte = '#'
	frameSyncB byte = '*'

	// frameOverhead is the wire size of a frame beyond its payload.
	frameOverhead = 4
)

// DefaultMaxPayload bounds the payload of a single frame when no explicit
// limit is configured.
const DefaultMaxPayload = 128

// frameChecksum is the modulo-256 sum of the length byte and the payload,
// so a corrupted length byte is caught before it can desynchronize the
// message walk.
func frameChecksum(payload []byte) byte {
	sum := byte(len(payload))
	for _, b := range payload {
		sum += b
	}
	return sum
}

// EncodeFrame wraps an ordered batch of messages into one wire frame.
// It fails with ErrBufferFull when the combined encodings exceed
// maxPayload; an oversized batch cannot be fixed by retrying.
func EncodeFrame(msgs []Message, maxPayload int) ([]byte, error) {
	if maxPayload <= 0 || maxPayload > 0xff {
		maxPayload = DefaultMaxPayload
	}
	total := 0
	for _, m := range msgs {
		total += m.EncodedLen()
	}
	if total > maxPayload {
		return nil, ErrBufferFull
	}
	b := make([]byte, 0, total+frameOverhead)
	b = append(b, frameSyncA, frameSyncB, byte(total))
	for _, m := range msgs {
		enc, err := EncodeMessage(m)
		if err != nil {
			return nil, err
		}
		b = append(b, enc...)
	}
	return append(b, frameChecksum(b[3:])), nil
}

// SplitFrame walks a validated frame payload and decodes the messages it
// carries. At each position the current byte is the stride to the next
// message; every stride is validated so a corrupted length cannot cause an
// out-of-bounds walk.
func SplitFrame(payload []byte) ([]Message, error) {
	var msgs []Message
	for i := 0; i < len(payload); {
		stride := int(payload[i])
		switch {
		case stride == 0:
			return nil, &ProtocolError{Reason: fmt.Sprintf("zero message length at offset %d", i)}
		case stride < headerLen:
			return nil, &ProtocolError{Reason: fmt.Sprintf("message length %d at offset %d below minimum header %d", stride, i, headerLen)}
		case i+stride > len(payload):
			return nil, &ProtocolError{Reason: fmt.Sprintf("message length %d at offset %d past end of frame", stride, i)}
		}
		m, err := DecodeMessage(payload[i : i+stride])
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
		i += stride
	}
	return msgs, nil
}

// DecodeFrame validates a complete wire frame and returns its messages in
// order. The stream Decoder performs the same validation incrementally;
// this entry point serves already-assembled buffers.
func DecodeFrame(b []byte) ([]Message, error) {
	if len(b) < frameOverhead+headerLen {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame %d bytes, too short", len(b))}
	}
	if b[0] != frameSyncA || b[1] != frameSyncB {
		return nil, &ProtocolError{Reason: "bad frame sync bytes"}
	}
	n := int(b[2])
	if len(b) != n+frameOverhead {
		return nil, &ProtocolError{Reason: fmt.Sprintf("declared payload %d bytes, frame has %d", n, len(b)-frameOverhead)}
	}
	payload := b[3 : 3+n]
	if got, want := b[len(b)-1], frameChecksum(payload); got != want {
		return nil, &ProtocolError{Reason: fmt.Sprintf("checksum %#02x, computed %#02x", got, want)}
	}
	return SplitFrame(payload)
}
