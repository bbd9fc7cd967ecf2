package orbus

import "fmt"

type decodeState int

// Decoder states, one per frame section: the two sync bytes, the payload
// length, the payload itself and the trailing checksum.
const (
	stateSyncA decodeState = iota
	stateSyncB
	stateLength
	statePayload
	stateChecksum
)

// Decoder reassembles frames from an unbounded, possibly fragmented byte
// stream, one byte at a time. Malformed input discards the accumulated
// buffer and resynchronizes on the next sync sequence; the decoder is
// reusable for the life of the link.
type Decoder struct {
	// MaxPayload rejects pathological declared lengths. Zero means
	// DefaultMaxPayload.
	MaxPayload int

	state decodeState
	want  int
	buf   []byte
}

func (d *Decoder) max() int {
	if d.MaxPayload > 0 {
		return d.MaxPayload
	}
	return DefaultMaxPayload
}

// Reset discards any partially accumulated frame.
func (d *Decoder) Reset() {
	d.state = stateSyncA
	d.buf = nil
}

// Feed consumes one byte. It returns the validated frame payload exactly
// once, when the trailing checksum of a length-consistent frame has been
// verified. A ProtocolError reports discarded input; the decoder has
// already resynchronized and the caller may keep feeding.
func (d *Decoder) Feed(b byte) ([]byte, error) {
	switch d.state {
	case stateSyncA:
		if b == frameSyncA {
			d.state = stateSyncB
		}
	case stateSyncB:
		switch b {
		case frameSyncB:
			d.state = stateLength
		case frameSyncA:
			// stay, the previous byte was a stray sync
		default:
			d.state = stateSyncA
		}
	case stateLength:
		if int(b) > d.max() {
			d.Reset()
			return nil, &ProtocolError{Reason: fmt.Sprintf("declared payload %d exceeds maximum %d", b, d.max())}
		}
		if b < headerLen {
			d.Reset()
			return nil, &ProtocolError{Reason: fmt.Sprintf("declared payload %d below minimum message size", b)}
		}
		d.want = int(b)
		d.buf = make([]byte, 0, d.want)
		d.state = statePayload
	case statePayload:
		d.buf = append(d.buf, b)
		if len(d.buf) == d.want {
			d.state = stateChecksum
		}
	case stateChecksum:
		payload := d.buf
		d.Reset()
		if want := frameChecksum(payload); b != want {
			return nil, &ProtocolError{Reason: fmt.Sprintf("checksum %#02x, computed %#02x", b, want)}
		}
		return payload, nil
	}
	return nil, nil
}
