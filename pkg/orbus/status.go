package orbus

// Status reports the outcome of the most recent round trip. It is updated
// only by the link after each round trip and may be read at any time
// without blocking.
type Status int32

const (
	// StatusOk means the last round trip completed with a valid reply.
	StatusOk Status = iota
	// StatusEmpty means there was nothing to send.
	StatusEmpty
	// StatusTimeout means no valid reply arrived within the attempt budget.
	StatusTimeout
	// StatusBufferFull means the batch was too large for one frame.
	StatusBufferFull
	// StatusTransportError means a write or read failed at the I/O level.
	StatusTransportError
	// StatusProtocolError means the reply frame carried malformed messages.
	StatusProtocolError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusTimeout:
		return "timeout"
	case StatusBufferFull:
		return "buffer-full"
	case StatusTransportError:
		return "transport-error"
	case StatusProtocolError:
		return "protocol-error"
	}
	return "unknown"
}
