package orbus

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the link has been closed and no further
	// round trips are possible.
	ErrClosed = errors.New("link closed")
	// ErrNotOpen indicates the transport has not been opened yet.
	ErrNotOpen = errors.New("transport not open")
	// ErrBufferFull indicates a batch too large for a single frame.
	ErrBufferFull = errors.New("frame buffer full")
	// ErrTimeout indicates no valid reply arrived within one attempt.
	ErrTimeout = errors.New("reply timeout")
)

// ProtocolError reports a malformed frame or message. The decoder discards
// the offending bytes and resynchronizes; it is never fatal to the link.
type ProtocolError struct {
	Reason string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// UnhandledGroupError reports a decoded message whose group has no
// registered handler.
type UnhandledGroupError struct {
	Group byte
}

// Error implements error.
func (e *UnhandledGroupError) Error() string {
	return fmt.Sprintf("no handler for group %d", e.Group)
}

// TransportError wraps an I/O failure from the transport driver.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying I/O error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
