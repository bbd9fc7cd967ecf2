package orbus

import "time"

// Transport owns the physical connection to the board and is the only
// component touching raw I/O. All failures are reported as errors, never
// as process termination.
type Transport interface {
	// Open establishes the connection.
	Open() error
	// Write sends raw bytes.
	Write(p []byte) (int, error)
	// WaitReadable blocks until at least one byte can be read or the
	// timeout elapses. It returns false on timeout.
	WaitReadable(timeout time.Duration) (bool, error)
	// ReadAvailable performs a best-effort non-blocking read of whatever
	// bytes have arrived.
	ReadAvailable(p []byte) (int, error)
	// Close tears the connection down. Closing unblocks an in-progress
	// WaitReadable with an error.
	Close() error
}
