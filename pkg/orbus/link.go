package orbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Config tunes the round-trip behavior of a Link.
type Config struct {
	// Attempts bounds how many times one flush writes the same frame
	// before giving up. Zero means DefaultAttempts.
	Attempts int
	// ReplyTimeout bounds the wait for a reply frame per attempt.
	ReplyTimeout time.Duration
	// MaxPayload bounds the payload of one frame in bytes.
	MaxPayload int
	// PollInterval bounds a single transport wait, so a Close is noticed
	// promptly during a blocking read.
	PollInterval time.Duration
}

// Defaults for Config fields left zero.
const (
	DefaultAttempts     = 3
	DefaultReplyTimeout = 200 * time.Millisecond
	DefaultPollInterval = 10 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = DefaultReplyTimeout
	}
	if c.MaxPayload <= 0 || c.MaxPayload > 0xff {
		c.MaxPayload = DefaultMaxPayload
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Link multiplexes logical messages over a single transport and routes
// decoded replies to per-group handlers. Round trips run strictly
// sequentially; concurrent callers serialize behind an internal lock.
// Producers touch only the outbound queue and never block on I/O.
type Link struct {
	conf      Config
	transport Transport
	queue     Queue
	registry  Registry
	decoder   Decoder

	tripLock sync.Mutex

	status    int32 // atomic Status
	closed    int32 // atomic bool
	protoErrs uint64
	unhandled uint64
}

// NewLink wires a Link to a transport. The transport still has to be
// opened, either directly or through Open.
func NewLink(t Transport, conf Config) *Link {
	l := &Link{conf: conf.withDefaults(), transport: t}
	l.decoder.MaxPayload = l.conf.MaxPayload
	return l
}

// Open opens the underlying transport.
func (l *Link) Open() error {
	if l.isClosed() {
		return ErrClosed
	}
	return l.transport.Open()
}

// Close aborts an in-progress blocking read, drops pending outbound
// messages and makes any further round trip fail fast.
func (l *Link) Close() error {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return nil
	}
	l.queue.TakeAndClear()
	return l.transport.Close()
}

func (l *Link) isClosed() bool {
	return atomic.LoadInt32(&l.closed) != 0
}

// Submit appends one logical message to the outbound batch. Non-blocking,
// safe from any producer context.
func (l *Link) Submit(option, group, command byte, payload []byte) {
	l.queue.Append(Message{Option: option, Group: group, Command: command, Payload: payload})
}

// SubmitBatch appends many messages atomically, in order.
func (l *Link) SubmitBatch(msgs []Message) {
	l.queue.AppendMany(msgs)
}

// Pending returns the number of messages waiting for the next flush.
func (l *Link) Pending() int {
	return l.queue.Len()
}

// RegisterHandler binds a handler to a group. False on duplicate.
func (l *Link) RegisterHandler(group byte, h Handler) bool {
	return l.registry.Register(group, h)
}

// UnregisterHandler removes the handler for a group.
func (l *Link) UnregisterHandler(group byte) {
	l.registry.Unregister(group)
}

// Status returns a non-blocking snapshot of the last round-trip outcome.
func (l *Link) Status() Status {
	return Status(atomic.LoadInt32(&l.status))
}

func (l *Link) setStatus(s Status) Status {
	atomic.StoreInt32(&l.status, int32(s))
	return s
}

// ProtocolErrors returns how many malformed frames or messages the link
// has discarded so far.
func (l *Link) ProtocolErrors() uint64 {
	return atomic.LoadUint64(&l.protoErrs)
}

// UnhandledGroups returns how many decoded messages found no handler.
func (l *Link) UnhandledGroups() uint64 {
	return atomic.LoadUint64(&l.unhandled)
}

// Flush performs one synchronous round trip: the pending batch is encoded
// into a single frame, written, and the reply is awaited, retried up to
// the attempt bound. An empty batch succeeds immediately without touching
// the transport.
func (l *Link) Flush() Status {
	l.tripLock.Lock()
	defer l.tripLock.Unlock()
	msgs := l.queue.TakeAndClear()
	if len(msgs) == 0 {
		return StatusEmpty
	}
	return l.roundTrip(msgs)
}

// Probe verifies connectivity with a keepalive-only round trip.
func (l *Link) Probe() bool {
	l.tripLock.Lock()
	defer l.tripLock.Unlock()
	return l.roundTrip([]Message{Keepalive()}) == StatusOk
}

func (l *Link) roundTrip(msgs []Message) Status {
	if l.isClosed() {
		return l.setStatus(StatusTransportError)
	}
	frame, err := EncodeFrame(msgs, l.conf.MaxPayload)
	if err != nil {
		glog.Errorf("link: encoding batch of %d messages: %v", len(msgs), err)
		return l.setStatus(StatusBufferFull)
	}
	l.decoder.Reset()
	for attempt := 1; attempt <= l.conf.Attempts; attempt++ {
		if l.isClosed() {
			return l.setStatus(StatusTransportError)
		}
		if _, err := l.transport.Write(frame); err != nil {
			// Transport failures are not assumed transient within one
			// flush; the caller decides whether to try again later.
			glog.Errorf("link: %v", &TransportError{Op: "write", Err: err})
			return l.setStatus(StatusTransportError)
		}
		payload, err := l.awaitReply()
		if err == ErrTimeout {
			glog.V(2).Infof("link: no reply on attempt %d of %d", attempt, l.conf.Attempts)
			continue
		}
		if err != nil {
			glog.Errorf("link: %v", &TransportError{Op: "read", Err: err})
			return l.setStatus(StatusTransportError)
		}
		reply, err := SplitFrame(payload)
		if err != nil {
			// The board already executed the batch; retrying would
			// duplicate it.
			atomic.AddUint64(&l.protoErrs, 1)
			glog.Errorf("link: malformed reply: %v", err)
			return l.setStatus(StatusProtocolError)
		}
		l.dispatch(reply)
		return l.setStatus(StatusOk)
	}
	return l.setStatus(StatusTimeout)
}

// awaitReply blocks until the decoder assembles one frame, the per-attempt
// timeout elapses (ErrTimeout) or the link is closed. Waits are sliced by
// PollInterval so Close is noticed promptly.
func (l *Link) awaitReply() ([]byte, error) {
	deadline := time.Now().Add(l.conf.ReplyTimeout)
	buf := make([]byte, 64)
	for {
		if l.isClosed() {
			return nil, ErrClosed
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		wait := remaining
		if wait > l.conf.PollInterval {
			wait = l.conf.PollInterval
		}
		ready, err := l.transport.WaitReadable(wait)
		if err != nil {
			return nil, err
		}
		if !ready {
			continue
		}
		n, err := l.transport.ReadAvailable(buf)
		if err != nil {
			return nil, err
		}
		for _, b := range buf[:n] {
			payload, err := l.decoder.Feed(b)
			if err != nil {
				atomic.AddUint64(&l.protoErrs, 1)
				glog.Warningf("link: %v, resynchronizing", err)
				continue
			}
			if payload != nil {
				return payload, nil
			}
		}
	}
}

func (l *Link) dispatch(msgs []Message) {
	for _, m := range msgs {
		if m.IsKeepalive() {
			glog.V(3).Info("link: keepalive echo")
			continue
		}
		if err := l.registry.Dispatch(m); err != nil {
			atomic.AddUint64(&l.unhandled, 1)
			glog.Warningf("link: %v, command %d dropped", err, m.Command)
		}
	}
}
