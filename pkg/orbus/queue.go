package orbus

import "sync"

// Queue collects outbound messages from any number of producers until the
// link flushes them as one frame. Appends only take a short-lived lock and
// never block on I/O.
type Queue struct {
	lock    sync.Mutex
	pending []Message
}

// Append adds one message, preserving submission order.
func (q *Queue) Append(m Message) {
	q.lock.Lock()
	q.pending = append(q.pending, m)
	q.lock.Unlock()
}

// AppendMany adds a batch atomically, in order.
func (q *Queue) AppendMany(msgs []Message) {
	q.lock.Lock()
	q.pending = append(q.pending, msgs...)
	q.lock.Unlock()
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.pending)
}

// TakeAndClear atomically returns the current contents and empties the
// queue. Messages appended afterwards start the next batch.
func (q *Queue) TakeAndClear() []Message {
	q.lock.Lock()
	defer q.lock.Unlock()
	msgs := q.pending
	q.pending = nil
	return msgs
}
