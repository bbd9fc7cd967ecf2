package orbus

import "sync"

// Handler reacts to one decoded message of its registered group. Handlers
// run synchronously on the round-trip caller; long reactions must hand off
// to their own execution context.
type Handler interface {
	HandleMessage(Message)
}

// HandleMessageFunc is the func form of Handler.
type HandleMessageFunc func(Message)

// HandleMessage implements Handler.
func (f HandleMessageFunc) HandleMessage(m Message) {
	f(m)
}

// Registry maps group identifiers to handlers. It is populated during link
// setup; at most one handler per group.
type Registry struct {
	lock     sync.RWMutex
	handlers map[byte]Handler
}

// Register binds a handler to a group. It returns false without mutating
// anything when the group is already taken.
func (r *Registry) Register(group byte, h Handler) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[byte]Handler)
	}
	if _, ok := r.handlers[group]; ok {
		return false
	}
	r.handlers[group] = h
	return true
}

// Unregister removes the handler for a group. It is idempotent.
func (r *Registry) Unregister(group byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.handlers, group)
}

// Dispatch invokes the handler registered for the message's group. It
// returns an UnhandledGroupError when none is registered, so unknown
// firmware messages never crash the link.
func (r *Registry) Dispatch(m Message) error {
	r.lock.RLock()
	h := r.handlers[m.Group]
	r.lock.RUnlock()
	if h == nil {
		return &UnhandledGroupError{Group: m.Group}
	}
	h.HandleMessage(m)
	return nil
}
