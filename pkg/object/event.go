// Package object provides the synchronization objects that clients can
// associate with change notifications.
package object

import (
	"sync"
)

// Event is a manual-reset event object. It remains signaled from Set until
// Reset. It is safe for concurrent usage.
type Event struct {
	// lock serializes access to the event state.
	lock sync.Mutex
	// signaled indicates whether or not the event is signaled.
	signaled bool
	// ready is closed while the event is signaled.
	ready chan struct{}
}

// NewEvent creates a new event with the specified initial state.
func NewEvent(signaled bool) *Event {
	event := &Event{ready: make(chan struct{})}
	if signaled {
		event.Set()
	}
	return event
}

// Set signals the event.
func (e *Event) Set() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if !e.signaled {
		e.signaled = true
		close(e.ready)
	}
}

// Reset clears the event's signaled state.
func (e *Event) Reset() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.signaled {
		e.signaled = false
		e.ready = make(chan struct{})
	}
}

// Signaled returns whether or not the event is currently signaled.
func (e *Event) Signaled() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.signaled
}

// Ready returns a channel that is closed once the event is signaled. A channel
// obtained before a Reset is not reused after it.
func (e *Event) Ready() <-chan struct{} {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.ready
}

// Close implements io.Closer so that events can be stored in handle tables. It
// has no effect.
func (e *Event) Close() error {
	return nil
}
