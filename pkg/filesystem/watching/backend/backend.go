// Package backend provides the host notification backends used by the change
// notification engine. Exactly one backend is selected per process: a modern
// backend that reports structured per-directory events through a watcher, a
// legacy backend that delivers coarse signal-driven notifications per
// descriptor, or no backend at all.
package backend

import (
	"github.com/pkg/errors"
)

var (
	// ErrTerminated indicates that a backend has been terminated.
	ErrTerminated = errors.New("backend terminated")
	// errUnsupported indicates that a backend isn't supported on the current
	// platform.
	errUnsupported = errors.New("backend unsupported on this platform")
)

// Kind identifies the class of a notification backend.
type Kind uint8

const (
	// KindUnavailable indicates that no notification backend is available.
	// Watches can still be armed but never produce notifications.
	KindUnavailable Kind = iota
	// KindModern indicates a backend that reports structured events for
	// individually watched directories.
	KindModern
	// KindLegacy indicates a backend that only signals that something changed
	// in a watched descriptor.
	KindLegacy
)

// String provides a human-readable representation of a backend kind.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindModern:
		return "modern"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Handle is an opaque identifier returned by a modern backend for a watched
// path.
type Handle int32

// Event is a raw event reported by a modern backend.
type Event struct {
	// Handle is the handle of the watch that produced the event.
	Handle Handle
	// Categories are the categories of the event.
	Categories Category
	// Cookie correlates the two halves of a rename, if non-zero.
	Cookie uint32
	// Name is the base name of the affected entry within the watched
	// directory. It is empty for events concerning the directory itself.
	Name string
}

// Watcher is the interface implemented by modern backends. Its Watch and
// Unwatch methods are not safe for concurrent usage, though the channels
// returned by its methods may (and should) be polled from another Goroutine.
type Watcher interface {
	// Watch establishes or refreshes a watch on the directory at the specified
	// path for the specified categories. Watching a path that refers to an
	// already watched directory replaces its categories and returns the same
	// handle.
	Watch(path string, categories Category) (Handle, error)
	// Unwatch removes a watch.
	Unwatch(handle Handle) error
	// Events returns a channel that delivers batches of raw events in the
	// order that they were read.
	Events() <-chan []Event
	// Errors returns a channel that is populated if a backend error occurs.
	// After an error, the backend delivers no further events.
	Errors() <-chan error
	// Terminate terminates watching and releases any resources associated with
	// the watcher.
	Terminate() error
}

// Notifier is the interface implemented by legacy backends.
type Notifier interface {
	// Arm requests notifications for changes of the specified categories in
	// the directory referenced by the specified descriptor.
	Arm(descriptor uintptr, categories Category) error
	// Disarm cancels notifications for the specified descriptor.
	Disarm(descriptor uintptr) error
	// Notify installs the handler to invoke whenever a notification signal
	// arrives. The handler runs outside of the request-processing loop and
	// must restrict itself to atomic operations and non-blocking wake-ups.
	Notify(handler func())
	// Terminate terminates signal delivery and releases any resources
	// associated with the notifier.
	Terminate() error
}

// Selection is a selected notification backend. Exactly one of Watcher and
// Notifier is non-nil for the modern and legacy kinds, respectively, and both
// are nil for KindUnavailable.
type Selection struct {
	// Kind is the backend kind.
	Kind Kind
	// Name is the name of the backend implementation.
	Name string
	// Watcher is the modern backend watcher.
	Watcher Watcher
	// Notifier is the legacy backend notifier.
	Notifier Notifier
}

// Unavailable returns a selection indicating that no backend is available.
func Unavailable() *Selection {
	return &Selection{Kind: KindUnavailable, Name: PreferenceNone.String()}
}

// Terminate terminates the selected backend, if any.
func (s *Selection) Terminate() error {
	switch {
	case s.Watcher != nil:
		return s.Watcher.Terminate()
	case s.Notifier != nil:
		return s.Notifier.Terminate()
	default:
		return nil
	}
}
