// Package watching implements directory change notification on top of the
// host's per-directory notification primitives. Recursive watching is emulated
// by maintaining a shadow tree of the watched portion of the filesystem and
// establishing backend watches for every directory beneath a recursive watch.
package watching

import (
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
	"github.com/mutagen-io/dirnotify/pkg/logging"
)

// Selector provides the notification backend for an engine. It's invoked
// exactly once, when the first watch is armed. It must not return nil.
type Selector func() *backend.Selection

// Options are the engine options.
type Options struct {
	// MaximumPendingRecords is the maximum number of change records that a
	// watch will queue. Records beyond this limit are dropped. If zero, there
	// is no limit.
	MaximumPendingRecords int
}

// Engine is the change notification engine. It isn't safe for concurrent
// usage: an engine and its watches must be owned by a single Goroutine, which
// is also responsible for feeding the engine backend events (via Process) and
// legacy wake-ups (via DrainNotified).
type Engine struct {
	// logger is the engine logger.
	logger *logging.Logger
	// selector is the backend selector.
	selector Selector
	// options are the engine options.
	options Options
	// selection is the selected backend. It's nil until the first watch is
	// armed.
	selection *backend.Selection
	// tree is the shadow tree.
	tree *tree
	// registry is the armed watch registry.
	registry registry
	// wake is the legacy wake-up channel.
	wake chan struct{}
}

// NewEngine creates a new engine.
func NewEngine(logger *logging.Logger, selector Selector, options Options) *Engine {
	return &Engine{
		logger:   logger,
		selector: selector,
		options:  options,
		tree:     newTree(),
		wake:     make(chan struct{}, 1),
	}
}

// selectBackend selects the backend if it hasn't already been selected.
func (e *Engine) selectBackend() *backend.Selection {
	// Check for an existing selection.
	if e.selection != nil {
		return e.selection
	}

	// Perform selection.
	e.selection = e.selector()
	if e.selection == nil {
		e.selection = backend.Unavailable()
	}
	e.logger.Debugf("Using %s backend (%s)", e.selection.Name, e.selection.Kind)

	// Install the legacy handler if necessary.
	if e.selection.Kind == backend.KindLegacy {
		e.selection.Notifier.Notify(e.notifyLegacy)
	}

	// Done.
	return e.selection
}

// watcher returns the modern backend watcher, if one is selected.
func (e *Engine) watcher() backend.Watcher {
	if e.selection == nil || e.selection.Kind != backend.KindModern {
		return nil
	}
	return e.selection.Watcher
}

// adjust establishes the backend state for an armed watch.
func (e *Engine) adjust(w *Watch) {
	// Ensure that a backend is selected.
	selection := e.selectBackend()

	// Attach the watch to the tree if it isn't already attached, otherwise
	// refresh its node.
	if w.node < 0 {
		e.attach(w)
	} else {
		e.refresh(w.node)
	}

	// Arm legacy notifications if necessary.
	if selection.Kind == backend.KindLegacy && !w.legacyArmed.Load() {
		e.armLegacy(w)
	}
}

// release releases the backend state for a watch that's being closed.
func (e *Engine) release(w *Watch) {
	if e.selection != nil && e.selection.Kind == backend.KindLegacy {
		e.disarmLegacy(w)
	}
	e.detach(w)
}

// Kind returns the kind of the selected backend. It returns
// backend.KindUnavailable if no backend has been selected yet.
func (e *Engine) Kind() backend.Kind {
	if e.selection == nil {
		return backend.KindUnavailable
	}
	return e.selection.Kind
}

// Selected returns whether or not a backend has been selected.
func (e *Engine) Selected() bool {
	return e.selection != nil
}

// Events returns the modern backend event channel, or nil if no modern backend
// is selected.
func (e *Engine) Events() <-chan []backend.Event {
	if watcher := e.watcher(); watcher != nil {
		return watcher.Events()
	}
	return nil
}

// Errors returns the modern backend error channel, or nil if no modern backend
// is selected.
func (e *Engine) Errors() <-chan error {
	if watcher := e.watcher(); watcher != nil {
		return watcher.Errors()
	}
	return nil
}

// Wake returns the channel used to signal that DrainNotified should be
// invoked.
func (e *Engine) Wake() <-chan struct{} {
	return e.wake
}

// Terminate closes every registered watch and terminates the selected backend.
func (e *Engine) Terminate() error {
	// Close watches, most recently registered first.
	for len(e.registry.watches) > 0 {
		e.registry.watches[len(e.registry.watches)-1].Close()
	}

	// Terminate the backend.
	if e.selection != nil {
		return e.selection.Terminate()
	}
	return nil
}
