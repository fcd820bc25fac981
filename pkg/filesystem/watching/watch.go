package watching

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mutagen-io/dirnotify/pkg/async"
	"github.com/mutagen-io/dirnotify/pkg/filesystem"
	"github.com/mutagen-io/dirnotify/pkg/logging"
)

var (
	// ErrInvalidParameter indicates that a watch was armed with an empty
	// filter.
	ErrInvalidParameter = async.NewError(async.StatusInvalidParameter)
	// ErrNoData indicates that no change record is queued.
	ErrNoData = async.NewError(async.StatusNoDataDetected)
	// ErrClosed indicates that a watch has been closed.
	ErrClosed = async.NewError(async.StatusInvalidHandle)
)

// Descriptor is the interface that watched directories must implement.
type Descriptor interface {
	// Descriptor returns the underlying host descriptor.
	Descriptor() uintptr
	// Path returns a path that can be used to reach the directory.
	Path() string
	// Identity returns the host identity of the directory.
	Identity() (filesystem.Identity, error)
}

// EventObject is the interface that event objects associated with watches must
// implement.
type EventObject interface {
	// Set signals the event object.
	Set()
	// Reset clears the event object.
	Reset()
}

// ArmParameters are the parameters for arming a watch.
type ArmParameters struct {
	// Filter is the change filter. It must be non-zero.
	Filter Filter
	// Recursive indicates whether or not the entire subtree should be watched.
	Recursive bool
	// WantDetail indicates whether or not change records should be queued.
	WantDetail bool
	// Event is the optional event object to associate with the watch.
	Event EventObject
	// Request is the optional asynchronous request to queue.
	Request *async.Request
}

// Watch is a directory watch. It isn't safe for concurrent usage and must only
// be used from the Goroutine that owns its engine.
type Watch struct {
	// engine is the owning engine.
	engine *Engine
	// identifier is the watch identifier, used to correlate log messages.
	identifier uuid.UUID
	// logger is the watch logger.
	logger *logging.Logger
	// descriptor is the watched directory.
	descriptor Descriptor
	// event is the associated event object, if any.
	event EventObject
	// armed indicates whether or not the watch has been armed.
	armed bool
	// closed indicates whether or not the watch has been closed.
	closed bool
	// filter is the change filter. It's set exactly once, when first armed.
	filter Filter
	// recursive indicates whether or not the watch covers the entire subtree.
	recursive bool
	// wantDetail indicates whether or not change records are queued.
	wantDetail bool
	// signaled is the pending signal count.
	signaled uint32
	// ready is closed and replaced whenever waiters are woken.
	ready chan struct{}
	// records are the queued change records, oldest first.
	records []Record
	// reads are the outstanding read requests.
	reads async.Queue
	// node is the index of the tree node that the watch is attached to, or -1
	// if it isn't attached.
	node int
	// legacyArmed indicates whether or not the legacy notifier is armed for
	// the watch's descriptor. It's read from the legacy signal handler.
	legacyArmed atomic.Bool
	// notified counts legacy notifications not yet drained. It's incremented
	// from the legacy signal handler.
	notified atomic.Uint32
}

// NewWatch creates a new unarmed watch for the specified directory.
func (e *Engine) NewWatch(descriptor Descriptor) *Watch {
	identifier := uuid.New()
	return &Watch{
		engine:     e,
		identifier: identifier,
		logger:     e.logger.Sublogger(identifier.String()[:8]),
		descriptor: descriptor,
		ready:      make(chan struct{}),
		node:       -1,
	}
}

// Arm arms the watch. The filter, recursion, and detail settings are only
// recorded by the first successful call, subsequent calls only replace the
// event object and reset the signal state. A nil error indicates that the
// watch (and its request, if any) is pending.
func (w *Watch) Arm(parameters ArmParameters) error {
	// Validate state and parameters.
	if w.closed {
		return ErrClosed
	} else if parameters.Filter == 0 {
		return ErrInvalidParameter
	}

	// Replace the event object.
	w.event = parameters.Event

	// Record settings on first arm.
	if !w.armed {
		w.armed = true
		w.filter = parameters.Filter
		w.recursive = parameters.Recursive
		w.wantDetail = parameters.WantDetail
		w.engine.registry.add(w)
		w.logger.Debugf("Armed on %s with filter %s (recursive: %t, detail: %t)",
			w.descriptor.Path(), w.filter, w.recursive, w.wantDetail,
		)
	}
	w.signaled = 0

	// Reset the event object.
	if w.event != nil {
		w.event.Reset()
	}

	// Queue the request, if any.
	if parameters.Request != nil {
		w.EnqueueRead(parameters.Request)
	}

	// Establish backend state.
	w.engine.adjust(w)

	// The watch is pending.
	return nil
}

// EnqueueRead queues an outstanding read request. If a change record is
// already queued, then the request is completed immediately.
func (w *Watch) EnqueueRead(request *async.Request) {
	if w.closed {
		request.Complete(async.StatusCancelled)
		return
	}
	w.reads.Add(request)
	if len(w.records) > 0 {
		w.reads.TerminateTail(async.StatusAlerted)
	}
}

// PopRecord removes and returns the oldest queued change record.
func (w *Watch) PopRecord() (Record, error) {
	// Check for a record.
	if len(w.records) == 0 {
		return Record{}, ErrNoData
	}

	// Remove the record.
	record := w.records[0]
	w.records[0] = Record{}
	w.records = w.records[1:]

	// Update the signal state.
	w.signaled++
	w.signal()

	// Success.
	return record, nil
}

// Pending returns the number of queued change records.
func (w *Watch) Pending() int {
	return len(w.records)
}

// Outstanding returns the number of outstanding read requests.
func (w *Watch) Outstanding() int {
	return w.reads.Len()
}

// Signaled returns whether or not the watch is signaled for waiters. Watches
// with an associated event object are never signaled themselves.
func (w *Watch) Signaled() bool {
	return w.event == nil && w.signaled > 0
}

// Satisfy consumes one pending signal.
func (w *Watch) Satisfy() {
	if w.signaled > 0 {
		w.signaled--
	}
}

// Ready returns a channel that's closed the next time the watch wakes its
// waiters.
func (w *Watch) Ready() <-chan struct{} {
	return w.ready
}

// Filter returns the filter recorded when the watch was first armed.
func (w *Watch) Filter() Filter {
	return w.filter
}

// signal signals the event object, or wakes waiters if there's no event
// object.
func (w *Watch) signal() {
	if w.event != nil {
		w.event.Set()
		return
	}
	close(w.ready)
	w.ready = make(chan struct{})
}

// deliver queues a change record (if detail is wanted) and completes the
// oldest outstanding read.
func (w *Watch) deliver(action Action, path string) {
	if w.wantDetail {
		if limit := w.engine.options.MaximumPendingRecords; limit > 0 && len(w.records) >= limit {
			w.logger.Debugf("Dropping %s record for %s (%d records pending)", action, path, len(w.records))
		} else {
			w.records = append(w.records, Record{Action: action, Path: path})
		}
	}
	w.reads.TerminateHead(async.StatusAlerted)
}

// Close closes the watch, cancelling all outstanding reads and discarding any
// queued records. It's idempotent.
func (w *Watch) Close() error {
	// Check for previous closure.
	if w.closed {
		return nil
	}
	w.closed = true

	// Remove the watch from the registry and release its backend state.
	if w.armed {
		w.engine.registry.remove(w)
	}
	w.engine.release(w)

	// Cancel outstanding reads and discard records.
	if cancelled := w.reads.TerminateAll(async.StatusCancelled); cancelled > 0 {
		w.logger.Debugf("Cancelled %d outstanding reads", cancelled)
	}
	w.records = nil

	// Signal and release the event object.
	if w.event != nil {
		w.event.Set()
		w.event = nil
	}

	// Success.
	return nil
}
