// Package server implements the request-processing loop that owns the change
// notification engine. Every operation on the engine, its watches, and the
// handle table is serialized through the loop, which also consumes backend
// events and legacy wake-ups.
package server

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mutagen-io/dirnotify/pkg/async"
	"github.com/mutagen-io/dirnotify/pkg/filesystem"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
	"github.com/mutagen-io/dirnotify/pkg/handle"
	"github.com/mutagen-io/dirnotify/pkg/logging"
	"github.com/mutagen-io/dirnotify/pkg/must"
	"github.com/mutagen-io/dirnotify/pkg/object"
)

var (
	// ErrTerminated indicates that the server has terminated.
	ErrTerminated = errors.New("server terminated")
	// ErrObjectTypeMismatch indicates that a handle referred to an object of
	// the wrong type.
	ErrObjectTypeMismatch = async.NewError(async.StatusObjectTypeMismatch)
)

// ArmRequest are the parameters for arming a directory watch.
type ArmRequest struct {
	// Filter is the change filter. It must be non-zero.
	Filter watching.Filter
	// Recursive indicates whether or not the directory's subtree should be
	// watched.
	Recursive bool
	// WantDetail indicates whether or not change records should be queued.
	WantDetail bool
	// Event is an optional event handle to associate with the watch. It must
	// grant handle.AccessModifyState.
	Event handle.Handle
	// Asynchronous indicates whether or not an asynchronous request should be
	// queued and returned.
	Asynchronous bool
}

// Server is a change notification server.
type Server struct {
	// logger is the server logger.
	logger *logging.Logger
	// engine is the change notification engine. It's only accessed from the
	// run loop.
	engine *watching.Engine
	// handles is the handle table. It's only accessed from the run loop.
	handles *handle.Table
	// requests carries operations to execute on the run loop.
	requests chan func()
	// terminate is closed to request run loop termination.
	terminate chan struct{}
	// terminateOnce guards closure of terminate.
	terminateOnce sync.Once
	// done is closed when the run loop exits.
	done chan struct{}
}

// New creates a new server. The selector is invoked the first time that a
// watch is armed. The server doesn't process requests until Run is invoked.
func New(logger *logging.Logger, selector watching.Selector, options watching.Options) *Server {
	return &Server{
		logger:    logger,
		engine:    watching.NewEngine(logger.Sublogger("engine"), selector, options),
		handles:   handle.NewTable(),
		requests:  make(chan func()),
		terminate: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run runs the request-processing loop until the context is cancelled or the
// server is terminated. On exit, every handle is closed and the engine is
// terminated.
func (s *Server) Run(ctx context.Context) error {
	// Defer cleanup.
	defer func() {
		must.Succeed(s.handles.CloseAll(), "handle closure", s.logger)
		must.Terminate(s.engine, s.logger)
		s.logger.Debug("Run loop terminated")
		close(s.done)
	}()

	// Log run loop entry.
	s.logger.Debug("Run loop commencing")

	// Loop until cancelled or terminated. The backend channels are nil (and
	// thus never selected) until a backend has been selected.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.terminate:
			return ErrTerminated
		case request := <-s.requests:
			request()
		case events := <-s.engine.Events():
			s.engine.Process(events)
		case err := <-s.engine.Errors():
			s.logger.Warnf("Notification backend failed: %v", err)
		case <-s.engine.Wake():
			if signaled := s.engine.DrainNotified(); signaled > 0 {
				s.logger.Tracef("Signaled %d watches", signaled)
			}
		}
	}
}

// Terminate requests that the run loop exit and waits for it to do so. It's
// safe to call multiple times, but it must only be called once Run has been
// invoked.
func (s *Server) Terminate() {
	s.terminateOnce.Do(func() {
		close(s.terminate)
	})
	<-s.done
}

// call executes an operation on the run loop and waits for it to complete.
func (s *Server) call(ctx context.Context, operation func()) error {
	// Submit the operation.
	completed := make(chan struct{})
	select {
	case s.requests <- func() { operation(); close(completed) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrTerminated
	}

	// Once accepted, the operation executes synchronously on the loop.
	<-completed
	return nil
}

// OpenDirectory opens the directory at the specified path and returns a handle
// granting the specified access.
func (s *Server) OpenDirectory(ctx context.Context, path string, access handle.Access) (handle.Handle, error) {
	// Open the directory off of the run loop.
	opened, err := filesystem.OpenDirectory(path)
	if err != nil {
		return 0, errors.Wrap(err, "unable to open directory")
	}

	// Allocate a handle.
	var result handle.Handle
	if err := s.call(ctx, func() {
		result = s.handles.Allocate(&directory{directory: opened}, access)
	}); err != nil {
		must.Close(opened, s.logger)
		return 0, err
	}

	// Success.
	s.logger.Debugf("Opened %s as handle %d", opened.Name(), result)
	return result, nil
}

// CreateEvent creates a manual-reset event object and returns a handle for it,
// along with the event itself so that callers can wait on it.
func (s *Server) CreateEvent(ctx context.Context, signaled bool) (handle.Handle, *object.Event, error) {
	event := object.NewEvent(signaled)
	var result handle.Handle
	if err := s.call(ctx, func() {
		result = s.handles.Allocate(event, handle.AccessAll)
	}); err != nil {
		return 0, nil, err
	}
	return result, event, nil
}

// lookupDirectory resolves a directory handle. It must be called from the run
// loop.
func (s *Server) lookupDirectory(h handle.Handle, access handle.Access) (*directory, error) {
	resolved, err := s.handles.Lookup(h, access)
	if err != nil {
		return nil, err
	}
	target, ok := resolved.(*directory)
	if !ok {
		return nil, ErrObjectTypeMismatch
	}
	return target, nil
}

// lookupEvent resolves an event handle. It must be called from the run loop.
func (s *Server) lookupEvent(h handle.Handle) (*object.Event, error) {
	target, err := s.handles.Lookup(h, handle.AccessModifyState)
	if err != nil {
		return nil, err
	}
	event, ok := target.(*object.Event)
	if !ok {
		return nil, ErrObjectTypeMismatch
	}
	return event, nil
}

// ArmWatch arms the watch for a directory handle. If an asynchronous request
// is requested, then it's returned in a pending state and is completed when a
// change arrives or the handle is closed. If an event is specified, then it's
// set when that request completes.
func (s *Server) ArmWatch(ctx context.Context, h handle.Handle, request ArmRequest) (*async.Request, error) {
	var result *async.Request
	var armErr error
	if err := s.call(ctx, func() {
		// Resolve the directory.
		target, err := s.lookupDirectory(h, handle.AccessListDirectory)
		if err != nil {
			armErr = err
			return
		}

		// Resolve the event, if any.
		var event *object.Event
		if request.Event != 0 {
			if event, err = s.lookupEvent(request.Event); err != nil {
				armErr = err
				return
			}
		}

		// Create the asynchronous request, if any.
		parameters := watching.ArmParameters{
			Filter:     request.Filter,
			Recursive:  request.Recursive,
			WantDetail: request.WantDetail,
		}
		if event != nil {
			parameters.Event = event
		}
		if request.Asynchronous {
			var completion func(async.Status)
			if event != nil {
				completion = func(async.Status) { event.Set() }
			}
			parameters.Request = async.NewRequest(completion)
		}

		// Create the watch if necessary and arm it.
		if target.watch == nil {
			target.watch = s.engine.NewWatch(target.directory)
		}
		if armErr = target.watch.Arm(parameters); armErr == nil {
			result = parameters.Request
		}
	}); err != nil {
		return nil, err
	}
	return result, armErr
}

// ReadChange pops the oldest change record queued for a directory handle.
func (s *Server) ReadChange(ctx context.Context, h handle.Handle) (watching.Record, error) {
	var record watching.Record
	var readErr error
	if err := s.call(ctx, func() {
		target, err := s.lookupDirectory(h, handle.AccessListDirectory)
		if err != nil {
			readErr = err
		} else if target.watch == nil {
			readErr = watching.ErrNoData
		} else {
			record, readErr = target.watch.PopRecord()
		}
	}); err != nil {
		return watching.Record{}, err
	}
	return record, readErr
}

// CloseHandle closes a handle. Closing a directory handle cancels every
// outstanding request on its watch.
func (s *Server) CloseHandle(ctx context.Context, h handle.Handle) error {
	var closeErr error
	if err := s.call(ctx, func() {
		closeErr = s.handles.Close(h)
	}); err != nil {
		return err
	}
	return closeErr
}

// Backend returns the kind of the selected backend. It returns
// backend.KindUnavailable until the first watch is armed.
func (s *Server) Backend(ctx context.Context) (backend.Kind, error) {
	var kind backend.Kind
	if err := s.call(ctx, func() {
		kind = s.engine.Kind()
	}); err != nil {
		return backend.KindUnavailable, err
	}
	return kind, nil
}
