package backend

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// fsnotifyWatcher implements Watcher on top of fsnotify. Since fsnotify reports
// events by path, the watcher maintains its own handle bookkeeping and derives
// the watched directory and entry name from each event path.
type fsnotifyWatcher struct {
	// watcher is the underlying fsnotify watcher.
	watcher *fsnotify.Watcher
	// lock serializes access to the handle bookkeeping, which is shared with
	// the forwarding loop.
	lock sync.Mutex
	// nextHandle is the next handle to allocate.
	nextHandle Handle
	// handles maps watched paths to their handles.
	handles map[string]Handle
	// paths maps handles to their watched paths.
	paths map[Handle]string
	// directories is the set of entry paths within watched directories that
	// are known to be directories. Removed and renamed entries can't be
	// inspected, so their type is recovered from this set.
	directories map[string]bool
	// events is the event batch delivery channel.
	events chan []Event
	// errors is the error delivery channel.
	errors chan error
	// terminated is closed when the watcher is terminated.
	terminated chan struct{}
	// terminateOnce guards termination.
	terminateOnce sync.Once
	// done tracks forwarding loop completion.
	done sync.WaitGroup
}

// newFsnotifyWatcher creates a new fsnotify-based watcher.
func newFsnotifyWatcher(eventBuffer int) (*fsnotifyWatcher, error) {
	// Create the underlying watcher.
	underlying, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create fsnotify watcher")
	}

	// Create the watcher.
	watcher := &fsnotifyWatcher{
		watcher:    underlying,
		nextHandle: 1,
		handles:    make(map[string]Handle),
		paths:       make(map[Handle]string),
		directories: make(map[string]bool),
		events:      make(chan []Event, eventBuffer),
		errors:      make(chan error, 1),
		terminated:  make(chan struct{}),
	}

	// Start the forwarding loop.
	watcher.done.Add(1)
	go func() {
		if err := watcher.run(); err != nil {
			select {
			case watcher.errors <- err:
			default:
			}
		}
		watcher.done.Done()
	}()

	// Success.
	return watcher, nil
}

// fsnotifyCategories converts an fsnotify operation to categories. Since
// fsnotify reports the destination of a rename as a creation, moved-to is never
// reported.
func fsnotifyCategories(operation fsnotify.Op) Category {
	var categories Category
	if operation.Has(fsnotify.Create) {
		categories |= CategoryCreate
	}
	if operation.Has(fsnotify.Write) {
		categories |= CategoryModify
	}
	if operation.Has(fsnotify.Remove) {
		categories |= CategoryDelete
	}
	if operation.Has(fsnotify.Rename) {
		categories |= CategoryMovedFrom
	}
	if operation.Has(fsnotify.Chmod) {
		categories |= CategoryAttributes
	}
	return categories
}

// translate converts an fsnotify event into a raw event. It returns false if
// the event doesn't correspond to a watched directory.
func (w *fsnotifyWatcher) translate(event fsnotify.Event) (Event, bool) {
	// Compute the categories.
	categories := fsnotifyCategories(event.Op)
	if categories == 0 {
		return Event{}, false
	}

	// Look up the watched directory.
	w.lock.Lock()
	parent, parentWatched := w.handles[filepath.Dir(event.Name)]
	self, selfWatched := w.handles[event.Name]
	w.lock.Unlock()

	// Events on an entry within a watched directory are attributed to that
	// directory. Since fsnotify doesn't report entry types, creations are
	// inspected and removals and renames are resolved against the set of known
	// directories.
	if parentWatched {
		if categories&CategoryCreate != 0 {
			if metadata, err := os.Lstat(event.Name); err == nil && metadata.IsDir() {
				categories |= CategoryDirectory
				w.lock.Lock()
				w.directories[event.Name] = true
				w.lock.Unlock()
			}
		}
		if categories&(CategoryDelete|CategoryMovedFrom) != 0 {
			w.lock.Lock()
			if w.directories[event.Name] {
				categories |= CategoryDirectory
				delete(w.directories, event.Name)
			}
			w.lock.Unlock()
		}
		return Event{
			Handle:     parent,
			Categories: categories,
			Name:       filepath.Base(event.Name),
		}, true
	}

	// Removals and renames of the watched directory itself are reported as
	// self events.
	if selfWatched {
		var selfCategories Category
		if categories&CategoryDelete != 0 {
			selfCategories |= CategoryDeleteSelf
		}
		if categories&CategoryMovedFrom != 0 {
			selfCategories |= CategoryMoveSelf
		}
		if selfCategories != 0 {
			return Event{Handle: self, Categories: selfCategories}, true
		}
	}

	// The event isn't relevant.
	return Event{}, false
}

// run implements the forwarding loop for fsnotifyWatcher.
func (w *fsnotifyWatcher) run() error {
	for {
		select {
		case <-w.terminated:
			return ErrTerminated
		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("fsnotify events channel closed")
			}
			if translated, relevant := w.translate(event); relevant {
				select {
				case w.events <- []Event{translated}:
				case <-w.terminated:
					return ErrTerminated
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("fsnotify errors channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				select {
				case w.events <- []Event{{Handle: -1, Categories: CategoryOverflow}}:
				case <-w.terminated:
					return ErrTerminated
				}
				continue
			}
			return errors.Wrap(err, "fsnotify watch error")
		}
	}
}

// Watch implements Watcher.Watch. The fsnotify API doesn't support category
// selection, so all categories are watched.
func (w *fsnotifyWatcher) Watch(path string, categories Category) (Handle, error) {
	// Validate the categories.
	if categories == 0 {
		return -1, errors.New("no categories specified")
	}

	// Check for an existing watch.
	path = filepath.Clean(path)
	w.lock.Lock()
	handle, ok := w.handles[path]
	w.lock.Unlock()
	if ok {
		return handle, nil
	}

	// Establish the watch.
	if err := w.watcher.Add(path); err != nil {
		return -1, err
	}

	// Record the existing subdirectories. A listing failure only means that
	// their later removal will be reported without the directory category.
	entries, _ := os.ReadDir(path)

	// Allocate a handle.
	w.lock.Lock()
	handle = w.nextHandle
	w.nextHandle++
	w.handles[path] = handle
	w.paths[handle] = path
	for _, entry := range entries {
		if entry.IsDir() {
			w.directories[filepath.Join(path, entry.Name())] = true
		}
	}
	w.lock.Unlock()

	// Success.
	return handle, nil
}

// Unwatch implements Watcher.Unwatch.
func (w *fsnotifyWatcher) Unwatch(handle Handle) error {
	// Look up and remove the handle bookkeeping.
	w.lock.Lock()
	path, ok := w.paths[handle]
	if ok {
		delete(w.paths, handle)
		delete(w.handles, path)
		for entry := range w.directories {
			if filepath.Dir(entry) == path {
				delete(w.directories, entry)
			}
		}
	}
	w.lock.Unlock()
	if !ok {
		return errors.New("unknown handle")
	}

	// Remove the watch.
	return w.watcher.Remove(path)
}

// Events implements Watcher.Events.
func (w *fsnotifyWatcher) Events() <-chan []Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *fsnotifyWatcher) Errors() <-chan error {
	return w.errors
}

// Terminate implements Watcher.Terminate.
func (w *fsnotifyWatcher) Terminate() error {
	var err error
	w.terminateOnce.Do(func() {
		close(w.terminated)
		w.done.Wait()
		err = w.watcher.Close()
	})
	return err
}
