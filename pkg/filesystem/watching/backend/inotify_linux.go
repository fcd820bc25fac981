package backend

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/pkg/errors"

	"golang.org/x/sys/unix"
)

const (
	// inotifyReadBufferSize is the size of the buffer used to read raw inotify
	// events. It's large enough for 4096 events with short names.
	inotifyReadBufferSize = 4096 * (unix.SizeofInotifyEvent + 16)
)

// inotifyCategories maps inotify mask bits to categories.
var inotifyCategories = []struct {
	// mask is the inotify mask bit.
	mask uint32
	// category is the corresponding category.
	category Category
}{
	{unix.IN_ACCESS, CategoryAccess},
	{unix.IN_MODIFY, CategoryModify},
	{unix.IN_ATTRIB, CategoryAttributes},
	{unix.IN_CREATE, CategoryCreate},
	{unix.IN_DELETE, CategoryDelete},
	{unix.IN_MOVED_FROM, CategoryMovedFrom},
	{unix.IN_MOVED_TO, CategoryMovedTo},
	{unix.IN_DELETE_SELF, CategoryDeleteSelf},
	{unix.IN_MOVE_SELF, CategoryMoveSelf},
	{unix.IN_ISDIR, CategoryDirectory},
	{unix.IN_IGNORED, CategoryIgnored},
	{unix.IN_Q_OVERFLOW, CategoryOverflow},
}

// inotifyMask converts categories to an inotify watch mask.
func inotifyMask(categories Category) uint32 {
	var mask uint32
	for _, entry := range inotifyCategories {
		if categories&entry.category != 0 {
			mask |= entry.mask
		}
	}
	return mask &^ (unix.IN_ISDIR | unix.IN_IGNORED | unix.IN_Q_OVERFLOW)
}

// inotifyEventCategories converts an inotify event mask to categories.
func inotifyEventCategories(mask uint32) Category {
	var categories Category
	for _, entry := range inotifyCategories {
		if mask&entry.mask != 0 {
			categories |= entry.category
		}
	}
	return categories
}

// parseInotifyEvents decodes a buffer of raw inotify events. The layout of
// each record is:
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded
//	};
func parseInotifyEvents(buffer []byte) ([]Event, error) {
	var events []Event
	for offset := 0; offset < len(buffer); {
		// Ensure that a complete header is present.
		if offset+unix.SizeofInotifyEvent > len(buffer) {
			return events, errors.New("truncated inotify event header")
		}

		// Decode the header.
		header := buffer[offset : offset+unix.SizeofInotifyEvent]
		wd := int32(binary.NativeEndian.Uint32(header[0:4]))
		mask := binary.NativeEndian.Uint32(header[4:8])
		cookie := binary.NativeEndian.Uint32(header[8:12])
		nameLength := int(binary.NativeEndian.Uint32(header[12:16]))

		// Ensure that the name is present and extract it.
		end := offset + unix.SizeofInotifyEvent + nameLength
		if end > len(buffer) {
			return events, errors.New("truncated inotify event name")
		}
		name := buffer[offset+unix.SizeofInotifyEvent : end]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}

		// Record the event.
		events = append(events, Event{
			Handle:     Handle(wd),
			Categories: inotifyEventCategories(mask),
			Cookie:     cookie,
			Name:       string(name),
		})

		// Advance to the next record.
		offset = end
	}
	return events, nil
}

// inotifyWatcher implements Watcher using a raw inotify descriptor.
type inotifyWatcher struct {
	// descriptor is the inotify descriptor. It's owned by file.
	descriptor int
	// file wraps the descriptor for integration with the runtime poller.
	file *os.File
	// events is the event batch delivery channel.
	events chan []Event
	// errors is the error delivery channel.
	errors chan error
	// terminated is closed when the watcher is terminated.
	terminated chan struct{}
	// terminateOnce guards termination.
	terminateOnce sync.Once
	// done tracks read loop completion.
	done sync.WaitGroup
}

// newInotifyWatcher creates a new inotify-based watcher.
func newInotifyWatcher(eventBuffer int) (*inotifyWatcher, error) {
	// Create the inotify descriptor. Because it's non-blocking, wrapping it in
	// an os.File registers it with the runtime poller.
	descriptor, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize inotify")
	}

	// Create the watcher.
	watcher := &inotifyWatcher{
		descriptor: descriptor,
		file:       os.NewFile(uintptr(descriptor), "inotify"),
		events:     make(chan []Event, eventBuffer),
		errors:     make(chan error, 1),
		terminated: make(chan struct{}),
	}

	// Start the read loop.
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

// run implements the read loop for inotifyWatcher.
func (w *inotifyWatcher) run() error {
	buffer := make([]byte, inotifyReadBufferSize)
	for {
		// Read the next set of events. Reads only return complete events.
		count, err := w.file.Read(buffer)
		if err != nil {
			select {
			case <-w.terminated:
				return ErrTerminated
			default:
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return errors.Wrap(err, "unable to read inotify events")
		}

		// Decode the events.
		events, err := parseInotifyEvents(buffer[:count])
		if err != nil {
			return err
		}

		// Deliver the batch.
		select {
		case w.events <- events:
		case <-w.terminated:
			return ErrTerminated
		}
	}
}

// Watch implements Watcher.Watch.
func (w *inotifyWatcher) Watch(path string, categories Category) (Handle, error) {
	// Compute the mask. We only watch directories and we don't want events for
	// entries that have been unlinked but remain open.
	mask := inotifyMask(categories)
	if mask == 0 {
		return -1, errors.New("no categories specified")
	}
	mask |= unix.IN_ONLYDIR | unix.IN_EXCL_UNLINK

	// Establish the watch.
	wd, err := unix.InotifyAddWatch(w.descriptor, path, mask)
	if err != nil {
		return -1, err
	}
	return Handle(wd), nil
}

// Unwatch implements Watcher.Unwatch.
func (w *inotifyWatcher) Unwatch(handle Handle) error {
	_, err := unix.InotifyRmWatch(w.descriptor, uint32(handle))
	return err
}

// Events implements Watcher.Events.
func (w *inotifyWatcher) Events() <-chan []Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *inotifyWatcher) Errors() <-chan error {
	return w.errors
}

// Terminate implements Watcher.Terminate.
func (w *inotifyWatcher) Terminate() error {
	var err error
	w.terminateOnce.Do(func() {
		// Signal termination.
		close(w.terminated)

		// Close the descriptor, which will unblock the read loop.
		err = w.file.Close()

		// Wait for the read loop to exit.
		w.done.Wait()
	})
	return err
}
