package backend

import (
	"os"
	"os/signal"
	"sync"

	"github.com/pkg/errors"

	"golang.org/x/sys/unix"
)

// Linux dnotify event flags from <linux/fcntl.h>. The unix package exposes
// F_NOTIFY but not these values.
const (
	dnotifyAccess    = 0x00000001
	dnotifyModify    = 0x00000002
	dnotifyCreate    = 0x00000004
	dnotifyDelete    = 0x00000008
	dnotifyRename    = 0x00000010
	dnotifyAttrib    = 0x00000020
	dnotifyMultishot = 0x80000000
)

// dnotifyCategories maps categories to dnotify flags.
var dnotifyCategories = []struct {
	// category is the category.
	category Category
	// flags are the corresponding dnotify flags.
	flags uint32
}{
	{CategoryAccess, dnotifyAccess},
	{CategoryModify, dnotifyModify},
	{CategoryAttributes, dnotifyAttrib},
	{CategoryCreate, dnotifyCreate},
	{CategoryDelete, dnotifyDelete},
	{CategoryMovedFrom, dnotifyRename},
	{CategoryMovedTo, dnotifyRename},
}

// dnotifyFlags converts categories to persistent dnotify flags.
func dnotifyFlags(categories Category) uint32 {
	flags := uint32(dnotifyMultishot)
	for _, entry := range dnotifyCategories {
		if categories&entry.category != 0 {
			flags |= entry.flags
		}
	}
	return flags
}

// fcntlRetryingOnEINTR is a wrapper around fcntl with an integer argument that
// retries on EINTR errors.
func fcntlRetryingOnEINTR(descriptor uintptr, command, argument int) error {
	for {
		_, err := unix.FcntlInt(descriptor, command, argument)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// dnotifyNotifier implements Notifier using dnotify and SIGIO.
type dnotifyNotifier struct {
	// signals receives SIGIO notifications.
	signals chan os.Signal
	// handlerLock serializes access to handler.
	handlerLock sync.Mutex
	// handler is the installed notification handler.
	handler func()
	// terminated is closed when the notifier is terminated.
	terminated chan struct{}
	// terminateOnce guards termination.
	terminateOnce sync.Once
	// done tracks signal loop completion.
	done sync.WaitGroup
}

// dnotifySupported checks whether or not the kernel supports dnotify by
// clearing notifications on a scratch directory descriptor.
func dnotifySupported() error {
	directory, err := os.Open(os.TempDir())
	if err != nil {
		return errors.Wrap(err, "unable to open probe directory")
	}
	defer directory.Close()
	if err := fcntlRetryingOnEINTR(directory.Fd(), unix.F_NOTIFY, 0); err != nil {
		return errors.Wrap(err, "dnotify unsupported")
	}
	return nil
}

// newDnotifyNotifier creates a new dnotify-based notifier.
func newDnotifyNotifier() (*dnotifyNotifier, error) {
	// Verify kernel support.
	if err := dnotifySupported(); err != nil {
		return nil, err
	}

	// Create the notifier and register for signals before any descriptor is
	// armed, otherwise early signals would be ignored.
	notifier := &dnotifyNotifier{
		signals:    make(chan os.Signal, 1),
		terminated: make(chan struct{}),
	}
	signal.Notify(notifier.signals, unix.SIGIO)

	// Start the signal loop.
	notifier.done.Add(1)
	go notifier.run()

	// Success.
	return notifier, nil
}

// run implements the signal loop for dnotifyNotifier. Signals are coalesced by
// the runtime, so a single receive may stand in for several notifications.
func (n *dnotifyNotifier) run() {
	defer n.done.Done()
	for {
		select {
		case <-n.terminated:
			return
		case <-n.signals:
			n.handlerLock.Lock()
			handler := n.handler
			n.handlerLock.Unlock()
			if handler != nil {
				handler()
			}
		}
	}
}

// Arm implements Notifier.Arm.
func (n *dnotifyNotifier) Arm(descriptor uintptr, categories Category) error {
	// Route notifications for the descriptor to SIGIO.
	if err := fcntlRetryingOnEINTR(descriptor, unix.F_SETSIG, int(unix.SIGIO)); err != nil {
		return errors.Wrap(err, "unable to set notification signal")
	}

	// Request persistent notifications.
	if err := fcntlRetryingOnEINTR(descriptor, unix.F_NOTIFY, int(int32(dnotifyFlags(categories)))); err != nil {
		return errors.Wrap(err, "unable to request notifications")
	}

	// Success.
	return nil
}

// Disarm implements Notifier.Disarm.
func (n *dnotifyNotifier) Disarm(descriptor uintptr) error {
	return fcntlRetryingOnEINTR(descriptor, unix.F_NOTIFY, 0)
}

// Notify implements Notifier.Notify.
func (n *dnotifyNotifier) Notify(handler func()) {
	n.handlerLock.Lock()
	n.handler = handler
	n.handlerLock.Unlock()
}

// Terminate implements Notifier.Terminate.
func (n *dnotifyNotifier) Terminate() error {
	n.terminateOnce.Do(func() {
		signal.Stop(n.signals)
		close(n.terminated)
		n.done.Wait()
	})
	return nil
}
