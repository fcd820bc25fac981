//go:build !windows

package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mutagen-io/dirnotify/pkg/async"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
	"github.com/mutagen-io/dirnotify/pkg/handle"
)

const (
	// maximumEventWaitTime is the maximum amount of time that tests will wait
	// for a request to complete.
	maximumEventWaitTime = 5 * time.Second
)

// startServer creates and runs a server, arranging for its termination.
func startServer(t *testing.T, selector watching.Selector) *Server {
	t.Helper()
	server := New(nil, selector, watching.Options{})
	runErrors := make(chan error, 1)
	go func() {
		runErrors <- server.Run(context.Background())
	}()
	t.Cleanup(func() {
		server.Terminate()
		if err := <-runErrors; !errors.Is(err, ErrTerminated) {
			t.Error("unexpected run error:", err)
		}
	})
	return server
}

// TestArmInvalidParameter tests that arming with an empty filter fails.
func TestArmInvalidParameter(t *testing.T) {
	server := startServer(t, backend.Unavailable)
	ctx := context.Background()

	// Open a directory.
	directory, err := server.OpenDirectory(ctx, t.TempDir(), handle.AccessAll)
	if err != nil {
		t.Fatal("unable to open directory:", err)
	}

	// Attempt to arm with an empty filter.
	if _, err := server.ArmWatch(ctx, directory, ArmRequest{Asynchronous: true}); !errors.Is(err, watching.ErrInvalidParameter) {
		t.Fatal("unexpected arm result:", err)
	} else if async.StatusOf(err) != async.StatusInvalidParameter {
		t.Error("unexpected status:", async.StatusOf(err))
	}

	// Verify that no backend was selected.
	if kind, err := server.Backend(ctx); err != nil {
		t.Fatal("unable to query backend:", err)
	} else if kind != backend.KindUnavailable {
		t.Error("unexpected backend kind:", kind)
	}
}

// TestHandleValidation tests handle resolution failures.
func TestHandleValidation(t *testing.T) {
	server := startServer(t, backend.Unavailable)
	ctx := context.Background()

	// Create objects.
	directory, err := server.OpenDirectory(ctx, t.TempDir(), handle.AccessSynchronize)
	if err != nil {
		t.Fatal("unable to open directory:", err)
	}
	event, _, err := server.CreateEvent(ctx, false)
	if err != nil {
		t.Fatal("unable to create event:", err)
	}

	// Verify failures.
	request := ArmRequest{Filter: watching.FilterFileName}
	if _, err := server.ArmWatch(ctx, 999, request); !errors.Is(err, handle.ErrInvalidHandle) {
		t.Error("unknown handle accepted:", err)
	}
	if _, err := server.ArmWatch(ctx, directory, request); !errors.Is(err, handle.ErrAccessDenied) {
		t.Error("handle without access accepted:", err)
	}
	if _, err := server.ArmWatch(ctx, event, request); !errors.Is(err, ErrObjectTypeMismatch) {
		t.Error("event handle accepted as directory:", err)
	}
	if _, err := server.ReadChange(ctx, event); !errors.Is(err, ErrObjectTypeMismatch) {
		t.Error("event handle accepted for read:", err)
	}
	if err := server.CloseHandle(ctx, 999); !errors.Is(err, handle.ErrInvalidHandle) {
		t.Error("unknown handle closed:", err)
	}
}

// TestCloseCancelsRequest tests that closing a directory handle cancels its
// outstanding request and sets its event.
func TestCloseCancelsRequest(t *testing.T) {
	server := startServer(t, backend.Unavailable)
	ctx := context.Background()

	// Open a directory and create an event.
	directory, err := server.OpenDirectory(ctx, t.TempDir(), handle.AccessAll)
	if err != nil {
		t.Fatal("unable to open directory:", err)
	}
	eventHandle, event, err := server.CreateEvent(ctx, true)
	if err != nil {
		t.Fatal("unable to create event:", err)
	}

	// Arm the watch.
	request, err := server.ArmWatch(ctx, directory, ArmRequest{
		Filter:       watching.FilterFileName,
		WantDetail:   true,
		Event:        eventHandle,
		Asynchronous: true,
	})
	if err != nil {
		t.Fatal("unable to arm watch:", err)
	} else if request == nil {
		t.Fatal("no request returned")
	}
	if event.Signaled() {
		t.Error("event not reset by arm")
	}
	if _, err := server.ReadChange(ctx, directory); !errors.Is(err, watching.ErrNoData) {
		t.Error("unexpected read result:", err)
	}

	// Close the directory and verify cancellation.
	if err := server.CloseHandle(ctx, directory); err != nil {
		t.Fatal("unable to close directory:", err)
	}
	select {
	case <-request.Done():
	case <-time.After(maximumEventWaitTime):
		t.Fatal("request not completed")
	}
	if request.Status() != async.StatusCancelled {
		t.Error("request not cancelled:", request.Status())
	}
	if !event.Signaled() {
		t.Error("event not set")
	}
}

// TestTerminatedServer tests that requests fail once the server terminates.
func TestTerminatedServer(t *testing.T) {
	server := New(nil, backend.Unavailable, watching.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	runErrors := make(chan error, 1)
	go func() {
		runErrors <- server.Run(ctx)
	}()
	cancel()
	if err := <-runErrors; !errors.Is(err, context.Canceled) {
		t.Error("unexpected run error:", err)
	}
	if _, err := server.Backend(context.Background()); !errors.Is(err, ErrTerminated) {
		t.Error("terminated server accepted request:", err)
	}
}

// TestRecursiveChanges tests end-to-end recursive change delivery using the
// platform's modern backend.
func TestRecursiveChanges(t *testing.T) {
	// Probe for a modern backend.
	selection := backend.Probe(backend.PreferenceAuto, backend.Options{})
	if selection.Kind != backend.KindModern {
		selection.Terminate()
		t.Skip("modern backend unavailable")
	}
	server := startServer(t, func() *backend.Selection { return selection })
	ctx := context.Background()

	// Open and arm the directory.
	root := t.TempDir()
	directory, err := server.OpenDirectory(ctx, root, handle.AccessAll)
	if err != nil {
		t.Fatal("unable to open directory:", err)
	}
	arm := ArmRequest{
		Filter:       watching.FilterFileName | watching.FilterDirectoryName,
		Recursive:    true,
		WantDetail:   true,
		Asynchronous: true,
	}

	// waitFor re-arms the watch until the expected record arrives.
	waitFor := func(expected watching.Record) {
		t.Helper()
		deadline := time.After(maximumEventWaitTime)
		for {
			request, err := server.ArmWatch(ctx, directory, arm)
			if err != nil {
				t.Fatal("unable to arm watch:", err)
			}
			select {
			case <-request.Done():
			case <-deadline:
				t.Fatalf("record %+v not received in time", expected)
			}
			for {
				record, err := server.ReadChange(ctx, directory)
				if errors.Is(err, watching.ErrNoData) {
					break
				} else if err != nil {
					t.Fatal("unable to read change:", err)
				} else if record == expected {
					return
				}
			}
		}
	}

	// Arm once without a request to establish the watch, then perform
	// changes.
	initial := arm
	initial.Asynchronous = false
	if request, err := server.ArmWatch(ctx, directory, initial); err != nil {
		t.Fatal("unable to arm watch:", err)
	} else if request != nil {
		t.Fatal("synchronous arm returned request")
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0700); err != nil {
		t.Fatal("unable to create subdirectory:", err)
	}
	waitFor(watching.Record{Action: watching.ActionAdded, Path: "sub"})
	if err := os.WriteFile(filepath.Join(root, "sub", "x"), nil, 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	waitFor(watching.Record{Action: watching.ActionAdded, Path: "sub/x"})
}
