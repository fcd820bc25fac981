package handle

import (
	"testing"

	"github.com/pkg/errors"
)

// testObject is a closable test object.
type testObject struct {
	// closed counts Close invocations.
	closed int
}

// Close implements io.Closer.Close.
func (o *testObject) Close() error {
	o.closed++
	return nil
}

// TestTableLifecycle tests allocation, lookup, and closure.
func TestTableLifecycle(t *testing.T) {
	table := NewTable()
	object := &testObject{}
	handle := table.Allocate(object, AccessListDirectory|AccessSynchronize)
	if handle == 0 {
		t.Fatal("zero handle allocated")
	}

	if resolved, err := table.Lookup(handle, AccessListDirectory); err != nil {
		t.Fatal("unable to look up handle:", err)
	} else if resolved != object {
		t.Error("lookup returned wrong object")
	}

	if _, err := table.Lookup(handle, AccessModifyState); !errors.Is(err, ErrAccessDenied) {
		t.Error("lookup without access did not fail with access denied:", err)
	}

	if err := table.Close(handle); err != nil {
		t.Fatal("unable to close handle:", err)
	} else if object.closed != 1 {
		t.Error("object not closed")
	}

	if _, err := table.Lookup(handle, 0); !errors.Is(err, ErrInvalidHandle) {
		t.Error("lookup of closed handle did not fail with invalid handle:", err)
	}
	if err := table.Close(handle); !errors.Is(err, ErrInvalidHandle) {
		t.Error("double close did not fail with invalid handle:", err)
	}
}

// TestTableCloseAll tests that every object is closed.
func TestTableCloseAll(t *testing.T) {
	table := NewTable()
	objects := []*testObject{{}, {}, {}}
	for _, object := range objects {
		table.Allocate(object, AccessAll)
	}
	if err := table.CloseAll(); err != nil {
		t.Fatal("unable to close all handles:", err)
	}
	for _, object := range objects {
		if object.closed != 1 {
			t.Error("object not closed exactly once")
		}
	}
	if table.Len() != 0 {
		t.Error("table not empty after closing all handles")
	}
}
