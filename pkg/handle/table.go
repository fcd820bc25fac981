// Package handle provides the handle table through which clients reference
// server objects.
package handle

import (
	"io"

	"github.com/mutagen-io/dirnotify/pkg/async"
)

var (
	// ErrInvalidHandle indicates that a handle does not refer to an object.
	ErrInvalidHandle = async.NewError(async.StatusInvalidHandle)
	// ErrAccessDenied indicates that a handle lacks the requested access.
	ErrAccessDenied = async.NewError(async.StatusAccessDenied)
)

// Handle is a client-visible object handle. The zero value is never allocated.
type Handle uint32

// Access is an access rights mask.
type Access uint32

const (
	// AccessListDirectory permits listing and watching a directory.
	AccessListDirectory Access = 0x0001
	// AccessModifyState permits setting and resetting an event.
	AccessModifyState Access = 0x0002
	// AccessSynchronize permits waiting on an object.
	AccessSynchronize Access = 0x00100000
	// AccessAll grants every access right.
	AccessAll Access = 0x001F01FF
)

// entry is a handle table entry.
type entry struct {
	// object is the referenced object.
	object io.Closer
	// access is the access granted through the handle.
	access Access
}

// Table maps handles to objects. It is not safe for concurrent usage.
type Table struct {
	// next is the next handle value to try.
	next Handle
	// entries are the live table entries.
	entries map[Handle]entry
}

// NewTable creates a new empty handle table.
func NewTable() *Table {
	return &Table{
		next:    1,
		entries: make(map[Handle]entry),
	}
}

// Allocate stores an object in the table with the specified access and returns
// its handle.
func (t *Table) Allocate(object io.Closer, access Access) Handle {
	// Find a free handle value, skipping zero on wraparound.
	for {
		candidate := t.next
		t.next++
		if t.next == 0 {
			t.next = 1
		}
		if _, taken := t.entries[candidate]; !taken && candidate != 0 {
			t.entries[candidate] = entry{object, access}
			return candidate
		}
	}
}

// Lookup resolves a handle to its object, verifying that the handle grants all
// of the required access.
func (t *Table) Lookup(handle Handle, required Access) (io.Closer, error) {
	entry, ok := t.entries[handle]
	if !ok {
		return nil, ErrInvalidHandle
	} else if entry.access&required != required {
		return nil, ErrAccessDenied
	}
	return entry.object, nil
}

// Close removes a handle from the table and closes its object.
func (t *Table) Close(handle Handle) error {
	entry, ok := t.entries[handle]
	if !ok {
		return ErrInvalidHandle
	}
	delete(t.entries, handle)
	return entry.object.Close()
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return len(t.entries)
}

// CloseAll closes every handle in the table, returning the first error
// encountered (if any).
func (t *Table) CloseAll() error {
	var first error
	for handle := range t.entries {
		if err := t.Close(handle); err != nil && first == nil {
			first = err
		}
	}
	return first
}
