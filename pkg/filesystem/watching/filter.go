package watching

import (
	"strings"

	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
)

// Filter is a change category filter, using the bit assignments of the
// FILE_NOTIFY_CHANGE_* vocabulary.
type Filter uint32

const (
	// FilterFileName selects changes to the names of files.
	FilterFileName Filter = 0x1
	// FilterDirectoryName selects changes to the names of directories.
	FilterDirectoryName Filter = 0x2
	// FilterAttributes selects attribute changes.
	FilterAttributes Filter = 0x4
	// FilterSize selects size changes.
	FilterSize Filter = 0x8
	// FilterLastWrite selects last-write time changes.
	FilterLastWrite Filter = 0x10
	// FilterLastAccess selects last-access time changes.
	FilterLastAccess Filter = 0x20
	// FilterCreation selects creation time changes.
	FilterCreation Filter = 0x40
	// FilterSecurity selects security descriptor changes.
	FilterSecurity Filter = 0x100

	// FilterAll is the union of all filter bits.
	FilterAll = FilterFileName | FilterDirectoryName | FilterAttributes |
		FilterSize | FilterLastWrite | FilterLastAccess | FilterCreation |
		FilterSecurity
)

// filterNames associates filter bits with their names, in bit order.
var filterNames = []struct {
	filter Filter
	name   string
}{
	{FilterFileName, "name"},
	{FilterDirectoryName, "dir"},
	{FilterAttributes, "attributes"},
	{FilterSize, "size"},
	{FilterLastWrite, "write"},
	{FilterLastAccess, "access"},
	{FilterCreation, "creation"},
	{FilterSecurity, "security"},
}

// ParseFilterName converts a single filter name to a filter bit.
func ParseFilterName(name string) (Filter, bool) {
	for _, entry := range filterNames {
		if entry.name == name {
			return entry.filter, true
		}
	}
	return 0, false
}

// String provides a human-readable representation of a filter.
func (f Filter) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, entry := range filterNames {
		if f&entry.filter != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, ",")
}

// categories converts a filter to the raw event categories needed to observe
// it.
func (f Filter) categories() backend.Category {
	var categories backend.Category
	if f&FilterFileName != 0 {
		categories |= backend.CategoryName
	}
	if f&FilterDirectoryName != 0 {
		categories |= backend.CategoryName | backend.CategoryDeleteSelf
	}
	if f&(FilterAttributes|FilterSecurity) != 0 {
		categories |= backend.CategoryAttributes
	}
	if f&(FilterSize|FilterLastWrite) != 0 {
		categories |= backend.CategoryModify
	}
	if f&FilterLastAccess != 0 {
		categories |= backend.CategoryAccess
	}
	if f&FilterCreation != 0 {
		categories |= backend.CategoryCreate
	}
	return categories
}

// filterForEvent computes the filter bits affected by a raw event. Name bits
// are narrowed to either files or directories depending on the subject of the
// event.
func filterForEvent(categories backend.Category) Filter {
	var filter Filter
	if categories&backend.CategoryName != 0 {
		filter |= FilterFileName | FilterDirectoryName
	}
	if categories&backend.CategoryModify != 0 {
		filter |= FilterSize | FilterLastWrite
	}
	if categories&backend.CategoryAttributes != 0 {
		filter |= FilterAttributes | FilterSecurity
	}
	if categories&backend.CategoryAccess != 0 {
		filter |= FilterLastAccess
	}
	if categories&backend.CategoryCreate != 0 {
		filter |= FilterCreation
	}
	if categories&backend.CategoryDirectory != 0 {
		filter &^= FilterFileName
	} else {
		filter &^= FilterDirectoryName
	}
	return filter
}

// Action is the action reported by a change record.
type Action uint32

const (
	// ActionAdded indicates that an entry appeared.
	ActionAdded Action = 1
	// ActionRemoved indicates that an entry disappeared.
	ActionRemoved Action = 2
	// ActionModified indicates that an entry changed in place.
	ActionModified Action = 3
)

// String provides a human-readable representation of an action.
func (a Action) String() string {
	switch a {
	case ActionAdded:
		return "added"
	case ActionRemoved:
		return "removed"
	case ActionModified:
		return "modified"
	default:
		return "unknown"
	}
}

// actionForEvent computes the action for a raw event. Renames are reported as
// independent removals and additions since cookies aren't correlated.
func actionForEvent(categories backend.Category) Action {
	switch {
	case categories&backend.CategoryCreate != 0:
		return ActionAdded
	case categories&backend.CategoryDelete != 0:
		return ActionRemoved
	case categories&backend.CategoryMovedFrom != 0:
		return ActionRemoved
	case categories&backend.CategoryMovedTo != 0:
		return ActionAdded
	default:
		return ActionModified
	}
}

// Record is a change record awaiting delivery.
type Record struct {
	// Action is the change action.
	Action Action
	// Path is the slash-separated path of the changed entry, relative to the
	// watched directory.
	Path string
}
