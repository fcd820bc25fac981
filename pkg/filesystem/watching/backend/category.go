package backend

import (
	"strings"
)

// Category is a backend-neutral set of raw change categories.
type Category uint32

const (
	// CategoryAccess indicates that an entry was read.
	CategoryAccess Category = 1 << iota
	// CategoryModify indicates that an entry's content was modified.
	CategoryModify
	// CategoryAttributes indicates that an entry's metadata changed.
	CategoryAttributes
	// CategoryCreate indicates that an entry was created.
	CategoryCreate
	// CategoryDelete indicates that an entry was deleted.
	CategoryDelete
	// CategoryMovedFrom indicates that an entry was renamed away.
	CategoryMovedFrom
	// CategoryMovedTo indicates that an entry was renamed into place.
	CategoryMovedTo
	// CategoryDeleteSelf indicates that the watched directory was deleted.
	CategoryDeleteSelf
	// CategoryMoveSelf indicates that the watched directory was moved.
	CategoryMoveSelf
	// CategoryDirectory indicates that the subject of an event is a directory.
	CategoryDirectory
	// CategoryIgnored indicates that the host removed a watch.
	CategoryIgnored
	// CategoryOverflow indicates that the host event queue overflowed and that
	// events were lost.
	CategoryOverflow
)

const (
	// CategoryName is the set of categories that indicate a change in the set
	// of names within a directory.
	CategoryName = CategoryCreate | CategoryDelete | CategoryMovedFrom | CategoryMovedTo
	// CategorySelf is the set of categories that concern the watched directory
	// itself.
	CategorySelf = CategoryDeleteSelf | CategoryMoveSelf
)

// categoryNames are the names of individual categories, in bit order.
var categoryNames = []string{
	"access",
	"modify",
	"attributes",
	"create",
	"delete",
	"moved-from",
	"moved-to",
	"delete-self",
	"move-self",
	"directory",
	"ignored",
	"overflow",
}

// String provides a human-readable representation of a category set.
func (c Category) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for i, name := range categoryNames {
		if c&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
