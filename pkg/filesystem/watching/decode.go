package watching

import (
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
)

// Process decodes a batch of raw backend events, updating the tree and
// delivering change records to interested watches.
func (e *Engine) Process(events []backend.Event) {
	for _, event := range events {
		e.decode(event)
	}
}

// decode decodes a single raw backend event.
func (e *Engine) decode(event backend.Event) {
	e.logger.Tracef("Decoding %s event for handle %d (name %q)", event.Categories, event.Handle, event.Name)

	// Handle queue overflows.
	if event.Categories&backend.CategoryOverflow != 0 {
		e.logger.Warnf("Backend event queue overflowed, changes were lost")
		return
	}

	// Resolve the handle.
	index, ok := e.tree.byHandle[event.Handle]
	if !ok {
		e.logger.Debugf("Dropping %s event for unknown handle %d", event.Categories, event.Handle)
		return
	}

	// If the host removed the watch, then forget the handle.
	if event.Categories&backend.CategoryIgnored != 0 {
		delete(e.tree.byHandle, event.Handle)
		e.tree.nodes[index].watched = false
		return
	}

	// Events concerning the watched directory itself don't produce records.
	// Its parent (if watched) reports the corresponding name change.
	if event.Categories&backend.CategorySelf != 0 || event.Name == "" {
		return
	}
	name := normalizeName(event.Name)

	// Discover new subdirectories.
	if event.Categories&(backend.CategoryCreate|backend.CategoryMovedTo) != 0 &&
		event.Categories&backend.CategoryDirectory != 0 {
		e.discover(index, name)
	}

	// Deliver to interested watches.
	if filter := filterForEvent(event.Categories); filter != 0 {
		e.notify(index, filter, actionForEvent(event.Categories), name)
	}

	// Release the nodes of directories that are gone.
	if event.Categories&(backend.CategoryDelete|backend.CategoryMovedFrom) != 0 {
		if child, ok := e.tree.nodes[index].children[name]; ok {
			e.releaseSubtree(child)
		}
	}
}

// notify delivers a change to every watch attached to a node or its ancestors
// whose filter intersects the change filter. Ancestor watches only receive the
// change if they're recursive.
func (e *Engine) notify(index int, filter Filter, action Action, name string) {
	segments := []string{name}
	for i := index; i >= 0; i = e.tree.nodes[i].parent {
		var path string
		for _, w := range e.tree.nodes[i].watchers {
			if w.filter&filter == 0 || (i != index && !w.recursive) {
				continue
			}
			if path == "" {
				path = joinSegments(segments)
			}
			w.deliver(action, path)
		}
		segments = append(segments, e.tree.nodes[i].name)
	}
}
