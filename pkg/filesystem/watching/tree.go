package watching

import (
	"path/filepath"
	"strings"

	"github.com/mutagen-io/dirnotify/pkg/filesystem"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
)

// node is a tree node mirroring a host directory that's either directly
// watched or beneath a recursively watched directory.
type node struct {
	// live indicates whether or not the slot is in use.
	live bool
	// identity is the host identity of the directory.
	identity filesystem.Identity
	// watched indicates whether or not handle is valid.
	watched bool
	// handle is the backend watch handle.
	handle backend.Handle
	// name is the base name of the directory within its parent. It's only
	// valid if parent is non-negative.
	name string
	// parent is the index of the parent node, or -1 if the node is a root.
	parent int
	// children maps base names to child node indices.
	children map[string]int
	// watchers are the watches attached directly to the node.
	watchers []*Watch
}

// tree is an arena of nodes. Parents own their children: releasing a node
// releases every descendant that isn't directly watched and orphans those that
// are.
type tree struct {
	// nodes is the node arena.
	nodes []node
	// free are the indices of unused slots in nodes.
	free []int
	// byIdentity maps identities to the indices of every live node.
	byIdentity map[filesystem.Identity]int
	// byHandle maps backend handles to the indices of nodes holding them.
	byHandle map[backend.Handle]int
}

// newTree creates a new empty tree.
func newTree() *tree {
	return &tree{
		byIdentity: make(map[filesystem.Identity]int),
		byHandle:   make(map[backend.Handle]int),
	}
}

// acquire returns the index of the node with the specified identity, creating
// a root node if none exists.
func (t *tree) acquire(identity filesystem.Identity) int {
	// Check for an existing node.
	if index, ok := t.byIdentity[identity]; ok {
		return index
	}

	// Grab a slot.
	var index int
	if count := len(t.free); count > 0 {
		index = t.free[count-1]
		t.free = t.free[:count-1]
	} else {
		index = len(t.nodes)
		t.nodes = append(t.nodes, node{})
	}

	// Initialize the node and register it.
	t.nodes[index] = node{
		live:     true,
		identity: identity,
		parent:   -1,
		children: make(map[string]int),
	}
	t.byIdentity[identity] = index

	// Done.
	return index
}

// link makes child a child of parent under the specified name, detaching it
// from any previous parent.
func (t *tree) link(parent, child int, name string) {
	t.unlink(child)
	t.nodes[child].parent = parent
	t.nodes[child].name = name
	t.nodes[parent].children[name] = child
}

// unlink detaches a node from its parent, if any.
func (t *tree) unlink(index int) {
	n := &t.nodes[index]
	if n.parent < 0 {
		return
	}
	if siblings := t.nodes[n.parent].children; siblings[n.name] == index {
		delete(siblings, n.name)
	}
	n.parent = -1
	n.name = ""
}

// isAncestor returns whether or not candidate is index or one of its
// ancestors.
func (t *tree) isAncestor(candidate, index int) bool {
	for i := index; i >= 0; i = t.nodes[i].parent {
		if i == candidate {
			return true
		}
	}
	return false
}

// children returns a copy of the child indices of a node.
func (t *tree) childIndices(index int) []int {
	children := make([]int, 0, len(t.nodes[index].children))
	for _, child := range t.nodes[index].children {
		children = append(children, child)
	}
	return children
}

// discard frees a node's slot. The node must already be unlinked, childless,
// and without a backend handle.
func (t *tree) discard(index int) {
	delete(t.byIdentity, t.nodes[index].identity)
	t.nodes[index] = node{parent: -1}
	t.free = append(t.free, index)
}

// ownFilter returns the union of the filters of the watches attached directly
// to a node.
func (t *tree) ownFilter(index int) Filter {
	var filter Filter
	for _, w := range t.nodes[index].watchers {
		filter |= w.filter
	}
	return filter
}

// subtreeFilter returns the union of the filters of the recursive watches
// attached to a node and to each of its ancestors. This is the filter that the
// node's children inherit.
func (t *tree) subtreeFilter(index int) Filter {
	var filter Filter
	for i := index; i >= 0; i = t.nodes[i].parent {
		for _, w := range t.nodes[i].watchers {
			if w.recursive {
				filter |= w.filter
			}
		}
	}
	return filter
}

// inheritedFilter returns the filter that a node inherits from its ancestors.
func (t *tree) inheritedFilter(index int) Filter {
	if parent := t.nodes[index].parent; parent >= 0 {
		return t.subtreeFilter(parent)
	}
	return 0
}

// effectiveFilter returns the effective filter for a node.
func (t *tree) effectiveFilter(index int) Filter {
	return t.ownFilter(index) | t.inheritedFilter(index)
}

// mask computes the backend categories required for a node. Nodes covered by
// recursive interest always observe name changes so that new subdirectories
// can be discovered.
func (t *tree) mask(index int) backend.Category {
	filter := t.effectiveFilter(index)
	if filter == 0 {
		return 0
	}
	categories := filter.categories()
	if t.subtreeFilter(index) != 0 {
		categories |= backend.CategoryName
	}
	return categories
}

// path returns a path that can be used to reach a node's directory. Paths of
// directly watched nodes come from their first watcher and the paths of other
// nodes are derived from their parents.
func (t *tree) path(index int) (string, bool) {
	n := &t.nodes[index]
	if len(n.watchers) > 0 {
		return n.watchers[0].descriptor.Path(), true
	}
	if n.parent < 0 {
		return "", false
	}
	parent, ok := t.path(n.parent)
	if !ok {
		return "", false
	}
	return filepath.Join(parent, n.name), true
}

// joinSegments joins path segments collected from leaf to root into a
// slash-separated relative path.
func joinSegments(segments []string) string {
	if len(segments) == 1 {
		return segments[0]
	}
	var builder strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		builder.WriteString(segments[i])
		if i > 0 {
			builder.WriteByte('/')
		}
	}
	return builder.String()
}

// refresh establishes, updates, or removes the backend watch for a node so
// that it matches the node's current mask.
func (e *Engine) refresh(index int) {
	// Only modern backends hold per-node state.
	watcher := e.watcher()
	if watcher == nil {
		return
	}
	n := &e.tree.nodes[index]

	// If there's no interest in the node, then remove any watch.
	mask := e.tree.mask(index)
	if mask == 0 {
		e.unwatch(index)
		return
	}

	// Compute the node path.
	path, ok := e.tree.path(index)
	if !ok {
		e.logger.Debugf("Unable to compute path for %s", n.identity)
		return
	}

	// Establish or update the watch.
	handle, err := watcher.Watch(path, mask)
	if err != nil {
		e.logger.Debugf("Unable to watch %s: %v", path, err)
		return
	}

	// Ensure that the handle isn't already held by another node. This can
	// happen if the path was swapped for a different directory underneath us.
	if owner, ok := e.tree.byHandle[handle]; ok && owner != index {
		e.logger.Debugf("Handle %d for %s already held by %s", handle, path, e.tree.nodes[owner].identity)
		return
	}

	// Record the handle.
	if n.watched && n.handle != handle {
		delete(e.tree.byHandle, n.handle)
	}
	n.watched = true
	n.handle = handle
	e.tree.byHandle[handle] = index
}

// unwatch removes the backend watch for a node, if any.
func (e *Engine) unwatch(index int) {
	n := &e.tree.nodes[index]
	if !n.watched {
		return
	}
	delete(e.tree.byHandle, n.handle)
	n.watched = false
	if watcher := e.watcher(); watcher != nil {
		if err := watcher.Unwatch(n.handle); err != nil {
			e.logger.Debugf("Unable to remove watch %d: %v", n.handle, err)
		}
	}
}

// discover checks whether or not the entry with the specified name inside a
// node's directory is a directory that should be watched on behalf of recursive
// watches, and if so, creates (or re-parents) its node, watches it, and scans
// its own subdirectories. Failures result in the entry being silently ignored.
func (e *Engine) discover(parent int, name string) {
	// Ensure that there's inherited interest.
	if e.tree.subtreeFilter(parent) == 0 {
		return
	}

	// Compute the entry path.
	parentPath, ok := e.tree.path(parent)
	if !ok {
		return
	}
	path := filepath.Join(parentPath, name)

	// Ensure that the entry is a directory.
	identity, directory, err := filesystem.Stat(path)
	if err != nil {
		e.logger.Debugf("Unable to inspect %s: %v", path, err)
		return
	} else if !directory {
		return
	}

	// If an existing child with this name refers to a different directory,
	// then it's stale.
	if stale, ok := e.tree.nodes[parent].children[name]; ok && e.tree.nodes[stale].identity != identity {
		e.releaseSubtree(stale)
	}

	// Grab the node and link it, refusing to create cycles.
	index := e.tree.acquire(identity)
	if e.tree.isAncestor(index, parent) {
		e.logger.Debugf("Refusing to link %s beneath itself", path)
		return
	}
	e.tree.link(parent, index, name)

	// Watch the directory.
	e.refresh(index)

	// Scan for subdirectories created before the watch was established.
	e.scan(index, path)
}

// scan discovers the subdirectories of a node's directory.
func (e *Engine) scan(index int, path string) {
	names, err := filesystem.ReadSubdirectories(path)
	if err != nil {
		e.logger.Debugf("Unable to scan %s: %v", path, err)
		return
	}
	for _, name := range names {
		e.discover(index, name)
	}
}

// attach attaches a watch to the node for its directory and establishes any
// required backend state.
func (e *Engine) attach(w *Watch) {
	// Query the directory identity.
	identity, err := w.descriptor.Identity()
	if err != nil {
		w.logger.Debugf("Unable to identify %s: %v", w.descriptor.Path(), err)
		return
	}

	// Attach to the node.
	index := e.tree.acquire(identity)
	e.tree.nodes[index].watchers = append(e.tree.nodes[index].watchers, w)
	w.node = index

	// Update the backend state for the node.
	e.refresh(index)

	// Discover the existing subtree for recursive watches.
	if w.recursive && e.watcher() != nil {
		e.scan(index, w.descriptor.Path())
	}
}

// detach detaches a watch from its node and releases any state that's no
// longer needed.
func (e *Engine) detach(w *Watch) {
	// Remove the watch from its node.
	index := w.node
	if index < 0 {
		return
	}
	w.node = -1
	n := &e.tree.nodes[index]
	for i, watcher := range n.watchers {
		if watcher == w {
			n.watchers = append(n.watchers[:i], n.watchers[i+1:]...)
			break
		}
	}

	// If there's remaining interest in the node, then refresh it and prune
	// any descendants that are no longer of interest.
	if len(n.watchers) > 0 || e.tree.inheritedFilter(index) != 0 {
		e.refresh(index)
		e.prune(index)
		return
	}

	// Otherwise release the node.
	e.releaseSubtree(index)
}

// prune refreshes the descendants of a node, releasing those that are no longer
// of interest.
func (e *Engine) prune(index int) {
	covered := e.tree.subtreeFilter(index) != 0
	for _, child := range e.tree.childIndices(index) {
		if covered {
			e.refresh(child)
			e.prune(child)
		} else {
			e.releaseSubtree(child)
		}
	}
}

// releaseSubtree releases a node and any of its descendants. Nodes with direct
// watchers are orphaned rather than released, since their watchers still need
// them.
func (e *Engine) releaseSubtree(index int) {
	// Orphan directly watched nodes.
	if len(e.tree.nodes[index].watchers) > 0 {
		e.tree.unlink(index)
		e.refresh(index)
		e.prune(index)
		return
	}

	// Release children.
	for _, child := range e.tree.childIndices(index) {
		e.releaseSubtree(child)
	}

	// Release the node.
	e.unwatch(index)
	e.tree.unlink(index)
	e.tree.discard(index)
}
