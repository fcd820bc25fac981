package watching

import (
	"testing"

	"github.com/mutagen-io/dirnotify/pkg/filesystem"
)

// TestJoinSegments tests joinSegments.
func TestJoinSegments(t *testing.T) {
	// Define test cases.
	testCases := []struct {
		segments []string
		expected string
	}{
		{[]string{"x"}, "x"},
		{[]string{"x", "sub"}, "sub/x"},
		{[]string{"x", "b", "a"}, "a/b/x"},
	}

	// Process test cases.
	for _, testCase := range testCases {
		if result := joinSegments(testCase.segments); result != testCase.expected {
			t.Errorf("joined path mismatch: %s != %s", result, testCase.expected)
		}
	}
}

// TestTreeLinkage tests tree slot management and linkage.
func TestTreeLinkage(t *testing.T) {
	// Create a tree and some nodes.
	tr := newTree()
	root := tr.acquire(filesystem.Identity{Device: 1, Inode: 1})
	child := tr.acquire(filesystem.Identity{Device: 1, Inode: 2})
	if again := tr.acquire(filesystem.Identity{Device: 1, Inode: 1}); again != root {
		t.Error("acquiring existing identity created new node")
	}

	// Link the child and verify the structure.
	tr.link(root, child, "child")
	if tr.nodes[child].parent != root || tr.nodes[root].children["child"] != child {
		t.Fatal("link didn't establish relationship")
	}
	if !tr.isAncestor(root, child) || tr.isAncestor(child, root) {
		t.Error("ancestry incorrect")
	}

	// Unlink and discard the child, then verify that its slot is reused.
	tr.unlink(child)
	if tr.nodes[child].parent != -1 || len(tr.nodes[root].children) != 0 {
		t.Fatal("unlink didn't remove relationship")
	}
	tr.discard(child)
	if _, ok := tr.byIdentity[filesystem.Identity{Device: 1, Inode: 2}]; ok {
		t.Error("discarded node still indexed")
	}
	if reused := tr.acquire(filesystem.Identity{Device: 1, Inode: 3}); reused != child {
		t.Error("discarded slot not reused")
	}
}

// TestTreeFilters tests filter inheritance.
func TestTreeFilters(t *testing.T) {
	// Create a three-level tree.
	tr := newTree()
	root := tr.acquire(filesystem.Identity{Inode: 1})
	middle := tr.acquire(filesystem.Identity{Inode: 2})
	leaf := tr.acquire(filesystem.Identity{Inode: 3})
	tr.link(root, middle, "middle")
	tr.link(middle, leaf, "leaf")

	// Attach a recursive watch at the root and a direct watch in the middle.
	tr.nodes[root].watchers = []*Watch{{filter: FilterFileName, recursive: true}}
	tr.nodes[middle].watchers = []*Watch{{filter: FilterSize}}

	// Verify filters.
	if f := tr.effectiveFilter(middle); f != FilterFileName|FilterSize {
		t.Error("unexpected middle effective filter:", f)
	}
	if f := tr.effectiveFilter(leaf); f != FilterFileName {
		t.Error("unexpected leaf effective filter:", f)
	}
	if f := tr.inheritedFilter(root); f != 0 {
		t.Error("root inherited filter:", f)
	}

	// Remove the recursive watch and verify that the leaf loses interest.
	tr.nodes[root].watchers = nil
	if tr.mask(leaf) != 0 {
		t.Error("uninteresting leaf has mask")
	}
	if tr.mask(middle) == 0 {
		t.Error("directly watched node has no mask")
	}
}
