// Package disconnect implements the onDisconnect tree: a sparse record
// of writes to replay once the Connection signals it has dropped
// (spec.md §4.7).
package disconnect

import "github.com/latticedb/sync-core/internal/data"

// SparseSnapshotTree is the recursive, path-indexed record described in
// spec.md §3: a node holds either a value or a set of children, never
// both. Writing a child under a node that currently carries a value
// re-expands that value into per-child subtrees first — mirroring
// data.TSD.SetChild's own leaf-clearing rule — so a coarse remembered
// value and a finer one underneath it both survive.
type SparseSnapshotTree struct {
	value    *data.TSD
	hasValue bool
	children map[data.Name]*SparseSnapshotTree
}

// NewSparseSnapshotTree returns an empty tree.
func NewSparseSnapshotTree() *SparseSnapshotTree {
	return newNode()
}

func newNode() *SparseSnapshotTree {
	return &SparseSnapshotTree{children: make(map[data.Name]*SparseSnapshotTree)}
}

func leafNode(tsd *data.TSD) *SparseSnapshotTree {
	n := newNode()
	n.setValue(tsd)
	return n
}

// IsEmpty reports whether this node carries neither a value nor any
// children.
func (n *SparseSnapshotTree) IsEmpty() bool {
	return !n.hasValue && len(n.children) == 0
}

// Remember inserts tsd at path (spec.md §4.7 "remember").
func (n *SparseSnapshotTree) Remember(path data.Path, tsd *data.TSD) {
	cur := n
	for _, name := range path {
		cur.expand()
		child, ok := cur.children[name]
		if !ok {
			child = newNode()
			cur.children[name] = child
		}
		cur = child
	}
	cur.expand()
	cur.setValue(tsd)
}

// Forget removes the node at path (spec.md §4.7 "forget") and reports
// whether the receiving node n is now empty, so the caller can prune
// its own reference to n. A path that was never remembered removes
// nothing and reports n's current emptiness (false when n still holds
// other entries).
func (n *SparseSnapshotTree) Forget(path data.Path) bool {
	if path.IsEmpty() {
		n.clear()
		return true
	}
	n.expand()
	head, tail := path.Head()
	child, ok := n.children[head]
	if ok && child.Forget(tail) {
		delete(n.children, head)
	}
	return n.IsEmpty()
}

// expand re-expands a stored value into per-child sparse nodes, one per
// child the value itself has, so descending into a new child slot below
// it never silently drops the value's effect at the value's other
// children. A leaf value (no children of its own) has nothing to
// redistribute and is simply cleared, matching TSD's own
// leaf-vs-children exclusivity.
func (n *SparseSnapshotTree) expand() {
	if !n.hasValue {
		return
	}
	val := n.value
	n.value, n.hasValue = nil, false
	for _, name := range val.ChildNames() {
		n.children[name] = leafNode(val.GetChild(name))
	}
}

func (n *SparseSnapshotTree) setValue(tsd *data.TSD) {
	n.value = tsd
	n.hasValue = true
	n.children = make(map[data.Name]*SparseSnapshotTree)
}

func (n *SparseSnapshotTree) clear() {
	n.value = nil
	n.hasValue = false
	n.children = make(map[data.Name]*SparseSnapshotTree)
}

// Entry is one stored (path, value) pair yielded by Walk.
type Entry struct {
	Path data.Path
	TSD  *data.TSD
}

// Walk returns every stored value in the tree together with its full
// path, in no particular order.
func (n *SparseSnapshotTree) Walk() []Entry {
	var out []Entry
	n.walk(data.Path{}, &out)
	return out
}

func (n *SparseSnapshotTree) walk(prefix data.Path, out *[]Entry) {
	if n.hasValue {
		*out = append(*out, Entry{Path: prefix, TSD: n.value})
	}
	for name, child := range n.children {
		child.walk(prefix.Child(name), out)
	}
}
