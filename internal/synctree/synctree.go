package synctree

import (
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

type treeNode struct {
	point    *SyncPoint
	children map[data.Name]*treeNode
}

func newTreeNode(path data.Path, scheduler *Scheduler, cache *renderCache) *treeNode {
	return &treeNode{point: newSyncPoint(path, scheduler, cache), children: make(map[data.Name]*treeNode)}
}

// SyncTree is the path-indexed tree of SyncPoints described in spec.md
// §3-§4.3. It routes server/user operations to the SyncPoint(s) that
// need to see them and propagates overwrites down to affected
// descendants.
type SyncTree struct {
	root      *treeNode
	scheduler *Scheduler
	cache     *renderCache
}

// NewSyncTree constructs an empty SyncTree sharing scheduler and a
// fresh render cache across every SyncPoint it creates.
func NewSyncTree(scheduler *Scheduler) *SyncTree {
	cache := newRenderCache(512)
	return &SyncTree{root: newTreeNode(data.Path{}, scheduler, cache), scheduler: scheduler, cache: cache}
}

// nodeAt returns the existing treeNode at path, or nil.
func (t *SyncTree) nodeAt(path data.Path) *treeNode {
	n := t.root
	for _, name := range path {
		child, ok := n.children[name]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

// nodeAtCreate returns the treeNode at path, creating intermediate
// nodes as needed.
func (t *SyncTree) nodeAtCreate(path data.Path) *treeNode {
	n := t.root
	for _, name := range path {
		child, ok := n.children[name]
		if !ok {
			child = newTreeNode(append(append(data.Path{}, n.point.path...), name), t.scheduler, t.cache)
			n.children[name] = child
		}
		n = child
	}
	return n
}

// PointAt returns the SyncPoint at path, creating it (and any missing
// ancestors) if necessary.
func (t *SyncTree) PointAt(path data.Path) *SyncPoint {
	return t.nodeAtCreate(path).point
}

// ExistingPointAt returns the SyncPoint at path without creating it.
func (t *SyncTree) ExistingPointAt(path data.Path) (*SyncPoint, bool) {
	n := t.nodeAt(path)
	if n == nil {
		return nil, false
	}
	return n.point, true
}

// ApplyServerOverwrite routes tsd to the SyncPoint at path and
// propagates it down into every descendant SyncPoint, whose partial
// serverVersion is refreshed by slicing the overwrite at the
// descendant's relative path (spec.md §4.3).
func (t *SyncTree) ApplyServerOverwrite(path data.Path, filter *query.Filter, tsd *data.TSD) {
	node := t.nodeAtCreate(path)
	node.point.ApplyServerOverwrite(filter, tsd)
	propagateOverwrite(node, tsd, filter)
}

func propagateOverwrite(node *treeNode, parentTSD *data.TSD, filter *query.Filter) {
	for name, child := range node.children {
		childTSD := parentTSD.GetChild(name)
		child.point.ApplyServerOverwrite(filter, childTSD)
		propagateOverwrite(child, childTSD, filter)
	}
}

// ApplyServerMerge applies each changed child as a per-child overwrite
// at path/childName (spec.md §4.3).
func (t *SyncTree) ApplyServerMerge(path data.Path, filter *query.Filter, changedChildren map[data.Name]*data.TSD) {
	node := t.nodeAtCreate(path)
	node.point.ApplyServerMerge(filter, changedChildren)
	for name, childTSD := range changedChildren {
		if child, ok := node.children[name]; ok {
			child.point.ApplyServerOverwrite(filter, childTSD)
			propagateOverwrite(child, childTSD, filter)
		}
	}
}

// ApplyUserOverwrite appends a pending overwrite write and recomputes
// localVersion on every SyncPoint whose subtree intersects path
// (spec.md §4.3).
func (t *SyncTree) ApplyUserOverwrite(path data.Path, resolvedTSD *data.TSD, writeID int64, applyLocally bool) *PendingWrite {
	w := &PendingWrite{WriteID: writeID, Path: path, Kind: KindOverwrite, Overwrite: resolvedTSD, ApplyLocally: applyLocally}
	t.applyUserWrite(w)
	return w
}

// ApplyUserMerge appends a pending merge write (spec.md §4.3).
func (t *SyncTree) ApplyUserMerge(path data.Path, resolvedChildren map[data.Name]*data.TSD, writeID int64, applyLocally bool) *PendingWrite {
	w := &PendingWrite{WriteID: writeID, Path: path, Kind: KindMerge, Merge: resolvedChildren, ApplyLocally: applyLocally}
	t.applyUserWrite(w)
	return w
}

func (t *SyncTree) applyUserWrite(w *PendingWrite) {
	// Ancestors of (and including) path.
	n := t.root
	n.point.ApplyUserWrite(w)
	for _, name := range w.Path {
		child, ok := n.children[name]
		if !ok {
			break
		}
		child.point.ApplyUserWrite(w)
		n = child
	}
	// Subtree at path (n now points at the node for path, if it exists).
	if node := t.nodeAt(w.Path); node != nil {
		applyUserWriteToSubtree(node, w)
	}
}

func applyUserWriteToSubtree(node *treeNode, w *PendingWrite) {
	for _, child := range node.children {
		child.point.ApplyUserWrite(w)
		applyUserWriteToSubtree(child, w)
	}
}

// ApplyAck drops writeID from every SyncPoint whose subtree intersects
// path. On failure the removal itself is the revert: the view's next
// render simply no longer layers the write (spec.md §4.3, §8 I2).
func (t *SyncTree) ApplyAck(path data.Path, writeID int64) {
	n := t.root
	n.point.RemoveUserWrite(writeID)
	for _, name := range path {
		child, ok := n.children[name]
		if !ok {
			break
		}
		child.point.RemoveUserWrite(writeID)
		n = child
	}
	if node := t.nodeAt(path); node != nil {
		removeFromSubtree(node, writeID)
	}
}

func removeFromSubtree(node *treeNode, writeID int64) {
	for _, child := range node.children {
		child.point.RemoveUserWrite(writeID)
		removeFromSubtree(child, writeID)
	}
}

// ApplyListenRevoked emits a cancel event to the View's listeners and
// drops the View (spec.md §4.3). It returns false if there was no such
// View to revoke.
func (t *SyncTree) ApplyListenRevoked(path data.Path, filter query.Filter, err error) bool {
	node := t.nodeAt(path)
	if node == nil {
		return false
	}
	v, ok := node.point.View(filter)
	if !ok {
		return false
	}
	v.Cancel(err)
	node.point.RemoveView(filter)
	return true
}

// CachedValue returns the unfiltered local version at path, or nil if
// no SyncPoint or unfiltered View exists there. This resolves spec.md
// §9's open question about the source's cachedValue defect: a plain
// read, never a guess at buggy assignment-vs-equality intent.
func (t *SyncTree) CachedValue(path data.Path) *data.TSD {
	node := t.nodeAt(path)
	if node == nil {
		return nil
	}
	v, ok := node.point.UnfilteredView()
	if !ok {
		return nil
	}
	return v.LocalVersion()
}
