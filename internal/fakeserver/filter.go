package fakeserver

import (
	"sort"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// filterNode projects node's children through f the same way a View's
// windowTSD renders its window (internal/synctree/view.go): sort by
// f.Compare, drop entries f.IsValid rejects, then apply f.Window.
// Unlike a View, the result is a one-shot snapshot to push; there is no
// diffing to do since the server tracks no per-listener prior state.
func filterNode(node *data.TSD, f query.Filter) *data.TSD {
	if f.IsUnfiltered() || node == nil || node.IsLeaf() {
		return node
	}

	names := node.ChildNames()
	entries := make([]query.Entry, 0, len(names))
	for _, n := range names {
		e := query.Entry{Name: n, TSD: node.GetChild(n)}
		if f.IsValid(e) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return f.Compare(entries[i], entries[j]) < 0 })
	entries = f.Window(entries)

	children := make(map[data.Name]*data.TSD, len(entries))
	for _, e := range entries {
		children[e.Name] = e.TSD
	}
	windowed := data.Children(children)
	if windowed == nil {
		if node.Priority() != nil {
			return data.EmptyNonLeaf(node.Priority())
		}
		return nil
	}
	return windowed.WithPriority(node.Priority())
}
