package synctree

import (
	"sort"

	"github.com/latticedb/sync-core/internal/data"
)

// WriteKind distinguishes the two shapes a pending write can take
// (spec.md §3, "Pending write").
type WriteKind int

const (
	KindOverwrite WriteKind = iota
	KindMerge
)

// PendingWrite is one outstanding optimistic user write. WriteID is
// strictly increasing in creation order and is the sole ordering key
// used when layering writes onto server state (spec.md §4.4, §8 I1).
type PendingWrite struct {
	WriteID      int64
	Path         data.Path
	Kind         WriteKind
	Overwrite    *data.TSD
	Merge        map[data.Name]*data.TSD
	ApplyLocally bool
}

// WriteLog holds the globally ordered set of outstanding optimistic
// writes. It is exclusively owned by the Repo coordinator (spec.md §3,
// "Ownership").
type WriteLog struct {
	writes []*PendingWrite // kept sorted ascending by WriteID
	nextID int64
}

// NewWriteLog returns an empty WriteLog.
func NewWriteLog() *WriteLog {
	return &WriteLog{}
}

// NextWriteID returns a fresh, strictly increasing write id.
func (l *WriteLog) NextWriteID() int64 {
	id := l.nextID
	l.nextID++
	return id
}

// Add inserts w, keeping the log sorted by WriteID.
func (l *WriteLog) Add(w *PendingWrite) {
	i := sort.Search(len(l.writes), func(i int) bool { return l.writes[i].WriteID >= w.WriteID })
	l.writes = append(l.writes, nil)
	copy(l.writes[i+1:], l.writes[i:])
	l.writes[i] = w
}

// Remove drops the write with the given id, if present, and reports
// whether it was found.
func (l *WriteLog) Remove(writeID int64) bool {
	for i, w := range l.writes {
		if w.WriteID == writeID {
			l.writes = append(l.writes[:i], l.writes[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the write with the given id, or nil.
func (l *WriteLog) Get(writeID int64) *PendingWrite {
	for _, w := range l.writes {
		if w.WriteID == writeID {
			return w
		}
	}
	return nil
}

// AllAffecting returns, in ascending WriteID order, every pending write
// whose path relates to at (ancestor, descendant, or equal) and is
// therefore relevant when rendering the local version at at.
func (l *WriteLog) AllAffecting(at data.Path) []*PendingWrite {
	out := make([]*PendingWrite, 0, len(l.writes))
	for _, w := range l.writes {
		if w.Path.Contains(at) || at.Contains(w.Path) {
			out = append(out, w)
		}
	}
	return out
}

// All returns every pending write, ascending by WriteID.
func (l *WriteLog) All() []*PendingWrite {
	out := make([]*PendingWrite, len(l.writes))
	copy(out, l.writes)
	return out
}

// Layer resolves base (the serverVersion at path `at`) against every
// write in writes (assumed ascending by WriteID, see AllAffecting),
// excluding any write with ApplyLocally == false, per spec.md §4.4.
func Layer(base *data.TSD, writes []*PendingWrite, at data.Path) *data.TSD {
	acc := base
	for _, w := range writes {
		if !w.ApplyLocally {
			continue
		}
		acc = applyWriteAt(acc, w, at)
	}
	return acc
}

// applyWriteAt folds one write into acc, where acc represents the
// rendered value at path `at`. It handles all three path relationships
// between the write and `at`: equal, write-is-descendant, and
// write-is-ancestor (spec.md §4.3's "propagated down" / "refreshed"
// language generalized into one pure function shared by View layering
// and SyncTree propagation).
func applyWriteAt(acc *data.TSD, w *PendingWrite, at data.Path) *data.TSD {
	switch {
	case w.Path.Equal(at):
		return applyDirectly(acc, w)
	case at.Contains(w.Path):
		// at is empty-prefix-contained by itself only when equal (handled
		// above); here `at` is a strict prefix means w.Path is deeper: the
		// write targets a descendant of `at`.
		rel := w.Path.RelativeTo(at)
		return applyAtDescendant(acc, w, rel)
	case w.Path.Contains(at):
		rel := at.RelativeTo(w.Path)
		return applyFromAncestor(acc, w, rel)
	default:
		return acc
	}
}

func applyDirectly(acc *data.TSD, w *PendingWrite) *data.TSD {
	if w.Kind == KindOverwrite {
		return w.Overwrite
	}
	return acc.MergeChildren(w.Merge)
}

// applyAtDescendant sets the subtree at the relative path `rel` (below
// `at`) within acc to the write's effect.
func applyAtDescendant(acc *data.TSD, w *PendingWrite, rel data.Path) *data.TSD {
	if w.Kind == KindOverwrite {
		return setAtRelativePath(acc, rel, w.Overwrite)
	}
	out := acc
	for name, val := range w.Merge {
		out = setAtRelativePath(out, rel.Child(name), val)
	}
	return out
}

// applyFromAncestor resolves a write made at an ancestor of `at` down
// to the portion relevant at `at` (relative path `rel`, non-empty).
func applyFromAncestor(acc *data.TSD, w *PendingWrite, rel data.Path) *data.TSD {
	if w.Kind == KindOverwrite {
		return navigateTo(w.Overwrite, rel)
	}
	head, tail := rel.Head()
	replacement, ok := w.Merge[head]
	if !ok {
		return acc
	}
	return navigateTo(replacement, tail)
}

func navigateTo(t *data.TSD, path data.Path) *data.TSD {
	cur := t
	for _, name := range path {
		cur = cur.GetChild(name)
	}
	return cur
}

func setAtRelativePath(base *data.TSD, path data.Path, value *data.TSD) *data.TSD {
	if path.IsEmpty() {
		return value
	}
	head, tail := path.Head()
	return base.SetChild(head, setAtRelativePath(base.GetChild(head), tail, value))
}
