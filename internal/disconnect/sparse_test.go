package disconnect

import (
	"testing"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryFor(entries []Entry, path string) (Entry, bool) {
	for _, e := range entries {
		if e.Path.String() == path {
			return e, true
		}
	}
	return Entry{}, false
}

// S5: remember(/a, {x:1}); remember(/a/y, 2) stores /a/x=1 and /a/y=2.
func TestRememberExpandsCoarseValueForFinerSibling(t *testing.T) {
	tree := NewSparseSnapshotTree()
	tree.Remember(data.ParsePath("a"), data.Children(map[data.Name]*data.TSD{"x": data.Leaf(int64(1))}))
	tree.Remember(data.ParsePath("a/y"), data.Leaf(int64(2)))

	entries := tree.Walk()
	require.Len(t, entries, 2)

	x, ok := entryFor(entries, "a/x")
	require.True(t, ok)
	assert.Equal(t, int64(1), x.TSD.Value())

	y, ok := entryFor(entries, "a/y")
	require.True(t, ok)
	assert.Equal(t, int64(2), y.TSD.Value())
}

// Invariant 7: forget after remember leaves the tree as if never
// remembered.
func TestForgetAfterRememberIsANoOp(t *testing.T) {
	tree := NewSparseSnapshotTree()
	tree.Remember(data.ParsePath("a/b"), data.Leaf("v"))
	empty := tree.Forget(data.ParsePath("a/b"))

	assert.True(t, empty)
	assert.True(t, tree.IsEmpty())
	assert.Empty(t, tree.Walk())
}

func TestForgetPrunesOnlyTheRequestedSubtree(t *testing.T) {
	tree := NewSparseSnapshotTree()
	tree.Remember(data.ParsePath("a/b"), data.Leaf(int64(1)))
	tree.Remember(data.ParsePath("a/c"), data.Leaf(int64(2)))

	stillEmpty := tree.Forget(data.ParsePath("a/b"))
	assert.False(t, stillEmpty) // "a/c" still present, so "a" itself is not empty

	entries := tree.Walk()
	require.Len(t, entries, 1)
	assert.Equal(t, "a/c", entries[0].Path.String())
}

func TestForgetOfUnknownPathIsHarmless(t *testing.T) {
	tree := NewSparseSnapshotTree()
	tree.Remember(data.ParsePath("a"), data.Leaf(int64(1)))

	empty := tree.Forget(data.ParsePath("z"))
	assert.False(t, empty)
	assert.Len(t, tree.Walk(), 1)
}
