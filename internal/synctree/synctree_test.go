package synctree

import (
	"testing"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() (*SyncTree, *Scheduler) {
	s := NewScheduler()
	return NewSyncTree(s), s
}

// S1: listen then local set, then ack(false) reverts.
func TestScenarioListenThenLocalSetThenRevert(t *testing.T) {
	tree, sched := newTestTree()
	path := data.ParsePath("a")

	point := tree.PointAt(path)
	view, _ := point.GetOrCreateView(query.Filter{})

	var seen []*data.TSD
	view.AddListener(EventValue, func(e Event) { seen = append(seen, e.Snapshot) })
	sched.Drain()
	assert.Len(t, seen, 0) // no state yet, no synthesized event

	tree.ApplyServerOverwrite(path, nil, data.Children(map[data.Name]*data.TSD{"x": data.Leaf(int64(1))}))
	sched.Drain()
	require.Len(t, seen, 1)
	assert.Equal(t, int64(1), seen[0].GetChild("x").Value())

	w := tree.ApplyUserOverwrite(data.ParsePath("a/x"), data.Leaf(int64(2)), 0, true)
	sched.Drain()
	require.Len(t, seen, 2)
	assert.Equal(t, int64(2), seen[1].GetChild("x").Value())

	tree.ApplyAck(data.ParsePath("a/x"), w.WriteID)
	sched.Drain()
	require.Len(t, seen, 3)
	assert.Equal(t, int64(1), seen[2].GetChild("x").Value())
}

// S2: filter window over children, ascending and reverse.
func TestScenarioFilterWindow(t *testing.T) {
	tree, sched := newTestTree()
	path := data.ParsePath("r")
	serverData := data.Children(map[data.Name]*data.TSD{
		"a": data.Leaf(int64(3)),
		"b": data.Leaf(int64(1)),
		"c": data.Leaf(int64(2)),
		"d": data.Leaf(int64(4)),
	})

	point := tree.PointAt(path)
	f := query.Filter{OrderBy: query.OrderByValue, Limit: 2}
	view, _ := point.GetOrCreateView(f)
	view.ApplyServerOverwrite(serverData)
	sched.Drain()

	names := map[string]bool{}
	for _, n := range view.localOrder {
		names[string(n)] = true
	}
	assert.Equal(t, map[string]bool{"b": true, "c": true}, names)

	fr := query.Filter{OrderBy: query.OrderByValue, Limit: 2, Reverse: true}
	viewR, _ := point.GetOrCreateView(fr)
	viewR.ApplyServerOverwrite(serverData)
	sched.Drain()
	namesR := map[string]bool{}
	for _, n := range viewR.localOrder {
		namesR[string(n)] = true
	}
	assert.Equal(t, map[string]bool{"c": true, "d": true}, namesR)
}

// S6: child events from a merge.
func TestScenarioChildEventsFromMerge(t *testing.T) {
	tree, sched := newTestTree()
	path := data.ParsePath("r")
	point := tree.PointAt(path)
	view, _ := point.GetOrCreateView(query.Filter{})
	tree.ApplyServerOverwrite(path, nil, data.Children(map[data.Name]*data.TSD{
		"a": data.Leaf(int64(1)),
		"b": data.Leaf(int64(2)),
	}))
	sched.Drain()

	var types []EventType
	view.AddListener(EventChildChanged, func(e Event) { types = append(types, e.Type) })
	view.AddListener(EventChildAdded, func(e Event) { types = append(types, e.Type) })
	view.AddListener(EventValue, func(e Event) { types = append(types, e.Type) })
	sched.Drain()
	types = nil // discard synthesized initial events

	tree.ApplyServerMerge(path, nil, map[data.Name]*data.TSD{
		"b": data.Leaf(int64(3)),
		"c": data.Leaf(int64(4)),
	})
	sched.Drain()

	assert.Contains(t, types, EventChildChanged)
	assert.Contains(t, types, EventChildAdded)
	assert.Contains(t, types, EventValue)
}

func TestApplyListenRevokedClearsView(t *testing.T) {
	tree, sched := newTestTree()
	path := data.ParsePath("a")
	point := tree.PointAt(path)
	view, _ := point.GetOrCreateView(query.Filter{})

	cancelled := false
	view.AddListener(EventCancel, func(e Event) { cancelled = true })

	ok := tree.ApplyListenRevoked(path, query.Filter{}, nil)
	sched.Drain()
	assert.True(t, ok)
	assert.True(t, cancelled)
	_, exists := point.View(query.Filter{})
	assert.False(t, exists)
}

func TestOverwritePropagatesToDescendantSyncPoints(t *testing.T) {
	tree, _ := newTestTree()
	child := tree.PointAt(data.ParsePath("a/x"))
	view, _ := child.GetOrCreateView(query.Filter{})
	view.ApplyServerOverwrite(nil) // establish HasState baseline false

	tree.ApplyServerOverwrite(data.ParsePath("a"), nil, data.Children(map[data.Name]*data.TSD{
		"x": data.Leaf(int64(42)),
	}))

	assert.Equal(t, int64(42), view.LocalVersion().Value())
}
