package query

import (
	"sort"
	"testing"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/stretchr/testify/assert"
)

func entries(m map[string]int64) []Entry {
	out := make([]Entry, 0, len(m))
	for k, v := range m {
		out = append(out, Entry{Name: data.Name(k), TSD: data.Leaf(v)})
	}
	return out
}

func TestFilterTotalOrderIsAntisymmetricAndTransitive(t *testing.T) {
	f := Filter{OrderBy: OrderByValue}
	a := Entry{Name: "a", TSD: data.Leaf(int64(1))}
	b := Entry{Name: "b", TSD: data.Leaf(int64(2))}
	c := Entry{Name: "c", TSD: data.Leaf(int64(3))}
	assert.Equal(t, 0, f.Compare(a, b)+f.Compare(b, a))
	assert.True(t, f.Compare(a, b) < 0)
	assert.True(t, f.Compare(b, c) < 0)
	assert.True(t, f.Compare(a, c) < 0)
}

func TestWindowLimitAscending(t *testing.T) {
	f := Filter{OrderBy: OrderByValue, Limit: 2}
	es := entries(map[string]int64{"a": 3, "b": 1, "c": 2, "d": 4})
	sort.Slice(es, func(i, j int) bool { return f.Compare(es[i], es[j]) < 0 })
	window := f.Window(es)
	names := map[string]bool{}
	for _, e := range window {
		names[string(e.Name)] = true
	}
	assert.Equal(t, map[string]bool{"b": true, "c": true}, names)
}

func TestWindowLimitReverseKeepsLastEntries(t *testing.T) {
	f := Filter{OrderBy: OrderByValue, Limit: 2, Reverse: true}
	es := entries(map[string]int64{"a": 3, "b": 1, "c": 2, "d": 4})
	sort.Slice(es, func(i, j int) bool { return f.Compare(es[i], es[j]) < 0 })
	window := f.Window(es)
	names := map[string]bool{}
	for _, e := range window {
		names[string(e.Name)] = true
	}
	assert.Equal(t, map[string]bool{"c": true, "d": true}, names)
}

func TestOrderByKeyIgnoresValueBound(t *testing.T) {
	f := Filter{OrderBy: OrderByKey, StartAt: &Bound{Name: "b"}}
	assert.False(t, f.IsValid(Entry{Name: "a", TSD: data.Leaf(int64(99))}))
	assert.True(t, f.IsValid(Entry{Name: "b", TSD: data.Leaf(int64(1))}))
	assert.True(t, f.IsValid(Entry{Name: "c", TSD: data.Leaf(int64(1))}))
}

func TestNullProjectedValueSortsBeforeNonNull(t *testing.T) {
	f := Filter{OrderBy: OrderByPriority}
	withPriority := Entry{Name: "a", TSD: data.LeafWithPriority(int64(1), data.Leaf(int64(5)))}
	withoutPriority := Entry{Name: "b", TSD: data.Leaf(int64(1))}
	assert.True(t, f.Compare(withoutPriority, withPriority) < 0)
}

func TestWireQueryRoundTrip(t *testing.T) {
	f := Filter{OrderBy: "score", Limit: 3, Reverse: true,
		StartAt: &Bound{Value: data.Leaf(int64(1)), Name: "x"}}
	w := f.ToWireQuery()
	back := FromWireQuery(w)
	assert.Equal(t, f.OrderBy, back.OrderBy)
	assert.Equal(t, f.Limit, back.Limit)
	assert.Equal(t, f.Reverse, back.Reverse)
	assert.Equal(t, f.StartAt.Name, back.StartAt.Name)
}

func TestUnfilteredRoundTripsToNilWireQuery(t *testing.T) {
	assert.Nil(t, Filter{}.ToWireQuery())
	assert.True(t, FromWireQuery(nil).IsUnfiltered())
}
