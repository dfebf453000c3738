// Package query implements QueryFilter: the total order and windowing
// predicate used to bound which children of a node a View renders
// (spec.md §4.1).
package query

import (
	"fmt"

	"github.com/latticedb/sync-core/internal/data"
)

// OrderBy selects the projection used to sort a node's children.
type OrderBy string

const (
	OrderByPriority OrderBy = ".priority"
	OrderByKey      OrderBy = ".key"
	OrderByValue    OrderBy = ".value"
)

// Filter is a bounded, ordered projection of a node's children.
// The zero Filter (OrderBy == "") is the unfiltered filter: it denotes
// an internal, window-less view used for transactions and convenience
// listeners (spec.md §3, "the absent filter").
type Filter struct {
	OrderBy OrderBy // one of the constants above, or a child Name used as orderBy
	StartAt *Bound
	EndAt   *Bound
	Limit   int // 0 means unbounded
	Reverse bool
}

// Bound is a half-open-to-closed boundary value for StartAt/EndAt.
// Value is nil when OrderBy == OrderByKey, since key-ordered bounds are
// expressed by Name alone (spec.md §4.1).
type Bound struct {
	Value *data.TSD
	Name  data.Name
}

// Key returns a deterministic string identifying f's value, suitable as
// a map key where Filter's pointer-bearing Bounds make the struct
// itself unsuitable for structural map-key comparison (spec.md §3,
// "SyncPoint: map Filter -> View").
func (f Filter) Key() string {
	return fmt.Sprintf("ob=%s;sa=%s;ea=%s;l=%d;r=%t", f.OrderBy, boundKey(f.StartAt), boundKey(f.EndAt), f.Limit, f.Reverse)
}

func boundKey(b *Bound) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%s:%v", b.Name, b.Value.Value())
}

// IsUnfiltered reports whether f denotes the absent/null filter.
func (f Filter) IsUnfiltered() bool {
	return f.OrderBy == "" && f.StartAt == nil && f.EndAt == nil && f.Limit == 0 && !f.Reverse
}

// Entry pairs a child Name with its TSD, the unit Filter operates over.
type Entry struct {
	Name data.Name
	TSD  *data.TSD
}

// extract projects e into its comparable (name, projectedValue) pair
// per the orderBy rule in spec.md §3.
func (f Filter) extract(e Entry) (data.Name, *data.TSD) {
	switch f.OrderBy {
	case "", OrderByValue:
		return e.Name, e.TSD
	case OrderByKey:
		return e.Name, nil
	case OrderByPriority:
		return e.Name, e.TSD.Priority()
	default:
		return e.Name, e.TSD.GetChild(data.Name(f.OrderBy))
	}
}

// Compare returns a negative, zero, or positive number depending on
// whether a sorts before, equal to, or after b under f's total order:
// compare projected values (nil sorts first), tie-break by name
// ascending (spec.md §3).
func (f Filter) Compare(a, b Entry) int {
	aName, aVal := f.extract(a)
	bName, bVal := f.extract(b)
	if c := compareProjected(aVal, bVal); c != 0 {
		return c
	}
	return aName.Compare(bName)
}

func compareProjected(a, b *data.TSD) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return compareTSDValue(a, b)
}

// compareTSDValue orders two non-nil projected TSDs. Leaf values compare
// by underlying Go value where comparable (numbers before strings,
// matching the spec's intent that priorities/values have a stable
// total order); non-leaf values compare as equal-rank (ties are broken
// by name in Compare).
func compareTSDValue(a, b *data.TSD) int {
	av, bv := a.Value(), b.Value()
	if av == nil || bv == nil {
		if av == nil && bv == nil {
			return 0
		}
		if av == nil {
			return -1
		}
		return 1
	}
	an, aIsNum := toFloat(av)
	bn, bIsNum := toFloat(bv)
	switch {
	case aIsNum && bIsNum:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	case aIsNum && !bIsNum:
		return -1
	case !aIsNum && bIsNum:
		return 1
	default:
		as, bs := fmt.Sprint(av), fmt.Sprint(bv)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// IsValid reports whether e satisfies f's StartAt/EndAt bounds.
func (f Filter) IsValid(e Entry) bool {
	if f.StartAt != nil {
		startEntry := Entry{Name: f.StartAt.Name, TSD: boundTSD(f, f.StartAt)}
		if f.Compare(e, startEntry) < 0 {
			return false
		}
	}
	if f.EndAt != nil {
		endEntry := Entry{Name: f.EndAt.Name, TSD: boundTSD(f, f.EndAt)}
		if f.Compare(e, endEntry) > 0 {
			return false
		}
	}
	return true
}

// boundTSD reconstructs a comparable TSD for a bound so it can be run
// back through extract/Compare uniformly with real entries.
func boundTSD(f Filter, b *Bound) *data.TSD {
	switch f.OrderBy {
	case OrderByKey:
		return nil
	case OrderByPriority:
		return data.EmptyNonLeaf(b.Value)
	case "", OrderByValue:
		return b.Value
	default:
		return data.Children(map[data.Name]*data.TSD{data.Name(f.OrderBy): b.Value})
	}
}

// Window applies limit+reverse to an already-isValid-filtered, sorted
// (ascending under Compare) slice of entries: if Reverse, retain the
// last Limit entries in sort order, else the first (spec.md §4.1).
func (f Filter) Window(sorted []Entry) []Entry {
	if f.Limit <= 0 || len(sorted) <= f.Limit {
		return sorted
	}
	if f.Reverse {
		return sorted[len(sorted)-f.Limit:]
	}
	return sorted[:f.Limit]
}
