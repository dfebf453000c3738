package query

import "github.com/latticedb/sync-core/internal/data"

// WireQuery is the JSON-friendly representation of a Filter sent to or
// received from the Connection's listen/unlisten calls (spec.md §4.1).
type WireQuery struct {
	OrderBy string      `json:"orderBy,omitempty"`
	Index   string      `json:"index,omitempty"` // present when OrderBy names a child key
	StartAt interface{} `json:"sp,omitempty"`
	StartName string    `json:"sn,omitempty"`
	EndAt   interface{} `json:"ep,omitempty"`
	EndName string      `json:"en,omitempty"`
	Limit   int         `json:"l,omitempty"`
	ViewFrom string     `json:"vf,omitempty"` // "l" (left/ascending) or "r" (reverse)
}

// ToWireQuery serializes f into its wire form.
func (f Filter) ToWireQuery() *WireQuery {
	if f.IsUnfiltered() {
		return nil
	}
	w := &WireQuery{Limit: f.Limit}
	switch f.OrderBy {
	case OrderByPriority, OrderByKey, OrderByValue, "":
		w.OrderBy = string(f.OrderBy)
	default:
		w.OrderBy = string(OrderByValue)
		w.Index = string(f.OrderBy)
	}
	if f.StartAt != nil {
		w.StartAt = tsdToWire(f.StartAt.Value)
		w.StartName = string(f.StartAt.Name)
	}
	if f.EndAt != nil {
		w.EndAt = tsdToWire(f.EndAt.Value)
		w.EndName = string(f.EndAt.Name)
	}
	if f.Reverse {
		w.ViewFrom = "r"
	} else if f.Limit > 0 {
		w.ViewFrom = "l"
	}
	return w
}

// FromWireQuery deserializes w into a Filter. A nil w yields the
// unfiltered Filter.
func FromWireQuery(w *WireQuery) Filter {
	if w == nil {
		return Filter{}
	}
	f := Filter{Limit: w.Limit, Reverse: w.ViewFrom == "r"}
	if w.Index != "" {
		f.OrderBy = OrderBy(w.Index)
	} else {
		f.OrderBy = OrderBy(w.OrderBy)
	}
	if w.StartAt != nil || w.StartName != "" {
		f.StartAt = &Bound{Value: wireToTSD(w.StartAt), Name: data.Name(w.StartName)}
	}
	if w.EndAt != nil || w.EndName != "" {
		f.EndAt = &Bound{Value: wireToTSD(w.EndAt), Name: data.Name(w.EndName)}
	}
	return f
}

func tsdToWire(t *data.TSD) interface{} {
	if t == nil {
		return nil
	}
	return t.Value()
}

func wireToTSD(v interface{}) *data.TSD {
	if v == nil {
		return nil
	}
	return data.Leaf(v)
}
