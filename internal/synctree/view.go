package synctree

import (
	"sort"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// Subscription identifies one registered listener for removal.
type Subscription struct {
	id   uint64
	Type EventType
}

type registeredListener struct {
	id uint64
	cb Listener
}

// View is the rendering of one Filter at one path: it merges a
// serverVersion with layered pending writes into a localVersion and
// fans out diff events to its listeners (spec.md §3, §4.2).
type View struct {
	path   data.Path
	filter query.Filter

	serverVersion *data.TSD
	serverGen     int64
	writes        []*PendingWrite // ascending by WriteID

	localWindowed *data.TSD
	localOrder    []data.Name // child names in filter sort order, post-window

	listeners map[EventType][]registeredListener
	nextSubID uint64

	scheduler *Scheduler
	cache     *renderCache
}

// NewView constructs an empty View for filter at path.
func NewView(path data.Path, filter query.Filter, scheduler *Scheduler, cache *renderCache) *View {
	return &View{
		path:      path,
		filter:    filter,
		listeners: make(map[EventType][]registeredListener),
		scheduler: scheduler,
		cache:     cache,
	}
}

// Filter returns the Filter this View renders.
func (v *View) Filter() query.Filter { return v.filter }

// LocalVersion returns the current rendered, filter-windowed value.
func (v *View) LocalVersion() *data.TSD { return v.localWindowed }

// HasState reports whether the view currently holds a non-nil
// serverVersion or any pending write, used to decide whether
// AddListener should synthesize initial events.
func (v *View) HasState() bool {
	return v.serverVersion != nil || len(v.writes) > 0
}

// AddListener registers cb for events of type t. If the view already
// has rendered state, initial events are synthesized and delivered on
// the next scheduler tick: a single "value" event with the current
// snapshot, and (for "child_added" listeners) one child_added event per
// current child in sort order (spec.md §4.2, §9 design note on
// listener-registration ordering).
func (v *View) AddListener(t EventType, cb Listener) (Subscription, bool) {
	wasFirst := len(v.listeners[t]) == 0
	v.nextSubID++
	sub := Subscription{id: v.nextSubID, Type: t}
	v.listeners[t] = append(v.listeners[t], registeredListener{id: sub.id, cb: cb})

	if v.HasState() {
		path, windowed, order := v.path, v.localWindowed, append([]data.Name(nil), v.localOrder...)
		v.scheduler.Post(func() {
			switch t {
			case EventValue:
				cb(Event{Type: EventValue, Path: path, Snapshot: windowed})
			case EventChildAdded:
				var prev *data.Name
				for _, name := range order {
					n := name
					cb(Event{Type: EventChildAdded, Path: path, Name: n, Snapshot: windowed.GetChild(n), PrevName: prev})
					prev = &n
				}
			}
		})
	}
	return sub, wasFirst
}

// RemoveListener drops the subscription and reports whether the view
// now has zero listeners across every event type.
func (v *View) RemoveListener(sub Subscription) bool {
	list := v.listeners[sub.Type]
	for i, l := range list {
		if l.id == sub.id {
			v.listeners[sub.Type] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return v.listenerCount() == 0
}

func (v *View) listenerCount() int {
	n := 0
	for _, list := range v.listeners {
		n += len(list)
	}
	return n
}

// Cancel emits a cancel event to every "cancel" listener and clears all
// listener registrations (spec.md §4.3, applyListenRevoked).
func (v *View) Cancel(err error) {
	path := v.path
	for _, l := range v.listeners[EventCancel] {
		cb := l.cb
		v.scheduler.Post(func() { cb(Event{Type: EventCancel, Path: path, Err: err}) })
	}
	v.listeners = make(map[EventType][]registeredListener)
}

// ApplyServerOverwrite sets the serverVersion for this view's filter
// window and re-renders.
func (v *View) ApplyServerOverwrite(tsd *data.TSD) {
	v.serverVersion = tsd
	v.serverGen++
	v.recomputeAndEmit()
}

// ApplyServerMerge merges changedChildren into the serverVersion.
func (v *View) ApplyServerMerge(changedChildren map[data.Name]*data.TSD) {
	v.serverVersion = v.serverVersion.MergeChildren(changedChildren)
	v.serverGen++
	v.recomputeAndEmit()
}

// AddUserWrite inserts w into the view's write set (assumed to be
// relevant to v.path by the caller) and re-renders.
func (v *View) AddUserWrite(w *PendingWrite) {
	i := sort.Search(len(v.writes), func(i int) bool { return v.writes[i].WriteID >= w.WriteID })
	v.writes = append(v.writes, nil)
	copy(v.writes[i+1:], v.writes[i:])
	v.writes[i] = w
	v.recomputeAndEmit()
}

// RemoveUserWrite drops the write with the given id (ack success or
// failure both remove it; a failure additionally changes the rendered
// output since the write's local effect disappears) and re-renders.
func (v *View) RemoveUserWrite(writeID int64) bool {
	for i, w := range v.writes {
		if w.WriteID == writeID {
			v.writes = append(v.writes[:i], v.writes[i+1:]...)
			v.recomputeAndEmit()
			return true
		}
	}
	return false
}

func (v *View) writeIDs() []int64 {
	ids := make([]int64, len(v.writes))
	for i, w := range v.writes {
		ids[i] = w.WriteID
	}
	return ids
}

func (v *View) render() *data.TSD {
	type memo struct{ base, full *data.TSD }
	key := v.path.String() + "|" + renderKey(v.serverGen, v.writeIDs())
	if cached, ok := v.cache.get(key); ok {
		if m := cached.(memo); m.base == v.serverVersion {
			return m.full
		}
	}
	full := Layer(v.serverVersion, v.writes, v.path)
	v.cache.put(key, v.serverGen, memo{base: v.serverVersion, full: full})
	return full
}

func (v *View) recomputeAndEmit() {
	full := v.render()
	windowed, order := windowTSD(full, v.filter)

	oldWindowed, oldOrder := v.localWindowed, v.localOrder
	v.localWindowed, v.localOrder = windowed, order

	v.emitDiff(oldWindowed, oldOrder, windowed, order)
}

// windowTSD applies IsValid filtering and Limit/Reverse windowing to
// full's children, returning the windowed TSD (same priority as full)
// and the filter-sorted order of the surviving children.
func windowTSD(full *data.TSD, f query.Filter) (*data.TSD, []data.Name) {
	if full == nil || full.IsLeaf() {
		return full, nil
	}
	names := full.ChildNames()
	entries := make([]query.Entry, 0, len(names))
	for _, n := range names {
		e := query.Entry{Name: n, TSD: full.GetChild(n)}
		if f.IsValid(e) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return f.Compare(entries[i], entries[j]) < 0 })
	entries = f.Window(entries)

	children := make(map[data.Name]*data.TSD, len(entries))
	order := make([]data.Name, len(entries))
	for i, e := range entries {
		children[e.Name] = e.TSD
		order[i] = e.Name
	}
	windowed := data.Children(children)
	if windowed == nil && full.Priority() != nil {
		windowed = data.EmptyNonLeaf(full.Priority())
	} else if windowed != nil {
		windowed = windowed.WithPriority(full.Priority())
	}
	return windowed, order
}

func (v *View) emitDiff(oldW *data.TSD, oldOrder []data.Name, newW *data.TSD, newOrder []data.Name) {
	oldIdx := indexOf(oldOrder)
	newIdx := indexOf(newOrder)

	var removed, added, changed, moved []data.Name

	for _, n := range oldOrder {
		if _, ok := newIdx[n]; !ok {
			removed = append(removed, n)
		}
	}
	for _, n := range newOrder {
		if _, ok := oldIdx[n]; !ok {
			added = append(added, n)
		}
	}
	for _, n := range newOrder {
		oi, inOld := oldIdx[n]
		if !inOld {
			continue
		}
		if !oldW.GetChild(n).Equal(newW.GetChild(n)) {
			changed = append(changed, n)
		}
		if relativeOrderChanged(n, oi, oldOrder, newIdx[n], newOrder, oldIdx, newIdx) {
			moved = append(moved, n)
		}
	}

	for _, n := range removed {
		v.fire(EventChildRemoved, n, oldW.GetChild(n), nil)
	}
	for _, n := range moved {
		v.fire(EventChildMoved, n, newW.GetChild(n), prevNameIn(newOrder, n))
	}
	for _, n := range added {
		v.fire(EventChildAdded, n, newW.GetChild(n), prevNameIn(newOrder, n))
	}
	for _, n := range changed {
		v.fire(EventChildChanged, n, newW.GetChild(n), prevNameIn(newOrder, n))
	}
	if !oldW.Equal(newW) {
		v.fireValue(newW)
	}
}

// relativeOrderChanged reports whether n's position relative to the
// other names common to both orderings changed between oldOrder and
// newOrder.
func relativeOrderChanged(n data.Name, oi int, oldOrder []data.Name, ni int, newOrder []data.Name, oldIdx, newIdx map[data.Name]int) bool {
	oldRank, newRank := 0, 0
	for _, m := range oldOrder {
		if m == n {
			continue
		}
		if _, common := newIdx[m]; common && oldIdx[m] < oi {
			oldRank++
		}
	}
	for _, m := range newOrder {
		if m == n {
			continue
		}
		if _, common := oldIdx[m]; common && newIdx[m] < ni {
			newRank++
		}
	}
	return oldRank != newRank
}

func indexOf(order []data.Name) map[data.Name]int {
	m := make(map[data.Name]int, len(order))
	for i, n := range order {
		m[n] = i
	}
	return m
}

func prevNameIn(order []data.Name, n data.Name) *data.Name {
	for i, m := range order {
		if m == n {
			if i == 0 {
				return nil
			}
			prev := order[i-1]
			return &prev
		}
	}
	return nil
}

func (v *View) fire(t EventType, name data.Name, snapshot *data.TSD, prev *data.Name) {
	path := v.path
	for _, l := range v.listeners[t] {
		cb := l.cb
		v.scheduler.Post(func() { cb(Event{Type: t, Path: path, Name: name, Snapshot: snapshot, PrevName: prev}) })
	}
}

func (v *View) fireValue(snapshot *data.TSD) {
	path := v.path
	for _, l := range v.listeners[EventValue] {
		cb := l.cb
		v.scheduler.Post(func() { cb(Event{Type: EventValue, Path: path, Snapshot: snapshot}) })
	}
}
