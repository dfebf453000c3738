package synctree

import "github.com/latticedb/sync-core/internal/data"

// EventType names the kinds of events a View can emit to its listeners
// (spec.md §3, §4.2).
type EventType string

const (
	EventValue        EventType = "value"
	EventChildAdded   EventType = "child_added"
	EventChildChanged EventType = "child_changed"
	EventChildMoved   EventType = "child_moved"
	EventChildRemoved EventType = "child_removed"
	EventCancel       EventType = "cancel"
)

// Event is delivered to a listener callback.
type Event struct {
	Type EventType
	Path data.Path   // path of the SyncPoint this View renders
	Name data.Name   // child name for child_* events; empty for value/cancel
	Snapshot *data.TSD // the node's new value: the child's TSD for child_*, the full windowed render for value
	PrevName *data.Name // name of the preceding sibling under the current order, for child_added/child_moved
	Err      error     // set on cancel events
}

// Listener receives Events for one registered (type, callback) pair.
type Listener func(Event)
