package synctree

import (
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// SyncPoint is the per-path bundle of filtered Views described in
// spec.md §3. A single SyncPoint at path p sees every operation
// targeting p or any descendant of p, routed there by SyncTree.
type SyncPoint struct {
	path      data.Path
	views     map[string]*View
	scheduler *Scheduler
	cache     *renderCache
}

func newSyncPoint(path data.Path, scheduler *Scheduler, cache *renderCache) *SyncPoint {
	return &SyncPoint{path: path, views: make(map[string]*View), scheduler: scheduler, cache: cache}
}

// GetOrCreateView returns the View for filter, creating it if absent.
func (sp *SyncPoint) GetOrCreateView(filter query.Filter) (*View, bool) {
	key := filter.Key()
	if v, ok := sp.views[key]; ok {
		return v, false
	}
	v := NewView(sp.path, filter, sp.scheduler, sp.cache)
	sp.views[key] = v
	return v, true
}

// View returns the existing View for filter, if any.
func (sp *SyncPoint) View(filter query.Filter) (*View, bool) {
	v, ok := sp.views[filter.Key()]
	return v, ok
}

// UnfilteredView returns the null-filter View used for internal reads
// and convenience listeners (spec.md §3).
func (sp *SyncPoint) UnfilteredView() (*View, bool) {
	return sp.View(query.Filter{})
}

// RemoveView drops the View for filter.
func (sp *SyncPoint) RemoveView(filter query.Filter) {
	delete(sp.views, filter.Key())
}

// AllViews returns every View currently registered at this SyncPoint.
func (sp *SyncPoint) AllViews() []*View {
	out := make([]*View, 0, len(sp.views))
	for _, v := range sp.views {
		out = append(out, v)
	}
	return out
}

// IsEmpty reports whether this SyncPoint has no remaining Views.
func (sp *SyncPoint) IsEmpty() bool {
	return len(sp.views) == 0
}

// ApplyServerOverwrite applies tsd as the new serverVersion. If filter
// is non-nil it targets only that View; otherwise every View at this
// SyncPoint is updated (spec.md §4.3).
func (sp *SyncPoint) ApplyServerOverwrite(filter *query.Filter, tsd *data.TSD) {
	if filter != nil {
		if v, ok := sp.View(*filter); ok {
			v.ApplyServerOverwrite(tsd)
		}
		return
	}
	for _, v := range sp.views {
		v.ApplyServerOverwrite(tsd)
	}
}

// ApplyServerMerge merges changedChildren into the targeted View(s).
func (sp *SyncPoint) ApplyServerMerge(filter *query.Filter, changedChildren map[data.Name]*data.TSD) {
	if filter != nil {
		if v, ok := sp.View(*filter); ok {
			v.ApplyServerMerge(changedChildren)
		}
		return
	}
	for _, v := range sp.views {
		v.ApplyServerMerge(changedChildren)
	}
}

// ApplyUserWrite layers w into every View at this SyncPoint, provided
// w's path actually relates to sp.path (ancestor, descendant, or
// equal); otherwise it is a silent no-op so callers can walk a superset
// of candidate SyncPoints cheaply.
func (sp *SyncPoint) ApplyUserWrite(w *PendingWrite) {
	if !relevant(w.Path, sp.path) {
		return
	}
	for _, v := range sp.views {
		v.AddUserWrite(w)
	}
}

// RemoveUserWrite drops writeID from every View at this SyncPoint.
func (sp *SyncPoint) RemoveUserWrite(writeID int64) {
	for _, v := range sp.views {
		v.RemoveUserWrite(writeID)
	}
}

func relevant(writePath, spPath data.Path) bool {
	return writePath.Contains(spPath) || spPath.Contains(writePath)
}
