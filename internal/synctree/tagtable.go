package synctree

import (
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// tagKey identifies one (path, filter) listen registration.
type tagKey struct {
	path   string
	filter string
}

// TagTable is the per-connection bijection between a (path, filter)
// listen and the integer tag the Connection uses to correlate server
// pushes back to the originating listen (spec.md §3). It is owned by
// Repo.
//
// spec.md §9 notes the source never clears this bijection on a tagged
// listen revoke; Remove below always clears both directions, resolving
// that open question.
type TagTable struct {
	byKey map[tagKey]int
	byTag map[int]keyed
	next  int
}

type keyed struct {
	path   data.Path
	filter query.Filter
}

// NewTagTable returns an empty TagTable.
func NewTagTable() *TagTable {
	return &TagTable{byKey: make(map[tagKey]int), byTag: make(map[int]keyed)}
}

func keyOf(path data.Path, filter query.Filter) tagKey {
	return tagKey{path: path.String(), filter: filter.Key()}
}

// Assign returns the existing tag for (path, filter), or allocates and
// stores a fresh one.
func (t *TagTable) Assign(path data.Path, filter query.Filter) int {
	k := keyOf(path, filter)
	if tag, ok := t.byKey[k]; ok {
		return tag
	}
	t.next++
	tag := t.next
	t.byKey[k] = tag
	t.byTag[tag] = keyed{path: path, filter: filter}
	return tag
}

// Lookup resolves a tag back to its (path, filter).
func (t *TagTable) Lookup(tag int) (data.Path, query.Filter, bool) {
	kv, ok := t.byTag[tag]
	if !ok {
		return nil, query.Filter{}, false
	}
	return kv.path, kv.filter, true
}

// Remove clears both directions of the bijection for (path, filter).
func (t *TagTable) Remove(path data.Path, filter query.Filter) {
	k := keyOf(path, filter)
	tag, ok := t.byKey[k]
	if !ok {
		return
	}
	delete(t.byKey, k)
	delete(t.byTag, tag)
}

// AllTags returns every tag currently assigned, in no particular order.
func (t *TagTable) AllTags() []int {
	tags := make([]int, 0, len(t.byTag))
	for tag := range t.byTag {
		tags = append(tags, tag)
	}
	return tags
}

// RemoveTag clears both directions of the bijection given only the tag.
// Repo does not call it: its listen-revoke handling clears the entry
// with Remove, by path and filter.
func (t *TagTable) RemoveTag(tag int) {
	kv, ok := t.byTag[tag]
	if !ok {
		return
	}
	delete(t.byTag, tag)
	delete(t.byKey, keyOf(kv.path, kv.filter))
}
