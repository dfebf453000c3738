package data

import "sort"

// TSD (TreeStructuredData) is a recursive value: either a leaf holding
// (value, priority), or a non-leaf holding an ordered mapping from Name
// to TSD plus an optional priority. A nil *TSD denotes an absent value.
//
// Leaf and children are mutually exclusive after normalization: writing
// a non-nil child under a leaf-valued node implicitly clears the leaf
// value (see SetChild).
type TSD struct {
	leaf     bool
	value    interface{}
	children map[Name]*TSD
	priority *TSD
}

// Leaf constructs a leaf TSD holding value with no priority.
func Leaf(value interface{}) *TSD {
	if value == nil {
		return nil
	}
	return &TSD{leaf: true, value: value}
}

// LeafWithPriority constructs a leaf TSD holding value and priority.
func LeafWithPriority(value interface{}, priority *TSD) *TSD {
	t := Leaf(value)
	if t != nil {
		t.priority = priority
	}
	return t
}

// EmptyNonLeaf constructs a childless non-leaf TSD carrying only a
// priority. Used when a filter window removes every child but the node
// still carries priority metadata worth rendering.
func EmptyNonLeaf(priority *TSD) *TSD {
	if priority == nil {
		return nil
	}
	return &TSD{children: map[Name]*TSD{}, priority: priority}
}

// Children constructs a non-leaf TSD from a Name-to-TSD mapping. Nil
// entries are dropped; an empty result collapses to nil (absent).
func Children(children map[Name]*TSD) *TSD {
	out := &TSD{children: make(map[Name]*TSD)}
	for name, child := range children {
		if child != nil {
			out.children[name] = child
		}
	}
	if len(out.children) == 0 {
		return nil
	}
	return out
}

// IsNil reports whether t denotes an absent value.
func (t *TSD) IsNil() bool { return t == nil }

// IsLeaf reports whether t is a leaf node.
func (t *TSD) IsLeaf() bool { return t != nil && t.leaf }

// Value returns the leaf value, or nil if t is absent or a non-leaf.
func (t *TSD) Value() interface{} {
	if t == nil || !t.leaf {
		return nil
	}
	return t.value
}

// Priority returns the node's priority, or nil if unset.
func (t *TSD) Priority() *TSD {
	if t == nil {
		return nil
	}
	return t.priority
}

// WithPriority returns a copy of t with priority replaced.
func (t *TSD) WithPriority(priority *TSD) *TSD {
	if t == nil {
		return nil
	}
	clone := t.shallowClone()
	clone.priority = priority
	return clone
}

// ChildNames returns the sorted (per Name.Compare) list of child names.
// It returns nil for a leaf or absent node.
func (t *TSD) ChildNames() []Name {
	if t == nil || t.leaf {
		return nil
	}
	names := make([]Name, 0, len(t.children))
	for n := range t.children {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Compare(names[j]) < 0 })
	return names
}

// GetChild returns the child at name, or nil if absent or t is a leaf.
func (t *TSD) GetChild(name Name) *TSD {
	if t == nil || t.leaf {
		return nil
	}
	return t.children[name]
}

// NumChildren reports how many children t has (0 for leaf/absent).
func (t *TSD) NumChildren() int {
	if t == nil || t.leaf {
		return 0
	}
	return len(t.children)
}

// SetChild returns a new TSD with name set to child (nil removes it).
// If t was a leaf, its leaf value is discarded per the mutual-exclusion
// invariant, but its priority is preserved.
func (t *TSD) SetChild(name Name, child *TSD) *TSD {
	var priority *TSD
	children := map[Name]*TSD{}
	if t != nil {
		priority = t.priority
		if !t.leaf {
			for n, c := range t.children {
				children[n] = c
			}
		}
	}
	if child == nil {
		delete(children, name)
	} else {
		children[name] = child
	}
	if len(children) == 0 {
		if priority == nil {
			return nil
		}
		return &TSD{children: map[Name]*TSD{}, priority: priority}
	}
	return &TSD{children: children, priority: priority}
}

// MergeChildren applies a per-child overwrite for each entry in
// updates, preserving children not mentioned. A nil value in updates
// removes that child. Used to resolve a "merge" write against the
// current node (spec.md §4.4).
func (t *TSD) MergeChildren(updates map[Name]*TSD) *TSD {
	out := t
	// Deterministic application order keeps this pure and testable.
	names := make([]Name, 0, len(updates))
	for n := range updates {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Compare(names[j]) < 0 })
	for _, n := range names {
		out = out.SetChild(n, updates[n])
	}
	return out
}

func (t *TSD) shallowClone() *TSD {
	if t == nil {
		return nil
	}
	clone := &TSD{leaf: t.leaf, value: t.value, priority: t.priority}
	if !t.leaf {
		clone.children = make(map[Name]*TSD, len(t.children))
		for n, c := range t.children {
			clone.children[n] = c
		}
	}
	return clone
}

// Equal reports deep structural equality between t and other.
func (t *TSD) Equal(other *TSD) bool {
	if t == nil || other == nil {
		return t == nil && other == nil
	}
	if t.leaf != other.leaf {
		return false
	}
	if !priorityEqual(t.priority, other.priority) {
		return false
	}
	if t.leaf {
		return t.value == other.value
	}
	if len(t.children) != len(other.children) {
		return false
	}
	for n, c := range t.children {
		oc, ok := other.children[n]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}

func priorityEqual(a, b *TSD) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
