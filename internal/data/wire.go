package data

// ToWire renders t into a plain JSON-marshalable value: a leaf becomes
// its bare value, a non-leaf becomes a map keyed by child name (plus a
// ".priority" entry when a priority is set), and a nil TSD becomes a
// nil interface{} (serializes to JSON null).
func ToWire(t *TSD) interface{} {
	if t == nil {
		return nil
	}
	if t.leaf {
		if t.priority == nil {
			return t.value
		}
		return map[string]interface{}{
			".value":    t.value,
			".priority": ToWire(t.priority),
		}
	}
	out := make(map[string]interface{}, len(t.children)+1)
	for name, child := range t.children {
		out[string(name)] = ToWire(child)
	}
	if t.priority != nil {
		out[".priority"] = ToWire(t.priority)
	}
	return out
}

// FromWire is the inverse of ToWire: it reconstructs a TSD from a
// decoded JSON value (as produced by encoding/json's default
// map[string]interface{}/[]interface{} decoding into interface{}).
func FromWire(v interface{}) *TSD {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return Leaf(v)
	}
	if raw, hasValue := m[".value"]; hasValue {
		return LeafWithPriority(raw, FromWire(m[".priority"]))
	}
	children := make(map[Name]*TSD, len(m))
	var priority *TSD
	for k, raw := range m {
		if k == ".priority" {
			priority = FromWire(raw)
			continue
		}
		children[Name(k)] = FromWire(raw)
	}
	result := Children(children)
	if priority != nil {
		if result == nil {
			result = EmptyNonLeaf(priority)
		} else {
			result = result.WithPriority(priority)
		}
	}
	return result
}
