package data

// ServerTimestampSentinel is the reserved placeholder a caller writes in
// place of a value to request server-synchronized wall-clock resolution
// (spec.md §6, "Server sentinels"). It is resolved to milliseconds since
// epoch at write-creation time using the Connection's serverTime.
type ServerTimestampSentinel struct{}

// ServerTimestamp is the sentinel value itself.
var ServerTimestamp = ServerTimestampSentinel{}

// ResolveSentinels walks t, replacing any leaf holding ServerTimestamp
// with a leaf holding serverTimeMillis. The raw (unresolved) tree is the
// caller's responsibility to retain for onDisconnect replay (spec.md
// §4.7); this function never mutates its input, it returns a new tree.
func ResolveSentinels(t *TSD, serverTimeMillis int64) *TSD {
	if t == nil {
		return nil
	}
	if t.leaf {
		if _, isSentinel := t.value.(ServerTimestampSentinel); isSentinel {
			return LeafWithPriority(serverTimeMillis, t.priority)
		}
		return t
	}
	resolvedChildren := make(map[Name]*TSD, len(t.children))
	changed := false
	for name, child := range t.children {
		resolved := ResolveSentinels(child, serverTimeMillis)
		resolvedChildren[name] = resolved
		if resolved != child {
			changed = true
		}
	}
	if !changed {
		return t
	}
	out := &TSD{children: resolvedChildren, priority: t.priority}
	return out
}

// HasSentinel reports whether t contains a ServerTimestamp sentinel
// anywhere in its subtree.
func HasSentinel(t *TSD) bool {
	if t == nil {
		return false
	}
	if t.leaf {
		_, ok := t.value.(ServerTimestampSentinel)
		return ok
	}
	for _, child := range t.children {
		if HasSentinel(child) {
			return true
		}
	}
	return false
}
