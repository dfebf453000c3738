package data

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
)

// Hash returns a hex-encoded SHA-512/Half (the first 32 bytes of a
// SHA-512 digest) of a canonical encoding of t. The transaction engine
// uses it as the compare-and-set precondition sent with a conditional
// put (spec.md §4.6, §6 "expectedHash").
//
// Truncating SHA-512 to 32 bytes mirrors the teacher's own
// crypto.Sha512Half helper; a plain deterministic hash has no
// domain-specific library in the pack, so stdlib crypto/sha512 is used
// directly rather than pulling in a hashing dependency for a one-line
// wrap.
func Hash(t *TSD) string {
	h := sha512.New()
	encodeInto(h, t)
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum[:32])
}

func encodeInto(w io.Writer, t *TSD) {
	if t == nil {
		w.Write([]byte{0})
		return
	}
	if t.leaf {
		w.Write([]byte{1})
		fmt.Fprintf(w, "%v", t.value)
		encodeInto(w, t.priority)
		return
	}
	w.Write([]byte{2})
	names := t.ChildNames()
	binary.Write(w, binary.BigEndian, uint32(len(names)))
	for _, n := range names {
		fmt.Fprintf(w, "%s\x00", n)
		encodeInto(w, t.children[n])
	}
	encodeInto(w, t.priority)
}
