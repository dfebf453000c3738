package data

import (
	"net/url"
	"strings"
)

// Path is a finite ordered sequence of Names. The empty Path denotes
// the root of the tree.
type Path []Name

// ParsePath decodes a slash-separated, URI-component-decoded wire path
// into a Path. The empty string decodes to the root Path. Each segment
// is percent-decoded independently after splitting, so a literal slash
// or percent sign inside a Name (carried on the wire as %2F/%25) never
// gets mistaken for a path separator.
func ParsePath(wire string) Path {
	wire = strings.Trim(wire, "/")
	if wire == "" {
		return Path{}
	}
	segments := strings.Split(wire, "/")
	p := make(Path, len(segments))
	for i, s := range segments {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			decoded = s
		}
		p[i] = Name(decoded)
	}
	return p
}

// String renders the Path back to its slash-separated wire form, with
// each segment percent-encoded so a Name containing a slash or percent
// sign round-trips through ParsePath unchanged.
func (p Path) String() string {
	segs := make([]string, len(p))
	for i, n := range p {
		segs[i] = url.PathEscape(string(n))
	}
	return strings.Join(segs, "/")
}

// IsEmpty reports whether p is the root path.
func (p Path) IsEmpty() bool {
	return len(p) == 0
}

// Head returns the first Name of the path and the remaining suffix.
// Head panics if p is empty; callers must check IsEmpty first.
func (p Path) Head() (Name, Path) {
	return p[0], p[1:]
}

// Child returns a new Path with name appended.
func (p Path) Child(name Name) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// Parent returns the path with its last component removed. Parent
// panics if p is empty.
func (p Path) Parent() Path {
	return p[:len(p)-1]
}

// Last returns the final component of the path. Last panics if p is
// empty.
func (p Path) Last() Name {
	return p[len(p)-1]
}

// Contains reports whether p is a prefix of other (p == other counts).
func (p Path) Contains(other Path) bool {
	if len(p) > len(other) {
		return false
	}
	for i, n := range p {
		if other[i] != n {
			return false
		}
	}
	return true
}

// RelativeTo returns the suffix of p after stripping the prefix base.
// RelativeTo panics if base is not a prefix of p.
func (p Path) RelativeTo(base Path) Path {
	if !base.Contains(p) && !p.Contains(base) {
		panic("data: RelativeTo of unrelated paths")
	}
	if len(base) > len(p) {
		panic("data: RelativeTo base longer than path")
	}
	return p[len(base):]
}

// Equal reports whether p and other denote the same path.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
