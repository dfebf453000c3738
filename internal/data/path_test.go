package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePathDecodesPlainSegments(t *testing.T) {
	p := ParsePath("a/b/c")
	assert.Equal(t, Path{"a", "b", "c"}, p)
}

func TestParsePathDecodesPercentEscapedSegments(t *testing.T) {
	p := ParsePath("a%2Fb/c%25d")
	assert.Equal(t, Path{"a/b", "c%d"}, p)
}

func TestPathStringEscapesSlashAndPercentWithinASegment(t *testing.T) {
	p := Path{Name("a/b"), Name("c%d")}
	assert.Equal(t, "a%2Fb/c%25d", p.String())
}

func TestPathRoundTripsThroughWireForm(t *testing.T) {
	p := Path{Name("a/b"), Name("has spaces"), Name("plain")}
	assert.True(t, p.Equal(ParsePath(p.String())))
}
