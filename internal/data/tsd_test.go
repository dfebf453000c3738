package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameCompareNumericBeforeNonNumeric(t *testing.T) {
	assert.True(t, Name("2").Compare(Name("a")) < 0)
	assert.True(t, Name("a").Compare(Name("2")) > 0)
	assert.True(t, Name("2").Compare(Name("10")) < 0)
	assert.Equal(t, 0, Name("5").Compare(Name("5")))
	assert.True(t, Name("ab").Compare(Name("ac")) < 0)
}

func TestNameNumericLeadingZeroIsNotNumeric(t *testing.T) {
	assert.False(t, Name("01").IsNumeric())
	assert.True(t, Name("0").IsNumeric())
}

func TestSetChildClearsLeafValue(t *testing.T) {
	leaf := Leaf("hello")
	withChild := leaf.SetChild("x", Leaf(int64(1)))
	require.False(t, withChild.IsLeaf())
	require.Equal(t, int64(1), withChild.GetChild("x").Value())
}

func TestSetChildToNilCollapsesToNilWhenNoPriority(t *testing.T) {
	root := Children(map[Name]*TSD{"a": Leaf(int64(1))})
	root = root.SetChild("a", nil)
	assert.True(t, root.IsNil())
}

func TestMergeChildrenPreservesUnmentioned(t *testing.T) {
	root := Children(map[Name]*TSD{
		"a": Leaf(int64(1)),
		"b": Leaf(int64(2)),
	})
	merged := root.MergeChildren(map[Name]*TSD{
		"b": Leaf(int64(3)),
		"c": Leaf(int64(4)),
	})
	assert.Equal(t, int64(1), merged.GetChild("a").Value())
	assert.Equal(t, int64(3), merged.GetChild("b").Value())
	assert.Equal(t, int64(4), merged.GetChild("c").Value())
}

func TestResolveSentinelsReplacesTimestamp(t *testing.T) {
	root := Children(map[Name]*TSD{
		"x": Leaf(ServerTimestamp),
		"y": Leaf(int64(7)),
	})
	resolved := ResolveSentinels(root, 1000)
	assert.Equal(t, int64(1000), resolved.GetChild("x").Value())
	assert.Equal(t, int64(7), resolved.GetChild("y").Value())
	assert.True(t, HasSentinel(root))
	assert.False(t, HasSentinel(resolved))
}

func TestTSDEqual(t *testing.T) {
	a := Children(map[Name]*TSD{"a": Leaf(int64(1))})
	b := Children(map[Name]*TSD{"a": Leaf(int64(1))})
	c := Children(map[Name]*TSD{"a": Leaf(int64(2))})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPathRelativeTo(t *testing.T) {
	base := ParsePath("a/b")
	full := ParsePath("a/b/c/d")
	assert.Equal(t, Path{"c", "d"}, full.RelativeTo(base))
}
