package pushid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameMillisProducesStrictlyIncreasingIds(t *testing.T) {
	g := New()
	id1 := g.Next(1000)
	id2 := g.Next(1000)
	require.Len(t, id1, 20)
	require.Len(t, id2, 20)
	assert.True(t, id1 < id2)
	assert.Equal(t, id1[:8], id2[:8])
}

func TestDifferentMillisProducesIncreasingIds(t *testing.T) {
	g := New()
	id1 := g.Next(1000)
	id2 := g.Next(1001)
	assert.True(t, id1 < id2)
}

func TestCounterIncrementIsLittleEndianWithCarry(t *testing.T) {
	random := [12]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 63}
	next := incrementCounter(random)
	assert.Equal(t, [12]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0}, next)
}

func TestManySequentialIdsAreStrictlyMonotonic(t *testing.T) {
	g := New()
	prev := g.Next(5000)
	for i := 0; i < 200; i++ {
		next := g.Next(5000)
		assert.True(t, prev < next, "expected %q < %q", prev, next)
		prev = next
	}
}
