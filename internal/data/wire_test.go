package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWireRoundTripsLeaf(t *testing.T) {
	tsd := Leaf(int64(5))
	assert.Equal(t, int64(5), ToWire(tsd))
	assert.True(t, tsd.Equal(FromWire(ToWire(tsd))))
}

func TestWireRoundTripsChildrenAndPriority(t *testing.T) {
	tsd := Children(map[Name]*TSD{
		"a": Leaf("x"),
		"b": Leaf(int64(2)),
	}).WithPriority(Leaf(int64(7)))

	wire := ToWire(tsd)
	back := FromWire(wire)
	assert.True(t, tsd.Equal(back))
}

func TestWireNilRoundTrips(t *testing.T) {
	assert.Nil(t, ToWire(nil))
	assert.Nil(t, FromWire(nil))
}
