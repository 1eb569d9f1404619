package navcache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// lineOracle puts every point with X >= 0 in area int(X/100)+1, and charges
// one centisecond per unit going right and two going left.
type lineOracle struct {
	calls int
}

func (o *lineOracle) PointAreaNum(p geom.Vec3) int {
	if p.X < 0 {
		return 0
	}
	return int(p.X/100) + 1
}

func (o *lineOracle) TravelTimeToGoalArea(fromArea int, _ geom.Vec3, toArea int, _ aas.TravelFlags) int {
	o.calls++
	d := (toArea - fromArea) * 100
	if d < 0 {
		return -d * 2
	}
	return d + 1
}

func TestMatrix(t *testing.T) {
	t.Parallel()
	origins := map[int]geom.Vec3{
		0: geom.V(0, 0, 0),
		1: geom.V(300, 0, 0),
		2: geom.V(-50, 0, 0),
	}
	oracle := &lineOracle{}
	m := New(oracle, func(slot int) (geom.Vec3, bool) {
		o, ok := origins[slot]
		return o, ok
	})

	assert.Equal(t, 301, m.TravelTime(0, 1))
	assert.Equal(t, 600, m.TravelTime(1, 0), "direction matters")
	assert.Equal(t, 2, oracle.calls)

	assert.Equal(t, 301, m.TravelTime(0, 1))
	assert.Equal(t, 2, oracle.calls, "second lookup is cached")

	// slot 2 is outside every area, slot 5 is empty
	assert.Equal(t, 0, m.TravelTime(0, 2))
	assert.Equal(t, 0, m.TravelTime(5, 0))
	assert.Equal(t, 0, m.TravelTime(-1, 0))
	assert.Equal(t, 0, m.TravelTime(0, MaxClients))
	assert.Equal(t, 2, oracle.calls)

	origins[1] = geom.V(100, 0, 0)
	assert.Equal(t, 301, m.TravelTime(0, 1), "stale until cleared")
	m.Clear()
	assert.Equal(t, 101, m.TravelTime(0, 1))
	assert.Equal(t, 3, oracle.calls)
}
