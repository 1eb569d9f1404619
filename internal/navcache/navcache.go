// Package navcache memoizes pairwise bot travel times for one brain frame.
package navcache

import (
	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// MaxClients bounds the bot slot numbers the matrix can hold.
const MaxClients = 64

// Locator returns the origin of the bot in a slot, or false if the slot is
// empty.
type Locator func(slot int) (geom.Vec3, bool)

// Matrix caches travel times between bot slots in both directions. Entries
// are -1 until computed. The owner calls Clear once per brain frame before
// any lookup.
type Matrix struct {
	times  [MaxClients][MaxClients]int32
	oracle aas.AreaOracle
	locate Locator
	flags  aas.TravelFlags
}

// New returns a cleared matrix.
func New(oracle aas.AreaOracle, locate Locator) *Matrix {
	m := &Matrix{oracle: oracle, locate: locate, flags: aas.DefaultTravelFlags}
	m.Clear()
	return m
}

// SetTravelFlags changes the movement types used for new lookups.
func (m *Matrix) SetTravelFlags(flags aas.TravelFlags) { m.flags = flags }

func (m *Matrix) Clear() {
	for i := range m.times {
		for j := range m.times[i] {
			m.times[i][j] = -1
		}
	}
}

// TravelTime returns the travel time in centiseconds from the bot in slot
// from to the bot in slot to. Zero means unreachable, including when either
// bot is outside every area.
func (m *Matrix) TravelTime(from, to int) int {
	if from < 0 || to < 0 || from >= MaxClients || to >= MaxClients {
		return 0
	}
	if t := m.times[from][to]; t >= 0 {
		return int(t)
	}
	t := m.compute(from, to)
	m.times[from][to] = int32(t)
	return t
}

func (m *Matrix) compute(from, to int) int {
	fromOrigin, ok := m.locate(from)
	if !ok {
		return 0
	}
	toOrigin, ok := m.locate(to)
	if !ok {
		return 0
	}
	fromArea := aas.FindAreaNum(m.oracle, fromOrigin)
	if fromArea == 0 {
		return 0
	}
	toArea := aas.FindAreaNum(m.oracle, toOrigin)
	if toArea == 0 {
		return 0
	}
	return m.oracle.TravelTimeToGoalArea(fromArea, fromOrigin, toArea, m.flags)
}
