// Package aas declares the navigation and collision oracles the bot brain
// consumes. The concrete area awareness system lives elsewhere; this package
// only defines the contracts and a few lookup helpers built on them.
package aas

import (
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// TravelFlags selects the movement types a travel time query may use.
type TravelFlags uint32

const (
	TravelWalk TravelFlags = 1 << iota
	TravelCrouch
	TravelBarrierJump
	TravelJump
	TravelLadder
	TravelWalkOffLedge
	TravelSwim
	TravelWaterJump
	TravelTeleport
	TravelElevator
	TravelJumpPad
)

// DefaultTravelFlags is what a bot without special movement skills uses.
const DefaultTravelFlags = TravelWalk | TravelCrouch | TravelBarrierJump | TravelJump |
	TravelLadder | TravelWalkOffLedge | TravelSwim | TravelWaterJump |
	TravelTeleport | TravelElevator | TravelJumpPad

// AreaOracle answers point-in-area and travel time queries. Zero means "no
// area" and "unreachable" respectively. Travel times are in centiseconds.
type AreaOracle interface {
	PointAreaNum(origin geom.Vec3) int
	TravelTimeToGoalArea(fromArea int, fromOrigin geom.Vec3, toArea int, flags TravelFlags) int
}

// TraceResult is the outcome of a collision trace. A Fraction of 1 means the
// segment is unobstructed.
type TraceResult struct {
	Fraction  float32
	HitEntity int
}

// Tracer performs collision traces, ignoring one entity.
type Tracer interface {
	Trace(from, to geom.Vec3, ignoreEntity int) TraceResult
}

// LocationNamer maps a point to the nearest named map location, or "" if the
// map has none.
type LocationNamer interface {
	NearestLocationName(origin geom.Vec3) string
}

// World bundles the oracles a team brain needs.
type World interface {
	AreaOracle
	Tracer
	LocationNamer
}

// VerticalFallbackOffset is how far below the origin FindAreaNum looks when
// the nearby probes fail, e.g. for a bot in mid-air above a walkable area.
const VerticalFallbackOffset float32 = 32

var probeOffsets = [3]float32{0, 1, -1}

// FindAreaNum resolves the area containing origin. Points lying exactly on
// an area boundary are retried one unit up and down before falling back to a
// point below origin. It returns 0 if nothing is found.
func FindAreaNum(oracle AreaOracle, origin geom.Vec3) int {
	for _, dz := range probeOffsets {
		p := origin
		p.Z += dz
		if area := oracle.PointAreaNum(p); area != 0 {
			return area
		}
	}
	p := origin
	p.Z -= VerticalFallbackOffset
	return oracle.PointAreaNum(p)
}

// Visible reports whether the segment between two points is unobstructed, or
// only blocked by the target entity itself.
func Visible(tracer Tracer, from, to geom.Vec3, ignoreEntity, targetEntity int) bool {
	tr := tracer.Trace(from, to, ignoreEntity)
	return tr.Fraction == 1 || (targetEntity != 0 && tr.HitEntity == targetEntity)
}
