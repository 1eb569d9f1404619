package scenario

import (
	"math"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// Wall is a vertical segment of infinite height that blocks sight, and
// direct travel unless the world allows detours.
type Wall struct {
	From geom.Vec3
	To   geom.Vec3
}

// Location is a named map point, e.g. "red base".
type Location struct {
	Name   string
	Origin geom.Vec3
}

// World is a flat grid where every cell is an area. It implements aas.World.
type World struct {
	CellSize float32
	Speed    float32
	Min, Max geom.Vec3
	// DetourFactor multiplies travel time across a wall; zero makes walls
	// impassable.
	DetourFactor float32
	Walls        []Wall
	Locations    []Location

	cols int
}

var _ aas.World = (*World)(nil)

// NewWorld returns a world covering [min, max] on the XY plane.
func NewWorld(lo, hi geom.Vec3, cellSize, speed float32) *World {
	w := &World{CellSize: cellSize, Speed: speed, Min: lo, Max: hi}
	w.init()
	return w
}

func (w *World) init() {
	if w.CellSize <= 0 {
		w.CellSize = 64
	}
	if w.Speed <= 0 {
		w.Speed = 320
	}
	w.cols = int(math.Ceil(float64((w.Max.X - w.Min.X) / w.CellSize)))
	if w.cols < 1 {
		w.cols = 1
	}
}

func (w *World) PointAreaNum(p geom.Vec3) int {
	if p.X < w.Min.X || p.Y < w.Min.Y || p.X >= w.Max.X || p.Y >= w.Max.Y {
		return 0
	}
	cx := int((p.X - w.Min.X) / w.CellSize)
	cy := int((p.Y - w.Min.Y) / w.CellSize)
	return cy*w.cols + cx + 1
}

func (w *World) areaCenter(area int) geom.Vec3 {
	i := area - 1
	cx, cy := i%w.cols, i/w.cols
	return geom.V(
		w.Min.X+(float32(cx)+0.5)*w.CellSize,
		w.Min.Y+(float32(cy)+0.5)*w.CellSize,
		0,
	)
}

// TravelTimeToGoalArea returns the straight line travel time in
// centiseconds, never less than 1 for a reachable area.
func (w *World) TravelTimeToGoalArea(fromArea int, fromOrigin geom.Vec3, toArea int, _ aas.TravelFlags) int {
	if fromArea == 0 || toArea == 0 {
		return 0
	}
	to := w.areaCenter(toArea)
	from := fromOrigin
	from.Z, to.Z = 0, 0
	t := from.DistanceTo(to) / w.Speed * 100
	if w.blocked(from, to) < 1 {
		if w.DetourFactor <= 0 {
			return 0
		}
		t *= w.DetourFactor
	}
	if t < 1 {
		return 1
	}
	return int(t)
}

func (w *World) Trace(from, to geom.Vec3, _ int) aas.TraceResult {
	return aas.TraceResult{Fraction: w.blocked(from, to)}
}

// blocked returns the fraction of from->to travelled before the first wall.
func (w *World) blocked(from, to geom.Vec3) float32 {
	best := float32(1)
	for _, wall := range w.Walls {
		if f, ok := intersect2D(from, to, wall.From, wall.To); ok && f < best {
			best = f
		}
	}
	return best
}

func intersect2D(p, p2, q, q2 geom.Vec3) (float32, bool) {
	rx, ry := p2.X-p.X, p2.Y-p.Y
	sx, sy := q2.X-q.X, q2.Y-q.Y
	denom := rx*sy - ry*sx
	if denom == 0 {
		return 0, false
	}
	qpx, qpy := q.X-p.X, q.Y-p.Y
	t := (qpx*sy - qpy*sx) / denom
	u := (qpx*ry - qpy*rx) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

func (w *World) NearestLocationName(p geom.Vec3) string {
	best := ""
	bestDist := float32(math.MaxFloat32)
	for _, l := range w.Locations {
		if d := p.SquareDistanceTo(l.Origin); d < bestDist {
			best, bestDist = l.Name, d
		}
	}
	return best
}
