// Package geom provides the small amount of 3D vector math the bot brain needs.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a point or direction in world units.
type Vec3 struct {
	X, Y, Z float32
}

// V returns a Vec3 from its components.
func V(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) SquaredLength() float32 {
	return v.Dot(v)
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.SquaredLength())))
}

// SquareDistanceTo avoids the square root for range comparisons.
func (v Vec3) SquareDistanceTo(o Vec3) float32 {
	return v.Sub(o).SquaredLength()
}

func (v Vec3) DistanceTo(o Vec3) float32 {
	return v.Sub(o).Length()
}

// Lerp returns v + (o - v) * t.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// Array returns the components in x, y, z order.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.1f %.1f %.1f)", v.X, v.Y, v.Z)
}

// Clamp01 limits f to [0, 1].
func Clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
