// Package geom holds the planar geometry used by the planner: positions and
// velocities in the local tangent plane around the home origin, and the
// circular no-go zones the vehicle must stay out of.
//
// All coordinates are metres east (X) and north (Y) of home; velocities are
// metres per second in the same frame.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in the local frame.
type Point r2.Vec

// Vector is a velocity or direction in the local frame.
type Vector r2.Vec

// FallbackDirection is used when a direction is requested from a zero-length
// vector (the vehicle sits exactly on a zone centre). It points east.
var FallbackDirection = Vector{X: 1, Y: 0}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Vec is shorthand for Vector{X: x, Y: y}.
func Vec(x, y float64) Vector { return Vector{X: x, Y: y} }

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(r2.Vec(a), r2.Vec(b)))
}

// Sub returns the vector from b to a.
func Sub(a, b Point) Vector {
	return Vector(r2.Sub(r2.Vec(a), r2.Vec(b)))
}

// Offset returns p moved along v scaled by s.
func (p Point) Offset(v Vector, s float64) Point {
	return Point(r2.Add(r2.Vec(p), r2.Scale(s, r2.Vec(v))))
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool { return finite(p.X) && finite(p.Y) }

func (p Point) String() string { return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y) }

// Norm returns the length of v.
func (v Vector) Norm() float64 { return r2.Norm(r2.Vec(v)) }

// IsFinite reports whether both components are finite numbers.
func (v Vector) IsFinite() bool { return finite(v.X) && finite(v.Y) }

// Unit returns v scaled to length one. A zero vector yields
// FallbackDirection and false.
func (v Vector) Unit() (Vector, bool) {
	if v.X == 0 && v.Y == 0 {
		return FallbackDirection, false
	}
	return Vector(r2.Unit(r2.Vec(v))), true
}

// Bearing returns the angle of the ray from -> to, measured from +X
// counter-clockwise, in radians.
func Bearing(from, to Point) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)
}

// Polar returns the point at the given radius and angle from centre.
func Polar(centre Point, radius, angle float64) Point {
	return Point{
		X: centre.X + radius*math.Cos(angle),
		Y: centre.Y + radius*math.Sin(angle),
	}
}

// NormalizeAngle wraps a into [-pi, pi].
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// ClosestOnSegment returns the point of segment start->end nearest to p.
// The projection parameter is clamped to [0, 1]. ok is false for a
// zero-length segment.
func ClosestOnSegment(start, end, p Point) (closest Point, ok bool) {
	d := r2.Sub(r2.Vec(end), r2.Vec(start))
	l2 := r2.Norm2(d)
	if l2 == 0 {
		return start, false
	}
	t := r2.Dot(r2.Sub(r2.Vec(p), r2.Vec(start)), d) / l2
	t = math.Max(0, math.Min(1, t))
	return Point(r2.Add(r2.Vec(start), r2.Scale(t, d))), true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
