// Package geom holds the small set of 2D primitives shared by the canvas,
// the viewport, and the edge router.
package geom

import "math"

// Point is a position in either screen or canvas space. Which space a value
// lives in is decided by the code that produced it.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point {
	return Point{p.X * k, p.Y * k}
}

// Len returns the Euclidean length of p treated as a vector.
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 {
	return q.Sub(p).Len()
}

// Normal returns the unit left-hand normal of p, or the zero vector when p
// has no direction.
func (p Point) Normal() Point {
	l := p.Len()
	if l == 0 {
		return Point{}
	}
	return Point{p.Y / l, -p.X / l}
}

// Lerp interpolates between a and b.
func Lerp(a, b Point, t float64) Point {
	return Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{r.X + r.W/2, r.Y + r.H/2}
}

// SegmentDist returns the shortest distance from p to the segment a-b.
func SegmentDist(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Lerp(a, b, t))
}

// Cubic evaluates the cubic Bézier p0,c1,c2,p3 at t.
func Cubic(p0, c1, c2, p3 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		a*p0.X + b*c1.X + c*c2.X + d*p3.X,
		a*p0.Y + b*c1.Y + c*c2.Y + d*p3.Y,
	}
}

// CubicTangent returns the derivative of the cubic Bézier at t.
func CubicTangent(p0, c1, c2, p3 Point, t float64) Point {
	u := 1 - t
	a := 3 * u * u
	b := 6 * u * t
	c := 3 * t * t
	return Point{
		a*(c1.X-p0.X) + b*(c2.X-c1.X) + c*(p3.X-c2.X),
		a*(c1.Y-p0.Y) + b*(c2.Y-c1.Y) + c*(p3.Y-c2.Y),
	}
}

// Clamp bounds v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
