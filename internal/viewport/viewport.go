// Package viewport maps between screen (pointer) coordinates and canvas
// (model) coordinates under a pan offset and a zoom factor.
package viewport

import (
	"math"

	"github.com/msalah0e/funnel/internal/geom"
)

const (
	MinZoom = 0.3
	MaxZoom = 2.0
)

// Viewport is the pan offset in screen pixels plus the zoom factor.
// Zoom always lies in [MinZoom, MaxZoom] after any method call.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// New returns the identity viewport.
func New() Viewport {
	return Viewport{Zoom: 1}
}

// Normalize clamps a viewport read from disk or the wire. A zero or NaN
// zoom is treated as unset; a non-finite offset resets to zero.
func (v Viewport) Normalize() Viewport {
	if v.Zoom == 0 || math.IsNaN(v.Zoom) {
		v.Zoom = 1
	}
	v.Zoom = geom.Clamp(v.Zoom, MinZoom, MaxZoom)
	if !geom.Finite(v.X) {
		v.X = 0
	}
	if !geom.Finite(v.Y) {
		v.Y = 0
	}
	return v
}

// ScreenToCanvas converts a pointer position to canvas space. origin is the
// canvas container's top-left corner in screen space.
func (v Viewport) ScreenToCanvas(origin geom.Point, clientX, clientY float64) geom.Point {
	return geom.Point{
		X: (clientX - origin.X - v.X) / v.Zoom,
		Y: (clientY - origin.Y - v.Y) / v.Zoom,
	}
}

// CanvasToScreen is the inverse of ScreenToCanvas.
func (v Viewport) CanvasToScreen(origin geom.Point, p geom.Point) geom.Point {
	return geom.Point{
		X: p.X*v.Zoom + v.X + origin.X,
		Y: p.Y*v.Zoom + v.Y + origin.Y,
	}
}

// Pan moves the offset. The canvas is unbounded; non-finite deltas are
// ignored.
func (v *Viewport) Pan(dx, dy float64) {
	if !geom.Finite(dx) || !geom.Finite(dy) {
		return
	}
	v.X += dx
	v.Y += dy
}

// ZoomBy adds delta to the zoom and clamps the result.
func (v *Viewport) ZoomBy(delta float64) {
	v.SetZoom(v.Zoom + delta)
}

// SetZoom sets the zoom, clamped. NaN leaves the zoom as it was.
func (v *Viewport) SetZoom(z float64) {
	if math.IsNaN(z) {
		z = v.Zoom
	}
	v.Zoom = geom.Clamp(z, MinZoom, MaxZoom)
}

// Reset restores the identity viewport.
func (v *Viewport) Reset() {
	*v = New()
}
