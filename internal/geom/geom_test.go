package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointMath(t *testing.T) {
	p, q := Pt(3, 4), Pt(1, 1)
	assert.Equal(t, Pt(4, 5), p.Add(q))
	assert.Equal(t, Pt(2, 3), p.Sub(q))
	assert.Equal(t, Pt(6, 8), p.Scale(2))
	assert.Equal(t, 5.0, p.Len())
	assert.Equal(t, 5.0, Pt(0, 0).Dist(p))
	assert.Equal(t, Pt(2, 2.5), Lerp(q, p, 0.5))
}

func TestNormal(t *testing.T) {
	assert.Equal(t, Pt(0, -1), Pt(10, 0).Normal())
	assert.Equal(t, Point{}, Point{}.Normal(), "zero vector has no normal")
}

func TestRect(t *testing.T) {
	r := Rect{X: 100, Y: 150, W: 200, H: 80}
	assert.True(t, r.Contains(Pt(100, 150)), "corner is inside")
	assert.True(t, r.Contains(Pt(300, 230)))
	assert.False(t, r.Contains(Pt(301, 200)))
	assert.Equal(t, Pt(200, 190), r.Center())
}

func TestSegmentDist(t *testing.T) {
	a, b := Pt(0, 0), Pt(10, 0)
	assert.Equal(t, 3.0, SegmentDist(Pt(5, 3), a, b))
	assert.Equal(t, 5.0, SegmentDist(Pt(13, 4), a, b), "beyond the end measures to the endpoint")
	assert.Equal(t, 5.0, SegmentDist(Pt(3, 4), a, a), "degenerate segment")
}

func TestCubic(t *testing.T) {
	p0, c1, c2, p3 := Pt(0, 0), Pt(0, 10), Pt(10, 10), Pt(10, 0)
	assert.Equal(t, p0, Cubic(p0, c1, c2, p3, 0))
	assert.Equal(t, p3, Cubic(p0, c1, c2, p3, 1))
	assert.Equal(t, Pt(5, 7.5), Cubic(p0, c1, c2, p3, 0.5))

	tan := CubicTangent(p0, c1, c2, p3, 0.5)
	assert.InDelta(t, 15, tan.X, 1e-9)
	assert.InDelta(t, 0, tan.Y, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.3, Clamp(0.1, 0.3, 2))
	assert.Equal(t, 2.0, Clamp(5, 0.3, 2))
	assert.Equal(t, 1.0, Clamp(1, 0.3, 2))
	assert.Equal(t, 0.3, Clamp(math.NaN(), 0.3, 2), "NaN clamps to the lower bound")
	assert.Equal(t, 2.0, Clamp(math.Inf(1), 0.3, 2))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(-1e9))
	assert.False(t, Finite(math.NaN()))
	assert.False(t, Finite(math.Inf(-1)))
}
