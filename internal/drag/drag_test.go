package drag

import (
	"testing"

	"github.com/msalah0e/funnel/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDrag(t *testing.T) {
	var c Controller
	assert.Equal(t, Idle, c.State())

	require.NoError(t, c.BeginNodeDrag("a", geom.Pt(10, 5)))
	assert.Equal(t, DraggingNode, c.State())

	id, pos, ok := c.DragTo(geom.Pt(110, 205))
	require.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, geom.Pt(100, 200), pos)

	st, id := c.Release()
	assert.Equal(t, DraggingNode, st)
	assert.Equal(t, "a", id)
	assert.Equal(t, Idle, c.State())
}

func TestPan(t *testing.T) {
	var c Controller
	require.NoError(t, c.BeginPan(geom.Pt(100, 100)))

	dx, dy, ok := c.PanDelta(geom.Pt(130, 90))
	require.True(t, ok)
	assert.Equal(t, 30.0, dx)
	assert.Equal(t, -10.0, dy)

	dx, _, _ = c.PanDelta(geom.Pt(130, 90))
	assert.Equal(t, 30.0, dx, "delta is relative until advanced")

	c.Advance(30, -10)
	dx, dy, _ = c.PanDelta(geom.Pt(131, 90))
	assert.Equal(t, 1.0, dx)
	assert.Equal(t, 0.0, dy)

	st, _ := c.Release()
	assert.Equal(t, PanningCanvas, st)
	assert.Equal(t, Idle, c.State())
}

func TestConnectionSurvivesRelease(t *testing.T) {
	var c Controller
	require.NoError(t, c.BeginConnection("a", geom.Pt(1, 2)))

	st, _ := c.Release()
	assert.Equal(t, Idle, st, "pointer-up does not end a connection draw")
	assert.Equal(t, DrawingConnection, c.State())

	assert.True(t, c.Track(geom.Pt(50, 60)))
	assert.Equal(t, geom.Pt(50, 60), c.Status().Cursor)

	from, ok := c.CompleteConnection()
	require.True(t, ok)
	assert.Equal(t, "a", from)
	assert.Equal(t, Idle, c.State())
}

func TestOnlyOneGestureAtATime(t *testing.T) {
	begins := map[State]func(c *Controller) error{
		DraggingNode:      func(c *Controller) error { return c.BeginNodeDrag("n", geom.Point{}) },
		PanningCanvas:     func(c *Controller) error { return c.BeginPan(geom.Point{}) },
		DrawingConnection: func(c *Controller) error { return c.BeginConnection("n", geom.Point{}) },
	}
	for active, start := range begins {
		for other, next := range begins {
			var c Controller
			require.NoError(t, start(&c))
			err := next(&c)
			require.ErrorIs(t, err, ErrGestureActive, "%s while %s", other, active)
			assert.Equal(t, active, c.State())
		}
	}
}

func TestCancelConnectionIsIdempotent(t *testing.T) {
	var c Controller
	assert.False(t, c.CancelConnection())
	assert.Equal(t, Idle, c.State())

	require.NoError(t, c.BeginConnection("a", geom.Point{}))
	assert.True(t, c.CancelConnection())
	assert.False(t, c.CancelConnection())
	assert.Equal(t, Idle, c.State())
}

func TestCancelDoesNotEndOtherGestures(t *testing.T) {
	var c Controller
	require.NoError(t, c.BeginNodeDrag("a", geom.Point{}))
	assert.False(t, c.CancelConnection())
	assert.Equal(t, DraggingNode, c.State())
}

func TestMovesIgnoredInWrongState(t *testing.T) {
	var c Controller
	_, _, ok := c.DragTo(geom.Pt(1, 1))
	assert.False(t, ok)
	_, _, ok = c.PanDelta(geom.Pt(1, 1))
	assert.False(t, ok)
	assert.False(t, c.Track(geom.Pt(1, 1)))
	_, ok = c.Source()
	assert.False(t, ok)
}

func TestAbort(t *testing.T) {
	var c Controller
	require.NoError(t, c.BeginPan(geom.Point{}))
	c.Abort()
	assert.Equal(t, Status{State: Idle}, c.Status())
}
