// Package drag implements the pointer gesture state machine: at any time
// the controller is idle or performing exactly one of a node drag, a
// canvas pan, or a connection draw.
package drag

import (
	"errors"
	"fmt"

	"github.com/msalah0e/funnel/internal/geom"
)

// State is the active gesture.
type State string

const (
	Idle              State = "idle"
	DraggingNode      State = "dragging_node"
	PanningCanvas     State = "panning_canvas"
	DrawingConnection State = "drawing_connection"
)

var ErrGestureActive = errors.New("another gesture is in progress")

// Controller holds the gesture state. The zero value is Idle.
type Controller struct {
	state State

	// node is the dragged node or the connection source.
	node string

	// grab is the pointer's offset from the dragged node's top-left,
	// in canvas units.
	grab geom.Point

	// last is the previous screen position while panning.
	last geom.Point

	// cursor is the canvas position of the pointer while drawing.
	cursor geom.Point
}

// Status is the serializable form of the controller.
type Status struct {
	State  State      `json:"state"`
	NodeID string     `json:"nodeId,omitempty"`
	Cursor geom.Point `json:"cursor"`
}

// State returns the active gesture.
func (c *Controller) State() State {
	if c.state == "" {
		return Idle
	}
	return c.state
}

// Status returns the current state for rendering.
func (c *Controller) Status() Status {
	return Status{State: c.State(), NodeID: c.node, Cursor: c.cursor}
}

func (c *Controller) begin(next State) error {
	if cur := c.State(); cur != Idle {
		return fmt.Errorf("%w: %s", ErrGestureActive, cur)
	}
	c.state = next
	return nil
}

// BeginNodeDrag starts moving a node. grab is the pointer offset inside
// the node.
func (c *Controller) BeginNodeDrag(id string, grab geom.Point) error {
	if err := c.begin(DraggingNode); err != nil {
		return err
	}
	c.node, c.grab = id, grab
	return nil
}

// DragTo returns the node's new top-left for a pointer at canvas position p.
func (c *Controller) DragTo(p geom.Point) (id string, pos geom.Point, ok bool) {
	if c.State() != DraggingNode {
		return "", geom.Point{}, false
	}
	return c.node, p.Sub(c.grab), true
}

// BeginPan starts panning from screen position p.
func (c *Controller) BeginPan(p geom.Point) error {
	if err := c.begin(PanningCanvas); err != nil {
		return err
	}
	c.last = p
	return nil
}

// PanDelta returns the screen delta from the previous pan position to p.
func (c *Controller) PanDelta(p geom.Point) (dx, dy float64, ok bool) {
	if c.State() != PanningCanvas {
		return 0, 0, false
	}
	d := p.Sub(c.last)
	return d.X, d.Y, true
}

// Advance moves the pan reference point once a delta has been applied.
func (c *Controller) Advance(dx, dy float64) {
	if c.State() == PanningCanvas {
		c.last = c.last.Add(geom.Pt(dx, dy))
	}
}

// BeginConnection starts drawing a connection out of node from.
func (c *Controller) BeginConnection(from string, cursor geom.Point) error {
	if err := c.begin(DrawingConnection); err != nil {
		return err
	}
	c.node, c.cursor = from, cursor
	return nil
}

// Track records the cursor while drawing.
func (c *Controller) Track(cursor geom.Point) bool {
	if c.State() != DrawingConnection {
		return false
	}
	c.cursor = cursor
	return true
}

// Source returns the node a connection is being drawn from.
func (c *Controller) Source() (string, bool) {
	if c.State() != DrawingConnection {
		return "", false
	}
	return c.node, true
}

// Release ends a node drag or a pan and returns the state that ended. A
// connection draw survives pointer-up; it resolves on the next press.
func (c *Controller) Release() (State, string) {
	switch st := c.State(); st {
	case DraggingNode, PanningCanvas:
		id := c.node
		c.reset()
		return st, id
	}
	return Idle, ""
}

// CompleteConnection ends the connection draw and returns its source.
func (c *Controller) CompleteConnection() (string, bool) {
	from, ok := c.Source()
	if ok {
		c.reset()
	}
	return from, ok
}

// CancelConnection abandons a connection draw. It reports whether one was
// in progress; cancelling when idle is a no-op.
func (c *Controller) CancelConnection() bool {
	if c.State() != DrawingConnection {
		return false
	}
	c.reset()
	return true
}

// Abort drops any gesture. Used when the graph is replaced wholesale.
func (c *Controller) Abort() {
	c.reset()
}

func (c *Controller) reset() {
	*c = Controller{state: Idle}
}
