package editor

import (
	"fmt"

	"github.com/msalah0e/funnel/internal/drag"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/persist"
)

// Command is one named change to the editing session. Apply runs a command
// atomically: a command that fails leaves every part of the session as it
// was.
type Command interface {
	Name() string
	apply(e *Editor) error
}

type AddNode struct{ Node graph.Node }

type MoveNode struct {
	ID       string
	Position geom.Point
}

type DeleteNode struct{ ID string }

// Connect adds a connection. When a connection is being drawn from From,
// it also completes the draw.
type Connect struct {
	From, To string
	Label    string
}

type DeleteEdge struct{ ID string }

type UpdateNode struct {
	ID    string
	Patch graph.NodePatch
}

type UpdateEdge struct {
	ID    string
	Patch graph.EdgePatch
}

type SelectNode struct{ ID string }

type EditEdge struct{ ID string }

type ClearSelection struct{}

type StartConnection struct {
	From   string
	Cursor geom.Point
}

type TrackCursor struct{ At geom.Point }

// CancelConnection abandons a connection draw. With ClearSelection it is
// the Escape command.
type CancelConnection struct{ ClearSelection bool }

type BeginDrag struct {
	ID   string
	Grab geom.Point
}

// EndDrag commits the dragged node's final position, if given, and ends
// the drag.
type EndDrag struct{ Position *geom.Point }

type BeginPan struct{ At geom.Point }

type PanBy struct{ DX, DY float64 }

type EndPan struct{}

type ZoomBy struct{ Delta float64 }

type OpenSaveDialog struct{}

// Saved applies the outcome of an asynchronous save.
type Saved struct{ Result persist.SaveResult }

// Loaded applies the outcome of an asynchronous load. On success the graph
// is replaced wholesale; on failure nothing changes.
type Loaded struct{ Result persist.LoadResult }

func (AddNode) Name() string          { return "add_node" }
func (MoveNode) Name() string         { return "move_node" }
func (DeleteNode) Name() string       { return "delete_node" }
func (Connect) Name() string          { return "connect" }
func (DeleteEdge) Name() string       { return "delete_edge" }
func (UpdateNode) Name() string       { return "update_node" }
func (UpdateEdge) Name() string       { return "update_edge" }
func (SelectNode) Name() string       { return "select_node" }
func (EditEdge) Name() string         { return "edit_edge" }
func (ClearSelection) Name() string   { return "clear_selection" }
func (StartConnection) Name() string  { return "start_connection" }
func (TrackCursor) Name() string      { return "track_cursor" }
func (CancelConnection) Name() string { return "cancel_connection" }
func (BeginDrag) Name() string        { return "begin_drag" }
func (EndDrag) Name() string          { return "end_drag" }
func (BeginPan) Name() string         { return "begin_pan" }
func (PanBy) Name() string            { return "pan_by" }
func (EndPan) Name() string           { return "end_pan" }
func (ZoomBy) Name() string           { return "zoom_by" }
func (OpenSaveDialog) Name() string   { return "open_save_dialog" }
func (Saved) Name() string            { return "saved" }
func (Loaded) Name() string           { return "loaded" }

func (c AddNode) apply(e *Editor) error {
	n, err := e.g.AddNode(c.Node)
	if err != nil {
		return err
	}
	e.lastNode = n.ID
	return nil
}

func (c MoveNode) apply(e *Editor) error {
	pos := c.Position
	_, err := e.g.UpdateNode(c.ID, graph.NodePatch{Position: &pos})
	return err
}

func (c DeleteNode) apply(e *Editor) error {
	removed, err := e.g.RemoveNode(c.ID)
	if err != nil {
		return err
	}
	e.sel.Forget(c.ID)
	for _, r := range removed {
		e.sel.Forget(r.ID)
	}
	if st := e.drag.Status(); st.NodeID == c.ID {
		e.drag.Abort()
	}
	return nil
}

func (c Connect) apply(e *Editor) error {
	edge, err := e.g.AddEdge(c.From, c.To, c.Label)
	if err != nil {
		return err
	}
	if p, ok := e.edgeDefaults(edge); ok {
		if _, err := e.g.UpdateEdge(edge.ID, p); err != nil {
			_, _ = e.g.RemoveEdge(edge.ID)
			return err
		}
	}
	if from, ok := e.drag.Source(); ok && from == c.From {
		e.drag.CompleteConnection()
	}
	e.lastEdge = edge.ID
	return nil
}

func (c DeleteEdge) apply(e *Editor) error {
	if _, err := e.g.RemoveEdge(c.ID); err != nil {
		return err
	}
	e.sel.Forget(c.ID)
	return nil
}

func (c UpdateNode) apply(e *Editor) error {
	_, err := e.g.UpdateNode(c.ID, c.Patch)
	return err
}

func (c UpdateEdge) apply(e *Editor) error {
	_, err := e.g.UpdateEdge(c.ID, c.Patch)
	return err
}

func (c SelectNode) apply(e *Editor) error {
	if !e.g.HasNode(c.ID) {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, c.ID)
	}
	e.drag.CancelConnection()
	e.sel.SelectNode(c.ID)
	return nil
}

func (c EditEdge) apply(e *Editor) error {
	if _, ok := e.g.Edge(c.ID); !ok {
		return fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, c.ID)
	}
	e.drag.CancelConnection()
	e.sel.EditEdge(c.ID)
	return nil
}

func (ClearSelection) apply(e *Editor) error {
	e.sel.Clear()
	return nil
}

func (c StartConnection) apply(e *Editor) error {
	if !e.g.HasNode(c.From) {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, c.From)
	}
	if err := e.drag.BeginConnection(c.From, c.Cursor); err != nil {
		return err
	}
	e.sel.Clear()
	return nil
}

func (c TrackCursor) apply(e *Editor) error {
	e.drag.Track(c.At)
	return nil
}

func (c CancelConnection) apply(e *Editor) error {
	e.drag.CancelConnection()
	if c.ClearSelection {
		e.sel.Clear()
	}
	return nil
}

func (c BeginDrag) apply(e *Editor) error {
	if !e.g.HasNode(c.ID) {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, c.ID)
	}
	if err := e.drag.BeginNodeDrag(c.ID, c.Grab); err != nil {
		return err
	}
	e.sel.SelectNode(c.ID)
	return nil
}

func (c EndDrag) apply(e *Editor) error {
	st := e.drag.Status()
	if st.State != drag.DraggingNode {
		return nil
	}
	if c.Position != nil {
		pos := *c.Position
		if _, err := e.g.UpdateNode(st.NodeID, graph.NodePatch{Position: &pos}); err != nil {
			return err
		}
	}
	e.drag.Release()
	return nil
}

func (c BeginPan) apply(e *Editor) error {
	return e.drag.BeginPan(c.At)
}

func (c PanBy) apply(e *Editor) error {
	e.vp.Pan(c.DX, c.DY)
	e.drag.Advance(c.DX, c.DY)
	return nil
}

func (EndPan) apply(e *Editor) error {
	if e.drag.State() == drag.PanningCanvas {
		e.drag.Release()
	}
	return nil
}

func (c ZoomBy) apply(e *Editor) error {
	e.vp.ZoomBy(c.Delta)
	return nil
}

func (OpenSaveDialog) apply(e *Editor) error {
	e.saveDialog = true
	return nil
}

func (c Saved) apply(e *Editor) error {
	e.settle()
	if c.Result.Err != nil {
		e.notice = &Notice{Level: LevelError, Message: "save failed: " + c.Result.Err.Error()}
		return nil
	}
	rec := c.Result.Record
	e.record = &rec
	e.notice = &Notice{Level: LevelInfo, Message: fmt.Sprintf("saved %q", rec.Name)}
	return nil
}

func (c Loaded) apply(e *Editor) error {
	e.settle()
	if c.Result.Err != nil || c.Result.Graph == nil {
		msg := "load failed"
		if c.Result.Err != nil {
			msg += ": " + c.Result.Err.Error()
		}
		e.notice = &Notice{Level: LevelError, Message: msg}
		return nil
	}
	e.g = c.Result.Graph
	e.sel.Clear()
	e.drag.Abort()
	rec := c.Result.Record
	e.record = &rec
	e.notice = &Notice{Level: LevelInfo, Message: fmt.Sprintf("loaded %q", rec.Name)}
	return nil
}

// edgeDefaults returns the patch that gives a new connection the
// configured style, if it differs from what the graph assigned.
func (e *Editor) edgeDefaults(c graph.Connection) (graph.EdgePatch, bool) {
	var p graph.EdgePatch
	if st := e.cfg.EdgeStyle; st != "" && st != c.Style {
		p.Style = &st
	}
	if cv := e.cfg.EdgeCurvature; cv != 0 && cv != c.Curvature {
		p.Curvature = &cv
	}
	return p, p.Style != nil || p.Curvature != nil
}
