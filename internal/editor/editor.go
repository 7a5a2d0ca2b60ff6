// Package editor is the input controller of a funnel editing session. It
// resolves raw pointer, wheel, and key events into named commands and
// applies them to the graph, viewport, selection, and gesture state.
package editor

import (
	"context"
	"errors"
	"strings"

	"github.com/msalah0e/funnel/internal/activity"
	"github.com/msalah0e/funnel/internal/drag"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/msalah0e/funnel/internal/route"
	"github.com/msalah0e/funnel/internal/selection"
	"github.com/msalah0e/funnel/internal/viewport"
)

var ErrNoGateway = errors.New("no saved-funnel store configured")

// Config tunes event resolution.
type Config struct {
	Router route.Router

	// Origin is the canvas container's top-left in screen space.
	Origin geom.Point

	// PortRadius is the pick radius of a port in screen pixels.
	PortRadius float64

	ZoomStep     float64
	PanModifier  string
	ZoomModifier string

	// EdgeStyle and EdgeCurvature are given to new connections. Zero values
	// keep the graph defaults.
	EdgeStyle     graph.EdgeStyle
	EdgeCurvature float64
}

// DefaultConfig returns the settings used without a config file.
func DefaultConfig() Config {
	return Config{
		Router:       route.Default(),
		PortRadius:   10,
		ZoomStep:     0.1,
		PanModifier:  "shift",
		ZoomModifier: "ctrl",
	}
}

// Notice levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is the inline message shown after a rejected command or a
// persistence outcome.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Editor is one editing session. It has exactly one mutator: every method
// must be called from the goroutine that owns the session.
type Editor struct {
	cfg Config
	g   *graph.Graph
	vp  viewport.Viewport

	sel  selection.Manager
	drag drag.Controller

	gw      *persist.Gateway
	pending int
	record  *persist.Record

	notice     *Notice
	saveDialog bool

	lastNode string
	lastEdge string
}

// New creates an editor over g. A nil graph starts empty.
func New(g *graph.Graph, cfg Config) *Editor {
	if g == nil {
		g = graph.New()
	}
	if cfg.Router.OnSkip == nil {
		cfg.Router.OnSkip = func(e graph.Connection, err error) {
			_ = activity.Log("route.skip", e.ID, err.Error())
		}
	}
	return &Editor{cfg: cfg, g: g, vp: viewport.New()}
}

// SetGateway attaches the saved-funnel store.
func (e *Editor) SetGateway(gw *persist.Gateway) { e.gw = gw }

// Gateway returns the session's persistence gateway, or nil.
func (e *Editor) Gateway() *persist.Gateway { return e.gw }

// Graph returns the live graph.
func (e *Editor) Graph() *graph.Graph { return e.g }

// Viewport returns the current pan and zoom.
func (e *Editor) Viewport() viewport.Viewport { return e.vp }

// SetViewport restores a saved viewport, clamping its zoom.
func (e *Editor) SetViewport(v viewport.Viewport) { e.vp = v.Normalize() }

// Router returns the router used for hit-testing and rendering.
func (e *Editor) Router() route.Router { return e.cfg.Router }

// Selection returns the selection state.
func (e *Editor) Selection() selection.State { return e.sel.State() }

// Gesture returns the pointer gesture state.
func (e *Editor) Gesture() drag.Status { return e.drag.Status() }

// Notice returns the last message, if any.
func (e *Editor) Notice() *Notice { return e.notice }

// DismissNotice clears the message.
func (e *Editor) DismissNotice() { e.notice = nil }

// LastNode returns the id of the most recently added node.
func (e *Editor) LastNode() string { return e.lastNode }

// LastEdge returns the id of the most recently added connection.
func (e *Editor) LastEdge() string { return e.lastEdge }

// Record returns the saved funnel the session was last saved to or loaded
// from.
func (e *Editor) Record() *persist.Record { return e.record }

// Apply runs cmd. A rejected command changes nothing, becomes a warning
// notice, and is returned for callers that want it.
func (e *Editor) Apply(cmd Command) error {
	if err := cmd.apply(e); err != nil {
		e.notice = &Notice{Level: LevelWarning, Message: err.Error()}
		return err
	}
	return nil
}

// dispatch applies cmd if non-nil and returns it.
func (e *Editor) dispatch(cmd Command) Command {
	if cmd != nil {
		_ = e.Apply(cmd)
	}
	return cmd
}

// HitKind says what lies under a canvas point.
type HitKind string

const (
	HitNone    HitKind = "none"
	HitOutPort HitKind = "out_port"
	HitInPort  HitKind = "in_port"
	HitNode    HitKind = "node"
	HitEdge    HitKind = "edge"
)

// Hit is the result of a hit test.
type Hit struct {
	Kind   HitKind
	NodeID string
	EdgeID string
}

// HitTest finds what is under canvas point p. Ports win over node bodies,
// node bodies over connections, and later items over earlier ones.
func (e *Editor) HitTest(p geom.Point) Hit {
	r := e.cfg.Router
	nodes := e.g.Nodes()
	radius := e.cfg.PortRadius / e.vp.Zoom

	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if r.OutPort(n.Position).Dist(p) <= radius {
			return Hit{Kind: HitOutPort, NodeID: n.ID}
		}
		if r.InPort(n.Position).Dist(p) <= radius {
			return Hit{Kind: HitInPort, NodeID: n.ID}
		}
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		if r.NodeRect(nodes[i].Position).Contains(p) {
			return Hit{Kind: HitNode, NodeID: nodes[i].ID}
		}
	}
	routes := r.RouteAll(e.g)
	for i := len(routes) - 1; i >= 0; i-- {
		if routes[i].Hits(p) {
			return Hit{Kind: HitEdge, EdgeID: routes[i].EdgeID}
		}
	}
	return Hit{Kind: HitNone}
}

// ToCanvas maps a screen point to canvas coordinates.
func (e *Editor) ToCanvas(x, y float64) geom.Point {
	return e.vp.ScreenToCanvas(e.cfg.Origin, x, y)
}

// ResolvePointer maps a pointer event to the command it means in the
// current state, or nil.
func (e *Editor) ResolvePointer(ev PointerEvent) Command {
	at := e.ToCanvas(ev.X, ev.Y)
	switch ev.Kind {
	case PointerDown:
		return e.resolveDown(ev, at)
	case PointerMove:
		return e.resolveMove(ev, at)
	case PointerUp:
		return e.resolveUp(at)
	}
	return nil
}

func (e *Editor) resolveDown(ev PointerEvent, at geom.Point) Command {
	switch e.drag.State() {
	case drag.DrawingConnection:
		from, _ := e.drag.Source()
		hit := e.HitTest(at)
		if hit.NodeID != "" {
			return Connect{From: from, To: hit.NodeID}
		}
		return CancelConnection{}
	case drag.Idle:
	default:
		return nil
	}

	if ev.Button == Middle {
		return BeginPan{At: geom.Pt(ev.X, ev.Y)}
	}
	if ev.Button != Primary {
		return nil
	}
	hit := e.HitTest(at)
	switch hit.Kind {
	case HitOutPort:
		return StartConnection{From: hit.NodeID, Cursor: at}
	case HitInPort:
		return SelectNode{ID: hit.NodeID}
	case HitNode:
		n, _ := e.g.Node(hit.NodeID)
		return BeginDrag{ID: n.ID, Grab: at.Sub(n.Position)}
	case HitEdge:
		return EditEdge{ID: hit.EdgeID}
	}
	if ev.Mods.Has(e.cfg.PanModifier) {
		return BeginPan{At: geom.Pt(ev.X, ev.Y)}
	}
	return ClearSelection{}
}

func (e *Editor) resolveMove(ev PointerEvent, at geom.Point) Command {
	switch e.drag.State() {
	case drag.DraggingNode:
		id, pos, _ := e.drag.DragTo(at)
		return MoveNode{ID: id, Position: pos}
	case drag.PanningCanvas:
		dx, dy, _ := e.drag.PanDelta(geom.Pt(ev.X, ev.Y))
		return PanBy{DX: dx, DY: dy}
	case drag.DrawingConnection:
		return TrackCursor{At: at}
	}
	return nil
}

func (e *Editor) resolveUp(at geom.Point) Command {
	switch e.drag.State() {
	case drag.DraggingNode:
		_, pos, _ := e.drag.DragTo(at)
		return EndDrag{Position: &pos}
	case drag.PanningCanvas:
		return EndPan{}
	}
	return nil
}

// ResolveWheel maps a scroll gesture to a zoom. Without the zoom modifier
// the gesture is left to the container and nil is returned.
func (e *Editor) ResolveWheel(ev WheelEvent) Command {
	if !ev.Mods.Has(e.cfg.ZoomModifier) || ev.DeltaY == 0 {
		return nil
	}
	step := e.cfg.ZoomStep
	if ev.DeltaY > 0 {
		step = -step
	}
	return ZoomBy{Delta: step}
}

// ResolveKey maps a key press to a command, or nil.
func (e *Editor) ResolveKey(ev KeyEvent) Command {
	switch ev.Key {
	case "Escape", "Esc":
		return CancelConnection{ClearSelection: true}
	case "Delete", "Backspace":
		if id, ok := e.sel.Node(); ok {
			return DeleteNode{ID: id}
		}
		if id, ok := e.sel.Edge(); ok {
			return DeleteEdge{ID: id}
		}
		return nil
	}
	if strings.EqualFold(ev.Key, "s") && ev.Mods.Has("ctrl") {
		return OpenSaveDialog{}
	}
	return nil
}

// Pointer resolves and applies a pointer event. It returns the command that
// ran, or nil when the event meant nothing.
func (e *Editor) Pointer(ev PointerEvent) Command { return e.dispatch(e.ResolvePointer(ev)) }

// Wheel resolves and applies a scroll gesture. A nil result means the
// gesture was not consumed.
func (e *Editor) Wheel(ev WheelEvent) Command { return e.dispatch(e.ResolveWheel(ev)) }

// Key resolves and applies a key press.
func (e *Editor) Key(ev KeyEvent) Command { return e.dispatch(e.ResolveKey(ev)) }

// SaveDialogOpen reports whether a save was requested from the keyboard
// and not yet started.
func (e *Editor) SaveDialogOpen() bool { return e.saveDialog }

// CloseSaveDialog dismisses a pending save request.
func (e *Editor) CloseSaveDialog() { e.saveDialog = false }

// Busy returns the number of outstanding persistence calls.
func (e *Editor) Busy() int { return e.pending }

func (e *Editor) settle() {
	if e.pending > 0 {
		e.pending--
	}
}

// StartSave snapshots the graph and saves it in the background. Editing
// continues while the request is out; apply the result with Saved.
func (e *Editor) StartSave(ctx context.Context, name string) (<-chan persist.SaveResult, error) {
	if strings.TrimSpace(name) == "" {
		e.notice = &Notice{Level: LevelWarning, Message: persist.ErrEmptyName.Error()}
		return nil, persist.ErrEmptyName
	}
	if e.gw == nil {
		e.notice = &Notice{Level: LevelError, Message: ErrNoGateway.Error()}
		return nil, ErrNoGateway
	}
	e.saveDialog = false
	e.pending++
	return e.gw.SaveAsync(ctx, name, e.g.Snapshot()), nil
}

// StartLoad fetches a saved funnel in the background; apply the result
// with Loaded.
func (e *Editor) StartLoad(ctx context.Context, ref string) (<-chan persist.LoadResult, error) {
	if e.gw == nil {
		e.notice = &Notice{Level: LevelError, Message: ErrNoGateway.Error()}
		return nil, ErrNoGateway
	}
	e.pending++
	return e.gw.LoadAsync(ctx, ref), nil
}

// Save saves and waits for the outcome.
func (e *Editor) Save(ctx context.Context, name string) (persist.Record, error) {
	ch, err := e.StartSave(ctx, name)
	if err != nil {
		return persist.Record{}, err
	}
	res := <-ch
	_ = e.Apply(Saved{Result: res})
	return res.Record, res.Err
}

// Load loads and waits for the outcome.
func (e *Editor) Load(ctx context.Context, ref string) (persist.Record, error) {
	ch, err := e.StartLoad(ctx, ref)
	if err != nil {
		return persist.Record{}, err
	}
	res := <-ch
	_ = e.Apply(Loaded{Result: res})
	return res.Record, res.Err
}
