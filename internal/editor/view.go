package editor

import (
	"github.com/msalah0e/funnel/internal/drag"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/route"
	"github.com/msalah0e/funnel/internal/selection"
	"github.com/msalah0e/funnel/internal/viewport"
)

// NodeView is a node plus its resolved appearance.
type NodeView struct {
	graph.Node
	Appearance graph.Appearance `json:"appearance"`
	Selected   bool             `json:"selected,omitempty"`
}

// View is everything a renderer needs for one frame.
type View struct {
	Nodes      []NodeView        `json:"nodes"`
	Routes     []route.Route     `json:"routes"`
	Pending    *route.Route      `json:"pending,omitempty"`
	Viewport   viewport.Viewport `json:"viewport"`
	Selection  selection.State   `json:"selection"`
	Gesture    drag.Status       `json:"gesture"`
	Notice     *Notice           `json:"notice,omitempty"`
	SaveDialog bool              `json:"saveDialog,omitempty"`
	Busy       int               `json:"busy,omitempty"`
	Record     string            `json:"record,omitempty"`
}

// View renders the session. Connections whose endpoints are missing are
// skipped and reported through the router.
func (e *Editor) View() View {
	selected, _ := e.sel.Node()
	nodes := e.g.Nodes()
	v := View{
		Nodes:      make([]NodeView, 0, len(nodes)),
		Routes:     e.cfg.Router.RouteAll(e.g),
		Viewport:   e.vp,
		Selection:  e.sel.State(),
		Gesture:    e.drag.Status(),
		Notice:     e.notice,
		SaveDialog: e.saveDialog,
		Busy:       e.pending,
	}
	for _, n := range nodes {
		v.Nodes = append(v.Nodes, NodeView{Node: n, Appearance: n.Appearance(), Selected: n.ID == selected})
	}
	if from, ok := e.drag.Source(); ok {
		if n, ok := e.g.Node(from); ok {
			p := e.cfg.Router.Preview(n.Position, e.drag.Status().Cursor)
			v.Pending = &p
		}
	}
	if e.record != nil {
		v.Record = e.record.Name
	}
	return v
}

// SVG renders the graph with the current selection highlighted.
func (e *Editor) SVG(title string) string {
	opts := route.SVGOptions{Title: title}
	opts.Selected, _ = e.sel.Node()
	opts.Editing, _ = e.sel.Edge()
	return route.RenderSVG(e.g, e.cfg.Router, opts)
}
