// Package route computes renderable paths for funnel connections: the
// visible path, a wide invisible hit path for pointer picking, and the
// anchor and backdrop of the connection label.
package route

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
)

var ErrDanglingEdge = errors.New("connection endpoint no longer exists")

// Router holds the geometry constants shared by every route.
type Router struct {
	NodeWidth  float64
	NodeHeight float64

	// MaxBulge caps the control-point offset of curved routes.
	MaxBulge float64

	StrokeWidth float64
	HitWidth    float64

	// LabelOffset shifts the label pill perpendicular to the path.
	LabelOffset    float64
	LabelHeight    float64
	LabelCharWidth float64
	LabelPadding   float64

	// OnSkip, if set, is told about every connection RouteAll refuses to
	// route.
	OnSkip func(e graph.Connection, err error)
}

// Default returns the router used when no config overrides it.
func Default() Router {
	return Router{
		NodeWidth:      200,
		NodeHeight:     80,
		MaxBulge:       200,
		StrokeWidth:    2,
		HitWidth:       20,
		LabelOffset:    14,
		LabelHeight:    22,
		LabelCharWidth: 7,
		LabelPadding:   10,
	}
}

// HitPath is the invisible wide-stroke copy of a route used for picking.
type HitPath struct {
	D     string  `json:"d"`
	Width float64 `json:"width"`
}

// Route is the computed geometry of one connection.
type Route struct {
	EdgeID string          `json:"edgeId"`
	Style  graph.EdgeStyle `json:"style"`

	// Points are the polyline vertices for straight and orthogonal routes,
	// and start, control 1, control 2, end for curved routes.
	Points []geom.Point `json:"points"`
	D      string       `json:"d"`
	Hit    HitPath      `json:"hit"`

	// Mid is the path midpoint; Label is the pill centre, offset from Mid
	// perpendicular to the path.
	Mid      geom.Point `json:"mid"`
	Label    geom.Point `json:"label"`
	LabelBox *geom.Rect `json:"labelBox,omitempty"`
	Text     string     `json:"text,omitempty"`
}

// OutPort returns the outgoing port of a node whose top-left is pos.
func (r Router) OutPort(pos geom.Point) geom.Point {
	return geom.Pt(pos.X+r.NodeWidth, pos.Y+r.NodeHeight/2)
}

// InPort returns the incoming port of a node whose top-left is pos.
func (r Router) InPort(pos geom.Point) geom.Point {
	return geom.Pt(pos.X, pos.Y+r.NodeHeight/2)
}

// NodeRect returns the body of a node whose top-left is pos.
func (r Router) NodeRect(pos geom.Point) geom.Rect {
	return geom.Rect{X: pos.X, Y: pos.Y, W: r.NodeWidth, H: r.NodeHeight}
}

// Compute routes a connection between two nodes given their top-left
// positions. Curvature only affects curved routes.
func (r Router) Compute(from, to geom.Point, style graph.EdgeStyle, curvature float64, controls []geom.Point) Route {
	return r.Between(r.OutPort(from), r.InPort(to), style, curvature, controls)
}

// Between routes from port s to port t.
func (r Router) Between(s, t geom.Point, style graph.EdgeStyle, curvature float64, controls []geom.Point) Route {
	var rt Route
	switch style {
	case graph.StyleStraight:
		rt = straight(s, t)
	case graph.StyleOrthogonal:
		rt = orthogonal(s, t)
	default:
		style = graph.StyleCurved
		rt = r.curved(s, t, curvature, controls)
	}
	rt.Style = style
	rt.Hit = HitPath{D: rt.D, Width: r.HitWidth}
	return rt
}

// Edge routes a connection of g. A connection whose endpoint is missing
// yields ErrDanglingEdge.
func (r Router) Edge(g *graph.Graph, e graph.Connection) (Route, error) {
	from, ok := g.Node(e.From)
	if !ok {
		return Route{}, fmt.Errorf("%w: %s (from %s)", ErrDanglingEdge, e.ID, e.From)
	}
	to, ok := g.Node(e.To)
	if !ok {
		return Route{}, fmt.Errorf("%w: %s (to %s)", ErrDanglingEdge, e.ID, e.To)
	}
	rt := r.Compute(from.Position, to.Position, e.Style, e.Curvature, e.ControlPoints)
	rt.EdgeID = e.ID
	r.placeLabel(&rt, e.Label)
	return rt, nil
}

// RouteAll routes every connection of g, skipping the ones that cannot be
// routed and reporting them through OnSkip.
func (r Router) RouteAll(g *graph.Graph) []Route {
	return r.RouteEdges(g, g.Edges())
}

// RouteEdges routes the given connections against g's nodes.
func (r Router) RouteEdges(g *graph.Graph, edges []graph.Connection) []Route {
	out := make([]Route, 0, len(edges))
	for _, e := range edges {
		rt, err := r.Edge(g, e)
		if err != nil {
			if r.OnSkip != nil {
				r.OnSkip(e, err)
			}
			continue
		}
		out = append(out, rt)
	}
	return out
}

// Preview routes the in-progress connection from a node's outgoing port to
// the cursor as a straight line.
func (r Router) Preview(from geom.Point, cursor geom.Point) Route {
	return r.Between(r.OutPort(from), cursor, graph.StyleStraight, 0, nil)
}

func straight(s, t geom.Point) Route {
	mid := geom.Lerp(s, t, 0.5)
	return Route{
		Points: []geom.Point{s, t},
		D:      "M " + pt(s) + " L " + pt(t),
		Mid:    mid,
		Label:  mid,
	}
}

// orthogonalEpsilon is the vertical gap below which an orthogonal route
// collapses to a single horizontal segment.
const orthogonalEpsilon = 0.5

func orthogonal(s, t geom.Point) Route {
	if math.Abs(t.Y-s.Y) < orthogonalEpsilon {
		return straight(s, t)
	}
	midX := (s.X + t.X) / 2
	pts := []geom.Point{s, geom.Pt(midX, s.Y), geom.Pt(midX, t.Y), t}

	var d strings.Builder
	d.WriteString("M " + pt(pts[0]))
	for _, p := range pts[1:] {
		d.WriteString(" L " + pt(p))
	}
	mid, _ := alongPolyline(pts, 0.5)
	return Route{Points: pts, D: d.String(), Mid: mid, Label: mid}
}

func (r Router) curved(s, t geom.Point, curvature float64, controls []geom.Point) Route {
	var c1, c2 geom.Point
	switch len(controls) {
	case 0:
		c1, c2 = r.controlPoints(s, t, curvature)
	case 1:
		c1, c2 = controls[0], controls[0]
	default:
		c1, c2 = controls[0], controls[1]
	}
	mid := geom.Cubic(s, c1, c2, t, 0.5)
	return Route{
		Points: []geom.Point{s, c1, c2, t},
		D:      "M " + pt(s) + " C " + pt(c1) + ", " + pt(c2) + ", " + pt(t),
		Mid:    mid,
		Label:  mid,
	}
}

// controlPoints offsets the control points along the axis with the larger
// travel, in the direction of travel, by min(distance*curvature, MaxBulge).
func (r Router) controlPoints(s, t geom.Point, curvature float64) (geom.Point, geom.Point) {
	if curvature <= 0 {
		curvature = graph.DefaultCurvature
	}
	dx, dy := t.X-s.X, t.Y-s.Y
	offset := math.Min(math.Hypot(dx, dy)*curvature, r.MaxBulge)

	if math.Abs(dx) >= math.Abs(dy) {
		dir := sign(dx)
		return geom.Pt(s.X+dir*offset, s.Y), geom.Pt(t.X-dir*offset, t.Y)
	}
	dir := sign(dy)
	return geom.Pt(s.X, s.Y+dir*offset), geom.Pt(t.X, t.Y-dir*offset)
}

// placeLabel moves the label anchor off the path along its normal and
// reserves a pill-shaped backdrop around it.
func (r Router) placeLabel(rt *Route, text string) {
	rt.Text = text
	if text == "" {
		rt.LabelBox = nil
		return
	}
	n := r.tangentAtMid(*rt).Normal()
	if n == (geom.Point{}) {
		n = geom.Pt(0, -1)
	}
	rt.Label = rt.Mid.Add(n.Scale(r.LabelOffset))

	w := float64(len([]rune(text)))*r.LabelCharWidth + 2*r.LabelPadding
	rt.LabelBox = &geom.Rect{
		X: rt.Label.X - w/2,
		Y: rt.Label.Y - r.LabelHeight/2,
		W: w,
		H: r.LabelHeight,
	}
}

func (r Router) tangentAtMid(rt Route) geom.Point {
	if rt.Style == graph.StyleCurved && len(rt.Points) == 4 {
		p := rt.Points
		return geom.CubicTangent(p[0], p[1], p[2], p[3], 0.5)
	}
	_, seg := alongPolyline(rt.Points, 0.5)
	if seg < 0 {
		return geom.Point{}
	}
	return rt.Points[seg+1].Sub(rt.Points[seg])
}

// alongPolyline returns the point at fraction f of the polyline's length
// and the index of the segment it lies on (-1 for a degenerate polyline).
func alongPolyline(pts []geom.Point, f float64) (geom.Point, int) {
	if len(pts) < 2 {
		if len(pts) == 1 {
			return pts[0], -1
		}
		return geom.Point{}, -1
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Dist(pts[i])
	}
	if total == 0 {
		return pts[0], -1
	}
	target := total * f
	for i := 1; i < len(pts); i++ {
		l := pts[i-1].Dist(pts[i])
		if l > 0 && target <= l {
			return geom.Lerp(pts[i-1], pts[i], target/l), i - 1
		}
		target -= l
	}
	return pts[len(pts)-1], len(pts) - 2
}

// curveSamples is the number of chords used to approximate a curved route
// for hit-testing.
const curveSamples = 32

// Distance returns the distance from p to the route's path.
func (rt Route) Distance(p geom.Point) float64 {
	pts := rt.Points
	if rt.Style == graph.StyleCurved && len(pts) == 4 {
		best := math.Inf(1)
		prev := pts[0]
		for i := 1; i <= curveSamples; i++ {
			cur := geom.Cubic(pts[0], pts[1], pts[2], pts[3], float64(i)/curveSamples)
			best = math.Min(best, geom.SegmentDist(p, prev, cur))
			prev = cur
		}
		return best
	}
	if len(pts) == 1 {
		return p.Dist(pts[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, geom.SegmentDist(p, pts[i-1], pts[i]))
	}
	return best
}

// Hits reports whether p falls within the hit path's stroke.
func (rt Route) Hits(p geom.Point) bool {
	return rt.Distance(p) <= rt.Hit.Width/2
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func pt(p geom.Point) string {
	return num(p.X) + " " + num(p.Y)
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
