package route

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
)

// SVGOptions controls RenderSVG.
type SVGOptions struct {
	Title   string
	Padding float64

	// Selected and Editing highlight a node and a connection.
	Selected string
	Editing  string
}

// RenderSVG draws the funnel: node cards, visible connection paths with
// arrowheads, invisible hit paths, and label pills. Connections whose
// endpoints are missing are skipped through r.OnSkip.
func RenderSVG(g *graph.Graph, r Router, opts SVGOptions) string {
	if opts.Padding == 0 {
		opts.Padding = 40
	}
	nodes := g.Nodes()
	routes := r.RouteAll(g)
	box := bounds(r, nodes, routes, opts.Padding)

	var svg bytes.Buffer
	fmt.Fprintf(&svg, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"%s %s %s %s\" width=\"%s\" height=\"%s\">\n",
		num(box.X), num(box.Y), num(box.W), num(box.H), num(box.W), num(box.H))
	if opts.Title != "" {
		fmt.Fprintf(&svg, "  <title>%s</title>\n", html.EscapeString(opts.Title))
	}
	svg.WriteString("  <style>\n")
	svg.WriteString("    .node-card { stroke-width: 1.5px; rx: 10; }\n")
	svg.WriteString("    .node-card.selected { stroke: #111; stroke-width: 3px; }\n")
	svg.WriteString("    .node-label { font-family: -apple-system, Arial, sans-serif; font-size: 14px; font-weight: 600; fill: #fff; text-anchor: middle; }\n")
	svg.WriteString("    .node-meta { font-family: -apple-system, Arial, sans-serif; font-size: 11px; fill: rgba(255,255,255,0.8); text-anchor: middle; }\n")
	svg.WriteString("    .edge { fill: none; stroke: #64748b; }\n")
	svg.WriteString("    .edge.editing { stroke: #2DB682; }\n")
	svg.WriteString("    .hit { fill: none; stroke: transparent; pointer-events: stroke; }\n")
	svg.WriteString("    .port { fill: #fff; stroke: #64748b; }\n")
	svg.WriteString("    .label-pill { fill: #fff; stroke: #cbd5e1; }\n")
	svg.WriteString("    .label-text { font-family: -apple-system, Arial, sans-serif; font-size: 11px; fill: #334155; text-anchor: middle; dominant-baseline: central; }\n")
	svg.WriteString("  </style>\n")
	svg.WriteString("  <defs>\n")
	svg.WriteString("    <marker id=\"arrowhead\" markerWidth=\"10\" markerHeight=\"7\" refX=\"10\" refY=\"3.5\" orient=\"auto\">\n")
	svg.WriteString("      <polygon points=\"0 0, 10 3.5, 0 7\" fill=\"#64748b\" />\n")
	svg.WriteString("    </marker>\n")
	svg.WriteString("  </defs>\n")

	svg.WriteString("  <g class=\"edges\">\n")
	for _, rt := range routes {
		class := "edge"
		if rt.EdgeID == opts.Editing {
			class += " editing"
		}
		fmt.Fprintf(&svg, "    <path class=\"%s\" d=\"%s\" stroke-width=\"%s\" marker-end=\"url(#arrowhead)\" />\n",
			class, rt.D, num(r.StrokeWidth))
		fmt.Fprintf(&svg, "    <path class=\"hit\" data-edge-id=\"%s\" d=\"%s\" stroke-width=\"%s\" />\n",
			html.EscapeString(rt.EdgeID), rt.Hit.D, num(rt.Hit.Width))
	}
	svg.WriteString("  </g>\n")

	svg.WriteString("  <g class=\"nodes\">\n")
	for _, n := range nodes {
		a := n.Appearance()
		body := r.NodeRect(n.Position)
		class := "node-card"
		if n.ID == opts.Selected {
			class += " selected"
		}
		fmt.Fprintf(&svg, "    <g data-node-id=\"%s\">\n", html.EscapeString(n.ID))
		fmt.Fprintf(&svg, "      <rect class=\"%s\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rx=\"10\" fill=\"%s\" stroke=\"%s\" />\n",
			class, num(body.X), num(body.Y), num(body.W), num(body.H), html.EscapeString(a.Color), html.EscapeString(a.Color))
		c := body.Center()
		fmt.Fprintf(&svg, "      <text class=\"node-label\" x=\"%s\" y=\"%s\">%s</text>\n",
			num(c.X), num(c.Y-4), html.EscapeString(a.Label))
		fmt.Fprintf(&svg, "      <text class=\"node-meta\" x=\"%s\" y=\"%s\">%s · %s</text>\n",
			num(c.X), num(c.Y+14), html.EscapeString(a.Icon), html.EscapeString(string(n.Category)))
		for _, p := range []geom.Point{r.InPort(n.Position), r.OutPort(n.Position)} {
			fmt.Fprintf(&svg, "      <circle class=\"port\" cx=\"%s\" cy=\"%s\" r=\"5\" />\n", num(p.X), num(p.Y))
		}
		svg.WriteString("    </g>\n")
	}
	svg.WriteString("  </g>\n")

	svg.WriteString("  <g class=\"labels\">\n")
	for _, rt := range routes {
		if rt.LabelBox == nil {
			continue
		}
		b := rt.LabelBox
		fmt.Fprintf(&svg, "    <rect class=\"label-pill\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rx=\"%s\" />\n",
			num(b.X), num(b.Y), num(b.W), num(b.H), num(b.H/2))
		fmt.Fprintf(&svg, "    <text class=\"label-text\" x=\"%s\" y=\"%s\">%s</text>\n",
			num(rt.Label.X), num(rt.Label.Y), html.EscapeString(rt.Text))
	}
	svg.WriteString("  </g>\n")

	svg.WriteString("</svg>\n")
	return svg.String()
}

func bounds(r Router, nodes []graph.Node, routes []Route, pad float64) geom.Rect {
	if len(nodes) == 0 {
		return geom.Rect{X: 0, Y: 0, W: 2 * pad, H: 2 * pad}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p geom.Point) {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	for _, n := range nodes {
		b := r.NodeRect(n.Position)
		grow(geom.Pt(b.X, b.Y))
		grow(geom.Pt(b.X+b.W, b.Y+b.H))
	}
	for _, rt := range routes {
		for _, p := range rt.Points {
			grow(p)
		}
		if rt.LabelBox != nil {
			grow(geom.Pt(rt.LabelBox.X, rt.LabelBox.Y))
			grow(geom.Pt(rt.LabelBox.X+rt.LabelBox.W, rt.LabelBox.Y+rt.LabelBox.H))
		}
	}
	return geom.Rect{X: minX - pad, Y: minY - pad, W: maxX - minX + 2*pad, H: maxY - minY + 2*pad}
}
