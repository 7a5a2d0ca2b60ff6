package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Stats holds summary counts.
type Stats struct {
	Nodes      int
	Edges      int
	Labeled    int
	ByCategory map[Category]int
}

// SearchResult holds a scored search hit.
type SearchResult struct {
	Node  Node `json:"node"`
	Score int  `json:"score"`
}

// ShowResult holds a node with its neighbours on both sides.
type ShowResult struct {
	Node     Node       `json:"node"`
	Outgoing []ShowEdge `json:"outgoing"`
	Incoming []ShowEdge `json:"incoming"`
}

// ShowEdge is one neighbour in a ShowResult.
type ShowEdge struct {
	Connection Connection `json:"connection"`
	Peer       Node       `json:"peer"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve finds a node by exact id, then unique id prefix, then unique
// case-insensitive label.
func (g *Graph) Resolve(ref string) (Node, error) {
	if n, ok := g.Node(ref); ok {
		return n, nil
	}
	key := normalize(ref)
	if key == "" {
		return Node{}, fmt.Errorf("%w: empty reference", ErrNodeNotFound)
	}

	var byPrefix, byLabel []*Node
	for _, n := range g.nodes {
		if strings.HasPrefix(strings.ToLower(n.ID), key) {
			byPrefix = append(byPrefix, n)
		}
		if normalize(n.Label) == key {
			byLabel = append(byLabel, n)
		}
	}
	for _, hits := range [][]*Node{byPrefix, byLabel} {
		switch len(hits) {
		case 0:
			continue
		case 1:
			return g.view(hits[0]), nil
		default:
			return Node{}, fmt.Errorf("%w: %s", ErrAmbiguousRef, ref)
		}
	}
	return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, ref)
}

// ResolveEdge finds a connection by exact id or unique id prefix.
func (g *Graph) ResolveEdge(ref string) (Connection, error) {
	if e, ok := g.Edge(ref); ok {
		return e, nil
	}
	key := normalize(ref)
	var hits []*Connection
	if key != "" {
		for _, e := range g.edges {
			if strings.HasPrefix(strings.ToLower(e.ID), key) {
				hits = append(hits, e)
			}
		}
	}
	switch len(hits) {
	case 0:
		return Connection{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, ref)
	case 1:
		return cloneEdge(hits[0]), nil
	}
	return Connection{}, fmt.Errorf("%w: %s", ErrAmbiguousRef, ref)
}

// Search finds nodes matching a query. Scored: label(100/50) >
// type or category(20/15) > description(10).
func (g *Graph) Search(query string) []SearchResult {
	q := normalize(query)
	var results []SearchResult

	for _, n := range g.nodes {
		score := 0
		label := strings.ToLower(n.Label)
		if label == q {
			score += 100
		} else if strings.Contains(label, q) {
			score += 50
		}

		typ := strings.ToLower(n.Type)
		cat := string(n.Category)
		if typ == q || cat == q {
			score += 20
		} else if strings.Contains(typ, q) || strings.Contains(cat, q) {
			score += 15
		}

		if strings.Contains(strings.ToLower(n.Description), q) {
			score += 10
		}

		if score > 0 {
			results = append(results, SearchResult{Node: g.view(n), Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Stats returns summary statistics.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:      len(g.nodes),
		Edges:      len(g.edges),
		ByCategory: make(map[Category]int),
	}
	for _, n := range g.nodes {
		s.ByCategory[n.Category]++
	}
	for _, e := range g.edges {
		if e.Label != "" {
			s.Labeled++
		}
	}
	return s
}

// Show builds the data for displaying a node with its connections.
func (g *Graph) Show(ref string) (*ShowResult, error) {
	n, err := g.Resolve(ref)
	if err != nil {
		return nil, err
	}
	result := &ShowResult{Node: n}
	for _, e := range g.Outgoing(n.ID) {
		peer, _ := g.Node(e.To)
		result.Outgoing = append(result.Outgoing, ShowEdge{Connection: e, Peer: peer})
	}
	for _, e := range g.Incoming(n.ID) {
		peer, _ := g.Node(e.From)
		result.Incoming = append(result.Incoming, ShowEdge{Connection: e, Peer: peer})
	}
	return result, nil
}

// ExportDOT returns the graph in Graphviz DOT format.
func (g *Graph) ExportDOT() string {
	var b strings.Builder
	b.WriteString("digraph funnel {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=\"rounded,filled\", fontcolor=white];\n\n")

	for _, n := range g.nodes {
		a := n.Appearance()
		label := a.Label
		if n.Category != "" {
			label += "\\n(" + string(n.Category) + ")"
		}
		b.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q];\n", n.ID, label, a.Color))
	}

	b.WriteString("\n")
	for _, e := range g.edges {
		attrs := fmt.Sprintf("label=%q", e.Label)
		switch e.Style {
		case StyleOrthogonal:
			attrs += ", style=solid, arrowhead=normal"
		case StyleStraight:
			attrs += ", arrowhead=vee"
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [%s];\n", e.From, e.To, attrs))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderShow produces a terminal tree view of a node and its connections.
func RenderShow(g *Graph, ref string, brandFn, subtleFn, infoFn func(string) string) (string, error) {
	result, err := g.Show(ref)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	for i, edge := range result.Incoming {
		prefix := "  ├── "
		if i == len(result.Incoming)-1 && len(result.Outgoing) == 0 {
			prefix = "  └── "
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", prefix, brandFn(edge.Peer.Label), subtleFn("──"), subtleFn(edgeCaption(edge.Connection))))
		b.WriteString("  │\n")
	}

	n := result.Node
	b.WriteString(fmt.Sprintf("  ● %s %s\n", brandFn(n.Label), subtleFn("["+n.ID+"]")))
	b.WriteString(fmt.Sprintf("  │  %s\n", subtleFn(string(n.Category)+" / "+n.Type)))
	if n.Description != "" {
		b.WriteString(fmt.Sprintf("  │  %s\n", infoFn("\""+n.Description+"\"")))
	}
	b.WriteString(fmt.Sprintf("  │  %s\n", subtleFn(fmt.Sprintf("at (%.0f, %.0f)", n.Position.X, n.Position.Y))))

	if len(result.Outgoing) > 0 {
		b.WriteString("  │\n")
	}
	for i, edge := range result.Outgoing {
		prefix := "  ├── "
		if i == len(result.Outgoing)-1 {
			prefix = "  └── "
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", prefix, subtleFn(edgeCaption(edge.Connection)), subtleFn("──▶"), brandFn(edge.Peer.Label)))
		if edge.Peer.Description != "" {
			b.WriteString(fmt.Sprintf("              %s\n", infoFn("\""+edge.Peer.Description+"\"")))
		}
	}

	return b.String(), nil
}

func edgeCaption(e Connection) string {
	if e.Label != "" {
		return e.Label
	}
	return string(e.Style)
}
