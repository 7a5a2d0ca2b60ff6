package graph

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/msalah0e/funnel/internal/geom"
)

// Category groups node templates by their role in the funnel.
type Category string

const (
	CategoryAcquisition   Category = "acquisition"
	CategorySystem        Category = "system"
	CategoryCommunication Category = "communication"
	CategoryConversion    Category = "conversion"
	CategoryCustom        Category = "custom"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAcquisition, CategorySystem, CategoryCommunication, CategoryConversion, CategoryCustom:
		return true
	}
	return false
}

// EdgeStyle selects the routing algorithm used for a connection.
type EdgeStyle string

const (
	StyleStraight   EdgeStyle = "straight"
	StyleCurved     EdgeStyle = "curved"
	StyleOrthogonal EdgeStyle = "orthogonal"
)

// Valid reports whether s is a known edge style.
func (s EdgeStyle) Valid() bool {
	return s == StyleStraight || s == StyleCurved || s == StyleOrthogonal
}

const (
	// DefaultStyle and DefaultCurvature apply to every new connection.
	DefaultStyle     = StyleCurved
	DefaultCurvature = 0.5

	// CustomType is the node type for nodes not built from a template.
	CustomType = "custom"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrEdgeNotFound     = errors.New("connection not found")
	ErrSelfLoop         = errors.New("a node cannot connect to itself")
	ErrDuplicateID      = errors.New("id already used in this graph")
	ErrDuplicateEdge    = errors.New("connection already exists")
	ErrInvalidStyle     = errors.New("invalid connection style")
	ErrInvalidCurvature = errors.New("curvature must be in (0, 1]")
	ErrInvalidCategory  = errors.New("invalid node category")
	ErrAmbiguousRef     = errors.New("reference matches more than one node")
)

// Node is a typed, positioned vertex of the funnel.
type Node struct {
	ID          string         `json:"id" yaml:"id"`
	Type        string         `json:"type" yaml:"type"`
	Category    Category       `json:"category" yaml:"category"`
	Label       string         `json:"label" yaml:"label"`
	Description string         `json:"description" yaml:"description"`
	Icon        string         `json:"icon" yaml:"icon"`
	Color       string         `json:"color,omitempty" yaml:"color,omitempty"`
	Position    geom.Point     `json:"position" yaml:"position"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	// ConnectionIDs lists the targets of this node's outgoing connections
	// in connection order. The graph computes it on every read; values set
	// by callers are ignored.
	ConnectionIDs []string `json:"connectionIds" yaml:"connectionIds"`
}

// Connection is a directed, styled edge between two nodes.
type Connection struct {
	ID            string       `json:"id" yaml:"id"`
	From          string       `json:"from" yaml:"from"`
	To            string       `json:"to" yaml:"to"`
	Label         string       `json:"label,omitempty" yaml:"label,omitempty"`
	Style         EdgeStyle    `json:"style" yaml:"style"`
	Curvature     float64      `json:"curvature" yaml:"curvature"`
	ControlPoints []geom.Point `json:"controlPoints,omitempty" yaml:"controlPoints,omitempty"`
}

// NodePatch replaces the non-nil fields of a node. Config, when non-nil,
// replaces the whole bag.
type NodePatch struct {
	Label       *string
	Description *string
	Icon        *string
	Color       *string
	Position    *geom.Point
	Config      map[string]any
}

// EdgePatch replaces the non-nil fields of a connection.
type EdgePatch struct {
	Label         *string
	Style         *EdgeStyle
	Curvature     *float64
	ControlPoints *[]geom.Point
}

// Graph owns the funnel's nodes and connections. It is not safe for
// concurrent use; the editor is its only mutator.
type Graph struct {
	nodes []*Node
	index map[string]*Node
	edges []*Connection
	used  map[string]struct{}
	newID func() string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]*Node),
		used:  make(map[string]struct{}),
		newID: uuid.NewString,
	}
}

// SetIDSource replaces the id generator. Tests use it to get stable ids.
func (g *Graph) SetIDSource(fn func() string) {
	g.newID = fn
}

func (g *Graph) nextID() string {
	for {
		id := g.newID()
		if _, taken := g.used[id]; !taken {
			return id
		}
	}
}

// AddNode inserts n and returns the stored copy. An empty id is filled
// with a fresh one; an id seen before in this graph is rejected.
func (g *Graph) AddNode(n Node) (Node, error) {
	if n.ID == "" {
		n.ID = g.nextID()
	} else if _, taken := g.used[n.ID]; taken {
		return Node{}, fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
	}
	if n.Category == "" {
		n.Category = CategoryCustom
	}
	if !n.Category.Valid() {
		return Node{}, fmt.Errorf("%w: %q", ErrInvalidCategory, n.Category)
	}
	if n.Type == "" {
		n.Type = CustomType
	}
	n.ConnectionIDs = nil
	n.Config = cloneConfig(n.Config)

	stored := n
	g.nodes = append(g.nodes, &stored)
	g.index[n.ID] = &stored
	g.used[n.ID] = struct{}{}
	return g.view(&stored), nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.view(n), true
}

// HasNode reports whether id names a live node.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, g.view(n))
	}
	return out
}

// Edge returns the connection with the given id.
func (g *Graph) Edge(id string) (Connection, bool) {
	for _, e := range g.edges {
		if e.ID == id {
			return cloneEdge(e), true
		}
	}
	return Connection{}, false
}

// Edges returns all connections in insertion order.
func (g *Graph) Edges() []Connection {
	out := make([]Connection, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, cloneEdge(e))
	}
	return out
}

// Len returns the node and connection counts.
func (g *Graph) Len() (nodes, edges int) {
	return len(g.nodes), len(g.edges)
}

// RemoveNode deletes a node together with every connection touching it
// and returns the removed connections.
func (g *Graph) RemoveNode(id string) ([]Connection, error) {
	if _, ok := g.index[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	var removed []Connection
	kept := make([]*Connection, 0, len(g.edges))
	for _, e := range g.edges {
		if e.From == id || e.To == id {
			removed = append(removed, cloneEdge(e))
			continue
		}
		kept = append(kept, e)
	}

	g.edges = kept
	delete(g.index, id)
	g.nodes = slices.DeleteFunc(g.nodes, func(n *Node) bool { return n.ID == id })
	return removed, nil
}

// AddEdge connects from to to with the default style. Self-loops, unknown
// endpoints, and duplicate (from, to) pairs are rejected without mutation.
func (g *Graph) AddEdge(from, to, label string) (Connection, error) {
	if from == to {
		return Connection{}, ErrSelfLoop
	}
	if !g.HasNode(from) {
		return Connection{}, fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if !g.HasNode(to) {
		return Connection{}, fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			return Connection{}, fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, from, to)
		}
	}

	e := &Connection{
		ID:        g.nextID(),
		From:      from,
		To:        to,
		Label:     label,
		Style:     DefaultStyle,
		Curvature: DefaultCurvature,
	}
	g.edges = append(g.edges, e)
	g.used[e.ID] = struct{}{}
	return cloneEdge(e), nil
}

// insertEdge stores a fully specified connection. Used when rebuilding a
// graph from a snapshot.
func (g *Graph) insertEdge(c Connection) error {
	if c.ID == "" {
		c.ID = g.nextID()
	} else if _, taken := g.used[c.ID]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
	}
	if c.From == c.To {
		return fmt.Errorf("%w: %s", ErrSelfLoop, c.ID)
	}
	if !g.HasNode(c.From) || !g.HasNode(c.To) {
		return fmt.Errorf("%w: connection %s references %s -> %s", ErrNodeNotFound, c.ID, c.From, c.To)
	}
	if c.Style == "" {
		c.Style = DefaultStyle
	}
	if c.Curvature == 0 {
		c.Curvature = DefaultCurvature
	}
	if err := validateEdge(c.Style, c.Curvature); err != nil {
		return fmt.Errorf("connection %s: %w", c.ID, err)
	}
	for _, e := range g.edges {
		if e.From == c.From && e.To == c.To {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, c.From, c.To)
		}
	}
	stored := cloneEdge(&c)
	g.edges = append(g.edges, &stored)
	g.used[c.ID] = struct{}{}
	return nil
}

// RemoveEdge deletes a single connection.
func (g *Graph) RemoveEdge(id string) (Connection, error) {
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = slices.Delete(g.edges, i, i+1)
			return cloneEdge(e), nil
		}
	}
	return Connection{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
}

// UpdateNode applies p to the node with the given id.
func (g *Graph) UpdateNode(id string, p NodePatch) (Node, error) {
	n, ok := g.index[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if p.Label != nil {
		n.Label = *p.Label
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Icon != nil {
		n.Icon = *p.Icon
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Position != nil {
		n.Position = *p.Position
	}
	if p.Config != nil {
		n.Config = cloneConfig(p.Config)
	}
	return g.view(n), nil
}

// UpdateEdge applies p to the connection with the given id. The patch is
// validated as a whole before any field changes.
func (g *Graph) UpdateEdge(id string, p EdgePatch) (Connection, error) {
	var e *Connection
	for _, c := range g.edges {
		if c.ID == id {
			e = c
			break
		}
	}
	if e == nil {
		return Connection{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	style, curvature := e.Style, e.Curvature
	if p.Style != nil {
		style = *p.Style
	}
	if p.Curvature != nil {
		curvature = *p.Curvature
	}
	if err := validateEdge(style, curvature); err != nil {
		return Connection{}, err
	}

	e.Style, e.Curvature = style, curvature
	if p.Label != nil {
		e.Label = *p.Label
	}
	if p.ControlPoints != nil {
		e.ControlPoints = slices.Clone(*p.ControlPoints)
	}
	return cloneEdge(e), nil
}

// Outgoing returns the connections leaving id.
func (g *Graph) Outgoing(id string) []Connection {
	var out []Connection
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, cloneEdge(e))
		}
	}
	return out
}

// Incoming returns the connections arriving at id.
func (g *Graph) Incoming(id string) []Connection {
	var in []Connection
	for _, e := range g.edges {
		if e.To == id {
			in = append(in, cloneEdge(e))
		}
	}
	return in
}

// view copies n and fills its derived ConnectionIDs from the edge list.
func (g *Graph) view(n *Node) Node {
	out := *n
	out.Config = cloneConfig(n.Config)
	out.ConnectionIDs = make([]string, 0)
	for _, e := range g.edges {
		if e.From == n.ID {
			out.ConnectionIDs = append(out.ConnectionIDs, e.To)
		}
	}
	return out
}

func validateEdge(style EdgeStyle, curvature float64) error {
	if !style.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}
	if math.IsNaN(curvature) || curvature <= 0 || curvature > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidCurvature, curvature)
	}
	return nil
}

func cloneEdge(e *Connection) Connection {
	out := *e
	out.ControlPoints = slices.Clone(e.ControlPoints)
	return out
}

func cloneConfig(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
