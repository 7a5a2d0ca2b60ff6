package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is the serialized form of a graph: the unit exchanged with
// persistence and with import/export.
type Snapshot struct {
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// Snapshot captures the full graph. ConnectionIDs are recomputed from the
// edge list, so a snapshot never carries a stale cache.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{
		Nodes:       g.Nodes(),
		Connections: g.Edges(),
	}
}

// FromSnapshot builds a new graph from s, validating ids, endpoints,
// styles, and curvature. Stored ConnectionIDs are ignored and rebuilt.
func FromSnapshot(s Snapshot) (*Graph, error) {
	g := New()
	for _, n := range s.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("snapshot node %q has no id", n.Label)
		}
		if _, err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("snapshot node %s: %w", n.ID, err)
		}
	}
	for _, c := range s.Connections {
		if c.ID == "" {
			return nil, fmt.Errorf("snapshot connection %s -> %s has no id", c.From, c.To)
		}
		if err := g.insertEdge(c); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Validate checks s against the graph invariants without keeping the
// rebuilt graph.
func (s Snapshot) Validate() error {
	_, err := FromSnapshot(s)
	return err
}

// Format names a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown snapshot format: %s (use json or yaml)", s)
}

// MarshalSnapshot encodes s.
func MarshalSnapshot(s Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		return yaml.Marshal(s)
	}
	return nil, fmt.Errorf("unknown snapshot format: %s", f)
}

// ParseSnapshot decodes and validates data.
func ParseSnapshot(data []byte, f Format) (Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &s)
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		return Snapshot{}, fmt.Errorf("unknown snapshot format: %s", f)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
