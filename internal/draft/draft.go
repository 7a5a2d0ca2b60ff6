// Package draft keeps the CLI's working copy of a funnel on disk between
// commands: the graph, the viewport, and the saved funnel it came from.
package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/viewport"
)

// Draft is the working copy.
type Draft struct {
	Graph      graph.Snapshot    `json:"graph"`
	Viewport   viewport.Viewport `json:"viewport"`
	RecordID   string            `json:"recordId,omitempty"`
	RecordName string            `json:"recordName,omitempty"`
}

// Path returns the draft file location.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "funnel", "draft.json")
}

// Load reads the draft. A missing file is an empty draft.
func Load() (*Draft, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Draft{Viewport: viewport.New()}, nil
		}
		return nil, err
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("draft parse: %w", err)
	}
	if err := d.Graph.Validate(); err != nil {
		return nil, fmt.Errorf("draft invalid: %w", err)
	}
	d.Viewport = d.Viewport.Normalize()
	return &d, nil
}

// Save writes the draft. The file is replaced atomically so an interrupted
// write never leaves a half-written graph behind.
func Save(d *Draft) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".draft-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Clear removes the draft.
func Clear() error {
	err := os.Remove(Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Editor opens an editing session over the draft.
func (d *Draft) Editor(cfg editor.Config) (*editor.Editor, error) {
	g, err := graph.FromSnapshot(d.Graph)
	if err != nil {
		return nil, err
	}
	ed := editor.New(g, cfg)
	ed.SetViewport(d.Viewport)
	return ed, nil
}

// Capture copies the session's graph and viewport back into the draft.
func (d *Draft) Capture(ed *editor.Editor) {
	d.Graph = ed.Graph().Snapshot()
	d.Viewport = ed.Viewport()
	if rec := ed.Record(); rec != nil {
		d.RecordID, d.RecordName = rec.ID, rec.Name
	}
}
