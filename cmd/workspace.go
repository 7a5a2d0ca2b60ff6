package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/msalah0e/funnel/internal/config"
	"github.com/msalah0e/funnel/internal/draft"
	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/msalah0e/funnel/internal/store"
	"github.com/msalah0e/funnel/internal/ui"
)

// workspace is the draft opened for one command: config, the working copy
// on disk, and an editor over it.
type workspace struct {
	cfg   *config.Config
	draft *draft.Draft
	ed    *editor.Editor
}

func openWorkspace() *workspace {
	cfg := config.Load()
	d, err := draft.Load()
	if err != nil {
		ui.Bad.Printf("  Failed to load draft: %v\n", err)
		os.Exit(1)
	}
	ed, err := d.Editor(cfg.EditorSettings())
	if err != nil {
		ui.Bad.Printf("  Failed to open draft: %v\n", err)
		os.Exit(1)
	}
	return &workspace{cfg: cfg, draft: d, ed: ed}
}

// apply runs one editor command and exits if it is rejected.
func (w *workspace) apply(c editor.Command) {
	if err := w.ed.Apply(c); err != nil {
		ui.Bad.Printf("  %v\n", err)
		os.Exit(1)
	}
}

// commit writes the editor state back to the draft file.
func (w *workspace) commit() {
	w.draft.Capture(w.ed)
	if err := draft.Save(w.draft); err != nil {
		ui.Bad.Printf("  Failed to save draft: %v\n", err)
		os.Exit(1)
	}
}

func (w *workspace) node(ref string) graph.Node {
	n, err := w.ed.Graph().Resolve(ref)
	if err != nil {
		ui.Bad.Printf("  %v\n", err)
		os.Exit(1)
	}
	return n
}

func (w *workspace) edge(ref string) graph.Connection {
	e, err := w.ed.Graph().ResolveEdge(ref)
	if err != nil {
		ui.Bad.Printf("  %v\n", err)
		os.Exit(1)
	}
	return e
}

// label returns a node's display label, or the id when it is gone.
func (w *workspace) label(id string) string {
	if n, ok := w.ed.Graph().Node(id); ok {
		return n.Appearance().Label
	}
	return shortID(id)
}

// attachStore connects the workspace editor to the saved-funnel database.
// The returned func closes it.
func (w *workspace) attachStore() (*persist.Gateway, func()) {
	gw, closeFn := openGateway(w.cfg)
	w.ed.SetGateway(gw)
	return gw, closeFn
}

func openGateway(cfg *config.Config) (*persist.Gateway, func()) {
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		ui.Bad.Printf("  Failed to open store: %v\n", err)
		os.Exit(1)
	}
	return persist.New(st, cfg.Owner), func() { st.Close() }
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parsePoint reads "x,y".
func parsePoint(s string) (geom.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geom.Point{}, fmt.Errorf("invalid point %q (use x,y)", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return geom.Pt(x, y), nil
}

func formatPoint(p geom.Point) string {
	return strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
}
