package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const drawScript = `
name: ads to thanks
steps:
  - drop: {template: google_ads, x: 100, y: 150}
  - drop: {label: Thank you, x: 400, y: 150}
  - pointer: {kind: down, x: 300, y: 190}
  - pointer: {kind: move, x: 350, y: 200}
  - pointer: {kind: down, x: 450, y: 190}
`

func commands(out []Outcome) []string {
	var names []string
	for _, o := range out {
		names = append(names, o.Command)
	}
	return names
}

func newEditor(t *testing.T) *editor.Editor {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return editor.New(nil, editor.DefaultConfig())
}

func TestDrawConnection(t *testing.T) {
	ed := newEditor(t)
	s, err := Parse([]byte(drawScript))
	require.NoError(t, err)
	assert.Equal(t, "ads to thanks", s.Name)

	out := Run(context.Background(), ed, s)
	assert.Equal(t, []string{"add_node", "add_node", "start_connection", "track_cursor", "connect"}, commands(out))
	for _, o := range out {
		assert.False(t, o.Rejected(), "step %d", o.Step)
	}

	edges := ed.Graph().Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, graph.StyleCurved, edges[0].Style)
	assert.Equal(t, 0.5, edges[0].Curvature)

	nodes := ed.Graph().Nodes()
	assert.Equal(t, "Google Ads", nodes[0].Label)
	assert.Equal(t, "Thank you", nodes[1].Label)
	assert.Equal(t, []string{nodes[1].ID}, nodes[0].ConnectionIDs)
}

func TestSelfLoopIsReported(t *testing.T) {
	ed := newEditor(t)
	s, err := Parse([]byte(`
steps:
  - drop: {template: landing_page, x: 100, y: 150}
  - pointer: {kind: down, x: 300, y: 190}
  - pointer: {kind: down, x: 150, y: 190}
  - key: {key: Escape}
`))
	require.NoError(t, err)

	out := Run(context.Background(), ed, s)
	require.Len(t, out, 4)
	assert.True(t, out[2].Rejected())
	assert.ErrorIs(t, out[2].Err, graph.ErrSelfLoop)
	require.NotNil(t, out[2].Notice)
	assert.Equal(t, editor.LevelWarning, out[2].Notice.Level)

	assert.Equal(t, "cancel_connection", out[3].Command)
	assert.Nil(t, out[3].Notice)
	assert.Equal(t, "idle", string(ed.Gesture().State))
	_, edges := ed.Graph().Len()
	assert.Zero(t, edges)
}

func TestViewportAndZoom(t *testing.T) {
	ed := newEditor(t)
	s, err := Parse([]byte(`
viewport: {x: 50, y: 0, zoom: 1}
steps:
  - wheel: {x: 0, y: 0, deltaY: 120}
  - wheel: {x: 0, y: 0, deltaY: 120, mods: {ctrl: true}}
  - drop: {label: Shifted, x: 150, y: 100}
`))
	require.NoError(t, err)

	out := Run(context.Background(), ed, s)
	assert.Equal(t, []string{"", "zoom_by", "add_node"}, commands(out))
	assert.InDelta(t, 0.9, ed.Viewport().Zoom, 1e-9)

	n := ed.Graph().Nodes()[0]
	assert.InDelta(t, 100/0.9, n.Position.X, 1e-9)
	assert.InDelta(t, 100/0.9, n.Position.Y, 1e-9)
}

func TestSaveStep(t *testing.T) {
	ed := newEditor(t)
	s, err := Parse([]byte(`
steps:
  - drop: {template: email, x: 0, y: 0}
  - save: Nurture
`))
	require.NoError(t, err)

	out := Run(context.Background(), ed, s)
	assert.ErrorIs(t, out[1].Err, editor.ErrNoGateway)

	gw := persist.New(persist.NewMemoryStore(), "tester")
	gw.Log = func(string, string, string) {}
	ed.SetGateway(gw)
	out = Run(context.Background(), ed, &Script{Steps: s.Steps[1:]})
	require.NoError(t, out[0].Err)
	require.NotNil(t, ed.Record())
	assert.Equal(t, "Nurture", ed.Record().Name)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - {}\n"))
	assert.ErrorIs(t, err, ErrEmptyStep)

	_, err = Parse([]byte("steps:\n  - save: a\n    key: {key: Escape}\n"))
	assert.ErrorContains(t, err, "more than one action")

	_, err = Parse([]byte("steps:\n  - teleport: {x: 1}\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(drawScript), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
