package draft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	d, err := Load()
	require.NoError(t, err)
	assert.Empty(t, d.Graph.Nodes)
	assert.Equal(t, 1.0, d.Viewport.Zoom)
}

func TestSaveLoadThroughEditor(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	d, err := Load()
	require.NoError(t, err)
	ed, err := d.Editor(editor.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, ed.Apply(editor.AddNode{Node: graph.Node{Label: "A", Position: geom.Pt(100, 150)}}))
	a := ed.LastNode()
	require.NoError(t, ed.Apply(editor.AddNode{Node: graph.Node{Label: "B", Position: geom.Pt(400, 150)}}))
	require.NoError(t, ed.Apply(editor.Connect{From: a, To: ed.LastNode(), Label: "go"}))
	require.NoError(t, ed.Apply(editor.ZoomBy{Delta: 0.5}))

	d.Capture(ed)
	require.NoError(t, Save(d))

	back, err := Load()
	require.NoError(t, err)
	assert.Equal(t, d.Graph, back.Graph)
	assert.Equal(t, 1.5, back.Viewport.Zoom)

	ed2, err := back.Editor(editor.DefaultConfig())
	require.NoError(t, err)
	nodes, edges := ed2.Graph().Len()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)
}

func TestLoadRejectsBrokenDraft(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(Path()), 0o755))

	bad := `{"graph":{"nodes":[{"id":"a"}],"connections":[{"id":"e","from":"a","to":"gone"}]}}`
	require.NoError(t, os.WriteFile(Path(), []byte(bad), 0o644))
	_, err := Load()
	require.ErrorIs(t, err, graph.ErrNodeNotFound)

	require.NoError(t, os.WriteFile(Path(), []byte("{not json"), 0o644))
	_, err = Load()
	require.Error(t, err)
}

func TestClampsStoredZoom(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	d := &Draft{}
	d.Viewport.Zoom = 9
	require.NoError(t, Save(d))

	back, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2.0, back.Viewport.Zoom)
}

func TestClear(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Clear())
	require.NoError(t, Save(&Draft{}))
	require.NoError(t, Clear())
	_, err := os.Stat(Path())
	assert.True(t, os.IsNotExist(err))
}
