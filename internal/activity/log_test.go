package activity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAndRead(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "funnel", "activity.jsonl"), Path())

	entries, err := Read(0)
	require.NoError(t, err)
	assert.Empty(t, entries, "missing log reads as empty")

	require.NoError(t, Log("save", "rec-1", "Funnel X"))
	require.NoError(t, Log("route.skip", "edge-9", "endpoint gone"))
	require.NoError(t, Log(FailedAction("load"), "rec-2", "store offline"))

	entries, err = Read(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	last, err := Read(1)
	require.NoError(t, err)
	require.Len(t, last, 1)

	var failed Entry
	for _, e := range entries {
		if e.Action == "load.failed" {
			failed = e
		}
	}
	assert.Equal(t, "rec-2", failed.Target)
	assert.Equal(t, "store offline", failed.Details)
}

func TestFailedAction(t *testing.T) {
	assert.Equal(t, "delete.failed", FailedAction("delete"))
	assert.True(t, IsFailure(FailedAction("save")))
	assert.False(t, IsFailure("save"))
	assert.False(t, IsFailure("route.skip"))
}

func TestSearch(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, Log("save", "rec-1", "Funnel X"))
	require.NoError(t, Log("route.skip", "edge-9", ""))
	require.NoError(t, Log("delete", "rec-1", ""))

	hits, err := Search("FUNNEL", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "save", hits[0].Action)

	hits, err = Search("rec-1", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestClear(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, Clear(), "clearing a missing log is fine")
	require.NoError(t, Log("save", "", ""))
	require.NoError(t, Clear())

	entries, err := Read(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
