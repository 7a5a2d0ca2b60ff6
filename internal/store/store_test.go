package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/parallel"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "funnels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(t *testing.T) graph.Snapshot {
	t.Helper()
	g := graph.New()
	a, err := g.AddNode(graph.Node{ID: "a", Label: "Ads", Category: graph.CategoryAcquisition, Position: geom.Pt(100, 150)})
	require.NoError(t, err)
	b, err := g.AddNode(graph.Node{ID: "b", Label: "CRM", Category: graph.CategorySystem, Position: geom.Pt(400, 150)})
	require.NoError(t, err)
	_, err = g.AddEdge(a.ID, b.ID, "lead")
	require.NoError(t, err)
	return g.Snapshot()
}

func TestOpenReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnels.db")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Create(context.Background(), persist.Record{
		ID: "r1", OwnerID: "o", Name: "x", Graph: sampleSnapshot(t), UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	snap := sampleSnapshot(t)
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, persist.Record{ID: "r1", OwnerID: "alice", Name: "Old", Graph: snap, UpdatedAt: t0}))
	require.NoError(t, s.Create(ctx, persist.Record{ID: "r2", OwnerID: "alice", Name: "New", Graph: snap, UpdatedAt: t0.Add(time.Hour)}))
	require.NoError(t, s.Create(ctx, persist.Record{ID: "r3", OwnerID: "bob", Name: "Bob's", Graph: snap, UpdatedAt: t0}))

	recs, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "r2", recs[0].ID)
	assert.Equal(t, "r1", recs[1].ID)
	assert.True(t, t0.Equal(recs[1].UpdatedAt))
	assert.Equal(t, snap, recs[1].Graph)

	none, err := s.List(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateNeverOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := persist.Record{ID: "r1", OwnerID: "o", Name: "x", Graph: sampleSnapshot(t), UpdatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, rec))
	assert.Error(t, s.Create(ctx, rec))
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, persist.Record{ID: "r1", OwnerID: "o", Name: "x", Graph: sampleSnapshot(t), UpdatedAt: time.Now()}))

	require.NoError(t, s.Delete(ctx, "r1"))
	require.ErrorIs(t, s.Delete(ctx, "r1"), persist.ErrNotFound)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGatewayOverSQLite(t *testing.T) {
	s := openTestStore(t)
	gw := persist.New(s, "alice")
	gw.Log = nil
	ctx := context.Background()
	snap := sampleSnapshot(t)

	rec, err := gw.Save(ctx, "Funnel X", snap)
	require.NoError(t, err)

	g, got, err := gw.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Funnel X", got.Name)
	assert.Equal(t, snap, g.Snapshot())
}

func TestParallelDeletes(t *testing.T) {
	s := openTestStore(t)
	gw := persist.New(s, "alice")
	gw.Log = nil
	ctx := context.Background()
	snap := sampleSnapshot(t)

	var tasks []parallel.Task
	for i := range 20 {
		name := fmt.Sprintf("funnel r%d", i)
		_, err := gw.Save(ctx, name, snap)
		require.NoError(t, err)
		tasks = append(tasks, parallel.Task{
			Name: name,
			Fn: func(ctx context.Context) (string, error) {
				rec, err := gw.Find(ctx, name)
				if err != nil {
					return "", err
				}
				return rec.Name, gw.Delete(ctx, rec.ID)
			},
		})
	}

	results := parallel.RunTo(ctx, nil, tasks, 8)
	assert.Empty(t, parallel.Failed(results))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParallelSavesAndLists(t *testing.T) {
	s := openTestStore(t)
	gw := persist.New(s, "alice")
	gw.Log = nil
	snap := sampleSnapshot(t)

	var tasks []parallel.Task
	for i := range 30 {
		tasks = append(tasks, parallel.Task{
			Name: fmt.Sprintf("task %d", i),
			Fn: func(ctx context.Context) (string, error) {
				if i%3 == 0 {
					_, err := gw.List(ctx)
					return "", err
				}
				rec, err := gw.Save(ctx, fmt.Sprintf("funnel %d", i), snap)
				return rec.ID, err
			},
		})
	}

	results := parallel.RunTo(context.Background(), nil, tasks, parallel.DefaultConcurrency)
	assert.Empty(t, parallel.Failed(results))

	recs, err := gw.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}
