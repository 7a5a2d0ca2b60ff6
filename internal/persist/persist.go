// Package persist saves and loads whole funnel graphs as named,
// owner-scoped records in an external Store.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msalah0e/funnel/internal/activity"
	"github.com/msalah0e/funnel/internal/graph"
)

var (
	ErrEmptyName = errors.New("a saved funnel needs a name")
	ErrNotFound  = errors.New("saved funnel not found")
)

// Record is one saved funnel.
type Record struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId"`
	Name      string         `json:"name"`
	Graph     graph.Snapshot `json:"graph"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Store is the external collection of saved funnels. Implementations
// acknowledge Create and Delete by returning nil.
type Store interface {
	List(ctx context.Context, ownerID string) ([]Record, error)
	Create(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
}

// Gateway serializes graphs to records in a Store on behalf of one owner.
// It never touches a live graph: Save takes a snapshot and Load returns a
// fresh graph, so a failed call cannot damage the caller's state.
type Gateway struct {
	store Store
	owner string

	now   func() time.Time
	newID func() string

	// Log receives one entry per outcome. Defaults to the activity log.
	Log func(action, target, details string)
}

// New creates a gateway for owner.
func New(store Store, owner string) *Gateway {
	return &Gateway{
		store: store,
		owner: owner,
		now:   time.Now,
		newID: uuid.NewString,
		Log: func(action, target, details string) {
			_ = activity.Log(action, target, details)
		},
	}
}

// Owner returns the owner the gateway acts for.
func (gw *Gateway) Owner() string { return gw.owner }

func (gw *Gateway) log(action, target, details string) {
	if gw.Log != nil {
		gw.Log(action, target, details)
	}
}

func (gw *Gateway) fail(action, target string, err error) error {
	gw.log(activity.FailedAction(action), target, err.Error())
	return err
}

// Save stores snap under name as a new record. The snapshot is validated
// and its connection ids recomputed before anything is sent.
func (gw *Gateway) Save(ctx context.Context, name string, snap graph.Snapshot) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrEmptyName
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return Record{}, gw.fail("save", name, fmt.Errorf("invalid graph: %w", err))
	}
	rec := Record{
		ID:        gw.newID(),
		OwnerID:   gw.owner,
		Name:      name,
		Graph:     g.Snapshot(),
		UpdatedAt: gw.now().UTC(),
	}
	if err := gw.store.Create(ctx, rec); err != nil {
		return Record{}, gw.fail("save", name, fmt.Errorf("save %q: %w", name, err))
	}
	gw.log("save", rec.ID, name)
	return rec, nil
}

// List returns the owner's records, most recently updated first.
func (gw *Gateway) List(ctx context.Context) ([]Record, error) {
	recs, err := gw.store.List(ctx, gw.owner)
	if err != nil {
		return nil, fmt.Errorf("list saved funnels: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	return recs, nil
}

// Find resolves ref to one of the owner's records by exact id, unique id
// prefix, or exact name (newest wins when names repeat).
func (gw *Gateway) Find(ctx context.Context, ref string) (Record, error) {
	recs, err := gw.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range recs {
		if r.ID == ref {
			return r, nil
		}
	}
	var prefixed []Record
	for _, r := range recs {
		if ref != "" && strings.HasPrefix(r.ID, ref) {
			prefixed = append(prefixed, r)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], nil
	}
	for _, r := range recs {
		if strings.EqualFold(r.Name, ref) {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Load fetches a record and rebuilds its graph. The returned graph is
// complete or nil; it is never partially populated.
func (gw *Gateway) Load(ctx context.Context, ref string) (*graph.Graph, Record, error) {
	rec, err := gw.Find(ctx, ref)
	if err != nil {
		return nil, Record{}, gw.fail("load", ref, err)
	}
	g, err := graph.FromSnapshot(rec.Graph)
	if err != nil {
		return nil, Record{}, gw.fail("load", rec.ID, fmt.Errorf("saved funnel %q is corrupt: %w", rec.Name, err))
	}
	gw.log("load", rec.ID, rec.Name)
	return g, rec, nil
}

// Delete removes a record by id.
func (gw *Gateway) Delete(ctx context.Context, id string) error {
	if err := gw.store.Delete(ctx, id); err != nil {
		return gw.fail("delete", id, fmt.Errorf("delete %s: %w", id, err))
	}
	gw.log("delete", id, "")
	return nil
}

// SaveResult is the outcome of an asynchronous save.
type SaveResult struct {
	Record Record
	Err    error
}

// LoadResult is the outcome of an asynchronous load. Graph is nil when Err
// is set.
type LoadResult struct {
	Record Record
	Graph  *graph.Graph
	Err    error
}

// SaveAsync runs Save in the background. The snapshot must already be
// detached from the live graph; the channel receives exactly one result.
func (gw *Gateway) SaveAsync(ctx context.Context, name string, snap graph.Snapshot) <-chan SaveResult {
	ch := make(chan SaveResult, 1)
	go func() {
		rec, err := gw.Save(ctx, name, snap)
		ch <- SaveResult{Record: rec, Err: err}
	}()
	return ch
}

// LoadAsync runs Load in the background; the channel receives exactly one
// result.
func (gw *Gateway) LoadAsync(ctx context.Context, ref string) <-chan LoadResult {
	ch := make(chan LoadResult, 1)
	go func() {
		g, rec, err := gw.Load(ctx, ref)
		ch <- LoadResult{Record: rec, Graph: g, Err: err}
	}()
	return ch
}
