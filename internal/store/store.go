// Package store keeps saved funnels in a SQLite database. It implements
// persist.Store: an owner-scoped collection of named graph snapshots.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/msalah0e/funnel/internal/persist"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS funnels (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    graph TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_funnels_owner ON funnels(owner_id, updated_at DESC);
`

// Store is a SQLite-backed collection of saved funnels.
type Store struct {
	db     *sql.DB
	dbPath string
}

var _ persist.Store = (*Store)(nil)

// DefaultPath returns the database location under the config dir.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "funnel", "funnels.db")
}

// Open opens or creates the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	// Batch commands hit the store from several workers; one connection
	// serializes them instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// List returns every record owned by ownerID, newest first.
func (s *Store) List(ctx context.Context, ownerID string) ([]persist.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, graph, updated_at FROM funnels
		 WHERE owner_id = ? ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query funnels: %w", err)
	}
	defer rows.Close()

	var out []persist.Record
	for rows.Next() {
		var (
			rec       persist.Record
			graphJSON string
			updated   string
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &graphJSON, &updated); err != nil {
			return nil, fmt.Errorf("scan funnel: %w", err)
		}
		if err := json.Unmarshal([]byte(graphJSON), &rec.Graph); err != nil {
			return nil, fmt.Errorf("decode funnel %s: %w", rec.ID, err)
		}
		rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at of %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create inserts rec. Ids are never overwritten.
func (s *Store) Create(ctx context.Context, rec persist.Record) error {
	data, err := json.Marshal(rec.Graph)
	if err != nil {
		return fmt.Errorf("encode funnel: %w", err)
	}
	ts := rec.UpdatedAt.UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO funnels (id, owner_id, name, graph, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Name, string(data), ts, ts)
	if err != nil {
		return fmt.Errorf("insert funnel %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM funnels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete funnel %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", persist.ErrNotFound, id)
	}
	return nil
}

// Count returns the number of records across all owners.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM funnels").Scan(&n); err != nil {
		return 0, fmt.Errorf("count funnels: %w", err)
	}
	return n, nil
}
