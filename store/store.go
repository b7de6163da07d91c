// Package store persists saved change lists in SQLite, keyed by
// experiment and variant. Lists are stored in their wire JSON form so
// a row round-trips byte-exactly through the change codec.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dbopen"
)

// Schema bootstraps the variant_changes table. Exported so tests can
// open in-memory databases with dbopen.OpenMemory.
const Schema = `
CREATE TABLE IF NOT EXISTS variant_changes (
	experiment TEXT NOT NULL,
	variant    TEXT NOT NULL,
	changes    TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (experiment, variant)
);
`

// ErrNotFound is returned by Load for an unknown (experiment, variant).
var ErrNotFound = errors.New("store: not found")

// Record is one saved variant.
type Record struct {
	Experiment string
	Variant    string
	Changes    []change.Change
	UpdatedAt  time.Time
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle. The caller owns the schema; tests pass
// dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema)).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save upserts the change list for one variant. The list is validated
// before anything is written.
func (s *Store) Save(ctx context.Context, experiment, variant string, list []change.Change) error {
	if experiment == "" || variant == "" {
		return errors.New("store: experiment and variant are required")
	}
	if err := change.ValidateList(list); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	raw, err := change.MarshalList(list)
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}

	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO variant_changes (experiment, variant, changes, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (experiment, variant)
			DO UPDATE SET changes = excluded.changes, updated_at = excluded.updated_at`,
			experiment, variant, string(raw), time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("store: upsert: %w", err)
		}
		return nil
	})
}

// Load returns the saved change list for one variant.
func (s *Store) Load(ctx context.Context, experiment, variant string) ([]change.Change, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT changes FROM variant_changes WHERE experiment = ? AND variant = ?`,
		experiment, variant).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	list, err := change.UnmarshalList([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	return list, nil
}

// List returns every saved variant for one experiment, newest first.
func (s *Store) List(ctx context.Context, experiment string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT experiment, variant, changes, updated_at
		FROM variant_changes WHERE experiment = ?
		ORDER BY updated_at DESC, variant`, experiment)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var raw, updated string
		if err := rows.Scan(&rec.Experiment, &rec.Variant, &raw, &updated); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		if rec.Changes, err = change.UnmarshalList([]byte(raw)); err != nil {
			return nil, fmt.Errorf("store: list %s/%s: %w", rec.Experiment, rec.Variant, err)
		}
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}

// Delete removes one saved variant. Deleting an absent row is a no-op.
func (s *Store) Delete(ctx context.Context, experiment, variant string) error {
	if _, err := dbopen.Exec(ctx, s.db, `
		DELETE FROM variant_changes WHERE experiment = ? AND variant = ?`,
		experiment, variant); err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}
