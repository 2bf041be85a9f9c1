// Package store persists canonical exam records into a normalized SQLite
// schema and serves the read queries behind the lookup API.
//
// The store is rebuilt wholesale by every ingest run (drop file, recreate
// schema, reload, rematerialize toppers). After ingestion it is never
// mutated, so reads need no coordination.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a valid lookup for an entity that does not exist,
// distinct from a malformed request.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite handle. All methods are safe for concurrent readers;
// writing happens only through a Loader during ingestion.
type DB struct {
	sql *sql.DB
}

// Open opens an existing results database.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

// Rebuild removes any existing database file and creates a fresh one with the
// full schema. This must complete before any write proceeds; there is no
// incremental-append mode.
func Rebuild(ctx context.Context, path string) (*DB, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove %s: %w", path, err)
	}

	d, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := d.sql.ExecContext(ctx, schemaSQL); err != nil {
		d.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return d, nil
}

func (d *DB) Close() { _ = d.sql.Close() }
