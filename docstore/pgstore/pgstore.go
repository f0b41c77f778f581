// Package pgstore implements a document store on PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver as "pgx"

	"github.com/ereiarrus/complementsbot/docstore"
)

// Store is a document store backed by a PostgreSQL table.
type Store struct {
	db *sql.DB
}

var _ docstore.Store = (*Store)(nil)

// updateLock is the advisory lock key taken by read-write transactions.
// It serializes them across all processes sharing the database.
const updateLock = 0x636f6d70

// Connect opens a connection pool to the database named by dsn.
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("couldn't open postgres: %w", err)
	}
	return db, nil
}

// Open initializes the document table in db if needed and returns a store
// using it. The store takes ownership of db.
func Open(ctx context.Context, db *sql.DB) (*Store, error) {
	const schema = `CREATE TABLE IF NOT EXISTS docs (path TEXT COLLATE "C" PRIMARY KEY, value BYTEA NOT NULL)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("couldn't create document table: %w", err)
	}
	return &Store{db: db}, nil
}

// querier is the common subset of *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	return get(ctx, s.db, path)
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	return set(ctx, s.db, path, value)
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return del(ctx, s.db, path)
}

func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	return children(ctx, s.db, path)
}

func (s *Store) Update(ctx context.Context, fn func(tx docstore.Tx) error) error {
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer t.Rollback()
	if _, err := t.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, updateLock); err != nil {
		return fmt.Errorf("couldn't lock for transaction: %w", err)
	}
	if err := fn(tx{ctx: ctx, q: t}); err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("couldn't commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	ctx context.Context
	q   querier
}

func (t tx) Get(path string) ([]byte, error)        { return get(t.ctx, t.q, path) }
func (t tx) Set(path string, value []byte) error    { return set(t.ctx, t.q, path, value) }
func (t tx) Delete(path string) error               { return del(t.ctx, t.q, path) }
func (t tx) Children(path string) ([]string, error) { return children(t.ctx, t.q, path) }

func get(ctx context.Context, q querier, path string) ([]byte, error) {
	var r []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM docs WHERE path = $1`, path).Scan(&r)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, docstore.ErrNotFound
	default:
		return nil, fmt.Errorf("couldn't read %s: %w", path, err)
	}
}

func set(ctx context.Context, q querier, path string, value []byte) error {
	const upsert = `INSERT INTO docs (path, value) VALUES ($1, $2) ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value`
	if _, err := q.ExecContext(ctx, upsert, path, value); err != nil {
		return fmt.Errorf("couldn't write %s: %w", path, err)
	}
	return nil
}

func del(ctx context.Context, q querier, path string) error {
	lo, hi := docstore.Range(path)
	var err error
	if hi == "" {
		_, err = q.ExecContext(ctx, `DELETE FROM docs`)
	} else {
		_, err = q.ExecContext(ctx, `DELETE FROM docs WHERE path = $1 OR (path >= $2 AND path < $3)`, path, lo, hi)
	}
	if err != nil {
		return fmt.Errorf("couldn't delete %s: %w", path, err)
	}
	return nil
}

func children(ctx context.Context, q querier, path string) ([]string, error) {
	lo, hi := docstore.Range(path)
	var (
		rows *sql.Rows
		err  error
	)
	if hi == "" {
		rows, err = q.QueryContext(ctx, `SELECT path FROM docs ORDER BY path`)
	} else {
		rows, err = q.QueryContext(ctx, `SELECT path FROM docs WHERE path >= $1 AND path < $2 ORDER BY path`, lo, hi)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't list %s: %w", path, err)
	}
	defer rows.Close()
	var r []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("couldn't scan child of %s: %w", path, err)
		}
		r = docstore.AppendSegment(r, path, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't list %s: %w", path, err)
	}
	return r, nil
}
