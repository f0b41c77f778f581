// Package sqlstore implements a document store on SQLite.
package sqlstore

import (
	"context"
	"fmt"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ereiarrus/complementsbot/docstore"
)

// Store is a document store backed by an SQLite database.
type Store struct {
	db *sqlitex.Pool
	// mu serializes read-write transactions so that they never contend for
	// the write lock partway through.
	mu sync.Mutex
}

var _ docstore.Store = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS docs (path TEXT PRIMARY KEY, value BLOB NOT NULL) STRICT, WITHOUT ROWID`

// Open initializes the document table in db if needed and returns a store
// using it.
func Open(ctx context.Context, db *sqlitex.Pool) (*Store, error) {
	conn, err := db.Take(ctx)
	defer db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to init document store: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		return nil, fmt.Errorf("couldn't create document table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to read %s: %w", path, err)
	}
	return get(conn, path)
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to write %s: %w", path, err)
	}
	return set(conn, path, value)
}

func (s *Store) Delete(ctx context.Context, path string) error {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to delete %s: %w", path, err)
	}
	return del(conn, path)
}

func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to list %s: %w", path, err)
	}
	return children(conn, path)
}

func (s *Store) Update(ctx context.Context, fn func(tx docstore.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection for transaction: %w", err)
	}
	defer sqlitex.Transaction(conn)(&err)
	return fn(tx{conn})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	conn *sqlite.Conn
}

func (t tx) Get(path string) ([]byte, error)        { return get(t.conn, path) }
func (t tx) Set(path string, value []byte) error    { return set(t.conn, path, value) }
func (t tx) Delete(path string) error               { return del(t.conn, path) }
func (t tx) Children(path string) ([]string, error) { return children(t.conn, path) }

func get(conn *sqlite.Conn, path string) ([]byte, error) {
	var r []byte
	found := false
	opts := sqlitex.ExecOptions{
		Args: []any{path},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			r = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, r)
			return nil
		},
	}
	if err := sqlitex.Execute(conn, `SELECT value FROM docs WHERE path = ?`, &opts); err != nil {
		return nil, fmt.Errorf("couldn't read %s: %w", path, err)
	}
	if !found {
		return nil, docstore.ErrNotFound
	}
	return r, nil
}

func set(conn *sqlite.Conn, path string, value []byte) error {
	const upsert = `INSERT INTO docs (path, value) VALUES (?, ?) ON CONFLICT (path) DO UPDATE SET value = excluded.value`
	opts := sqlitex.ExecOptions{Args: []any{path, value}}
	if err := sqlitex.Execute(conn, upsert, &opts); err != nil {
		return fmt.Errorf("couldn't write %s: %w", path, err)
	}
	return nil
}

func del(conn *sqlite.Conn, path string) error {
	lo, hi := docstore.Range(path)
	q := `DELETE FROM docs WHERE path = ? OR (path >= ? AND path < ?)`
	args := []any{path, lo, hi}
	if hi == "" {
		q = `DELETE FROM docs`
		args = nil
	}
	opts := sqlitex.ExecOptions{Args: args}
	if err := sqlitex.Execute(conn, q, &opts); err != nil {
		return fmt.Errorf("couldn't delete %s: %w", path, err)
	}
	return nil
}

func children(conn *sqlite.Conn, path string) ([]string, error) {
	lo, hi := docstore.Range(path)
	q := `SELECT path FROM docs WHERE path >= ? AND path < ? ORDER BY path`
	args := []any{lo, hi}
	if hi == "" {
		q = `SELECT path FROM docs WHERE path >= ? ORDER BY path`
		args = args[:1]
	}
	var r []string
	opts := sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r = docstore.AppendSegment(r, path, stmt.ColumnText(0))
			return nil
		},
	}
	if err := sqlitex.Execute(conn, q, &opts); err != nil {
		return nil, fmt.Errorf("couldn't list %s: %w", path, err)
	}
	return r, nil
}
