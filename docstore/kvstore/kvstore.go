// Package kvstore implements a document store on Badger.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/ereiarrus/complementsbot/docstore"
)

// maxConflicts is the number of times Update retries a conflicting
// transaction before giving up.
const maxConflicts = 64

// Store is a document store backed by a Badger database.
// Document paths are used directly as keys.
type Store struct {
	db *badger.DB
}

var _ docstore.Store = (*Store)(nil)

// New wraps a Badger database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	var r []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = get(txn, path)
		return err
	})
	return r, err
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), value)
	})
	if err != nil {
		return fmt.Errorf("couldn't set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.Update(ctx, func(tx docstore.Tx) error { return tx.Delete(path) })
}

func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	var r []string
	err := s.db.View(func(txn *badger.Txn) error {
		r = children(txn, path)
		return nil
	})
	return r, err
}

// Update runs fn in a Badger transaction. Badger transactions are optimistic,
// so fn is run again when the commit conflicts with another transaction.
func (s *Store) Update(ctx context.Context, fn func(tx docstore.Tx) error) error {
	for range maxConflicts {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(tx{txn})
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction conflicted %d times: %w", maxConflicts, badger.ErrConflict)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	txn *badger.Txn
}

func (t tx) Get(path string) ([]byte, error) {
	return get(t.txn, path)
}

func (t tx) Set(path string, value []byte) error {
	return t.txn.Set([]byte(path), value)
}

func (t tx) Delete(path string) error {
	if path != "" {
		if err := t.txn.Delete([]byte(path)); err != nil {
			return fmt.Errorf("couldn't delete %s: %w", path, err)
		}
	}
	lo, _ := docstore.Range(path)
	// Collect keys first; deleting while iterating is not allowed.
	var keys [][]byte
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(lo)
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, k := range keys {
		if err := t.txn.Delete(k); err != nil {
			return fmt.Errorf("couldn't delete %s: %w", k, err)
		}
	}
	return nil
}

func (t tx) Children(path string) ([]string, error) {
	return children(t.txn, path), nil
}

func get(txn *badger.Txn, path string) ([]byte, error) {
	item, err := txn.Get([]byte(path))
	switch {
	case err == nil: // do nothing
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, docstore.ErrNotFound
	default:
		return nil, fmt.Errorf("couldn't get %s: %w", path, err)
	}
	r, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't read %s: %w", path, err)
	}
	return r, nil
}

func children(txn *badger.Txn, path string) []string {
	lo, _ := docstore.Range(path)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(lo)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	var r []string
	for it.Rewind(); it.Valid(); it.Next() {
		r = docstore.AppendSegment(r, path, string(it.Item().Key()))
	}
	return r
}
