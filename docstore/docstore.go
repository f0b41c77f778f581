// Package docstore defines a hierarchical document store.
//
// Documents are addressed by slash-separated paths such as "Users/42/is_joined".
// Only leaves hold values. Interior paths exist implicitly while any document
// beneath them exists.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

// ErrNotFound is returned by Get when no document exists at a path.
var ErrNotFound = errors.New("document not found")

// Store is a hierarchical document store. Its methods are safe to call
// concurrently. Each individual write is atomic.
type Store interface {
	// Get returns the value of the document at path.
	// If there is none, the error is [ErrNotFound].
	Get(ctx context.Context, path string) ([]byte, error)
	// Set writes the document at path, replacing any existing value.
	Set(ctx context.Context, path string, value []byte) error
	// Delete removes the document at path and all documents beneath it.
	// Deleting a path with no documents is not an error.
	Delete(ctx context.Context, path string) error
	// Children returns the sorted distinct names of the segments immediately
	// beneath path. The empty path names the root.
	Children(ctx context.Context, path string) ([]string, error)
	// Update runs fn in a read-write transaction. Either all of fn's writes
	// are applied or none are. The store may call fn more than once if the
	// transaction conflicts with another, so fn should not have side effects
	// other than through tx.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// Close releases the store's resources.
	Close() error
}

// Tx is a read-write view of a store within [Store.Update].
type Tx interface {
	Get(path string) ([]byte, error)
	Set(path string, value []byte) error
	Delete(path string) error
	Children(path string) ([]string, error)
}

// Join joins path segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Range returns the half-open key range [lo, hi) containing exactly the
// documents strictly beneath path. For the root, hi is empty, meaning the
// range is unbounded above.
func Range(path string) (lo, hi string) {
	if path == "" {
		return "", ""
	}
	// '0' is the byte after '/'.
	return path + "/", path + "0"
}

// Segment returns the segment of key immediately beneath path. The key must
// be within Range(path).
func Segment(path, key string) string {
	lo, _ := Range(path)
	s := key[len(lo):]
	if k := strings.IndexByte(s, '/'); k >= 0 {
		s = s[:k]
	}
	return s
}

// AppendSegment appends the segment of key beneath path to segs if it differs
// from the last element. Keys visited in sorted order thus produce sorted
// distinct segments.
func AppendSegment(segs []string, path, key string) []string {
	s := Segment(path, key)
	if len(segs) > 0 && segs[len(segs)-1] == s {
		return segs
	}
	return append(segs, s)
}

// Transaction performs an atomic read-modify-write of the document at path.
// fn receives the current value, or nil and false if there is none, and
// returns the new value. If fn returns a nil value, the document is deleted.
func Transaction(ctx context.Context, s Store, path string, fn func(old []byte, found bool) ([]byte, error)) error {
	return s.Update(ctx, func(tx Tx) error {
		return Modify(tx, path, fn)
	})
}

// Modify is [Transaction] within an existing read-write transaction.
func Modify(tx Tx, path string, fn func(old []byte, found bool) ([]byte, error)) error {
	old, err := tx.Get(path)
	found := true
	switch {
	case err == nil: // do nothing
	case errors.Is(err, ErrNotFound):
		found = false
	default:
		return err
	}
	v, err := fn(old, found)
	if err != nil {
		return err
	}
	if v == nil {
		return tx.Delete(path)
	}
	return tx.Set(path, v)
}

// Encode encodes a document value.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode document: %w", err)
	}
	return b, nil
}

// Decode decodes a document value.
func Decode[T any](b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("couldn't decode document: %w", err)
	}
	return v, nil
}
