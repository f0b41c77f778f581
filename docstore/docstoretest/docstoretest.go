// Package docstoretest provides integration testing facilities for document
// stores.
package docstoretest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ereiarrus/complementsbot/docstore"
)

// Test runs the integration test suite against stores produced by new.
//
// If a store cannot be created without error, new should call t.Fatal.
func Test(ctx context.Context, t *testing.T, new func(context.Context) docstore.Store) {
	t.Run("get", testGet(ctx, new(ctx)))
	t.Run("delete", testDelete(ctx, new(ctx)))
	t.Run("children", testChildren(ctx, new(ctx)))
	t.Run("transaction", testTransaction(ctx, new(ctx)))
	t.Run("concurrent", testConcurrent(ctx, new(ctx)))
	t.Run("rollback", testRollback(ctx, new(ctx)))
}

var docs = [...]struct {
	path  string
	value string
}{
	{"Users/42/is_joined", "true"},
	{"Users/42/complement_chance", "8.5"},
	{"Users/42/custom_complements", `["nice hat"]`},
	{"Users/420/is_joined", "false"},
	{"Users/7/is_joined", "true"},
	{"Ignored", `["bocchi"]`},
}

func populate(ctx context.Context, t *testing.T, s docstore.Store) {
	t.Helper()
	for _, d := range docs {
		if err := s.Set(ctx, d.path, []byte(d.value)); err != nil {
			t.Fatalf("couldn't set %s: %v", d.path, err)
		}
	}
}

func testGet(ctx context.Context, s docstore.Store) func(t *testing.T) {
	return func(t *testing.T) {
		if _, err := s.Get(ctx, "Users/42/is_joined"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("wrong error getting from empty store: want ErrNotFound, got %v", err)
		}
		populate(ctx, t, s)
		for _, d := range docs {
			v, err := s.Get(ctx, d.path)
			if err != nil {
				t.Errorf("couldn't get %s: %v", d.path, err)
				continue
			}
			if got := string(v); got != d.value {
				t.Errorf("wrong value for %s: want %q, got %q", d.path, d.value, got)
			}
		}
		if err := s.Set(ctx, "Users/42/is_joined", []byte("false")); err != nil {
			t.Fatalf("couldn't overwrite: %v", err)
		}
		v, err := s.Get(ctx, "Users/42/is_joined")
		if err != nil {
			t.Fatalf("couldn't get after overwrite: %v", err)
		}
		if string(v) != "false" {
			t.Errorf("overwrite didn't stick: got %q", v)
		}
		// Interior paths hold no value.
		if _, err := s.Get(ctx, "Users/42"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("wrong error getting interior path: want ErrNotFound, got %v", err)
		}
	}
}

func testDelete(ctx context.Context, s docstore.Store) func(t *testing.T) {
	return func(t *testing.T) {
		populate(ctx, t, s)
		if err := s.Delete(ctx, "Users/42"); err != nil {
			t.Fatalf("couldn't delete: %v", err)
		}
		for _, p := range []string{"Users/42/is_joined", "Users/42/complement_chance", "Users/42/custom_complements"} {
			if _, err := s.Get(ctx, p); !errors.Is(err, docstore.ErrNotFound) {
				t.Errorf("%s survived deleting its parent: %v", p, err)
			}
		}
		for _, p := range []string{"Users/420/is_joined", "Users/7/is_joined", "Ignored"} {
			if _, err := s.Get(ctx, p); err != nil {
				t.Errorf("%s was lost deleting a sibling: %v", p, err)
			}
		}
		// Deleting nothing is fine.
		if err := s.Delete(ctx, "Users/42"); err != nil {
			t.Errorf("couldn't delete again: %v", err)
		}
		if err := s.Delete(ctx, "Ignored"); err != nil {
			t.Fatalf("couldn't delete leaf: %v", err)
		}
		if _, err := s.Get(ctx, "Ignored"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("leaf survived deletion: %v", err)
		}
	}
}

func testChildren(ctx context.Context, s docstore.Store) func(t *testing.T) {
	return func(t *testing.T) {
		c, err := s.Children(ctx, "Users")
		if err != nil {
			t.Fatalf("couldn't list empty store: %v", err)
		}
		if len(c) != 0 {
			t.Errorf("empty store has children: %q", c)
		}
		populate(ctx, t, s)
		cases := []struct {
			path string
			want []string
		}{
			{"", []string{"Ignored", "Users"}},
			{"Users", []string{"42", "420", "7"}},
			{"Users/42", []string{"complement_chance", "custom_complements", "is_joined"}},
			{"Users/4", nil},
			{"Ignored", nil},
		}
		for _, c := range cases {
			got, err := s.Children(ctx, c.path)
			if err != nil {
				t.Errorf("couldn't list %q: %v", c.path, err)
				continue
			}
			if diff := cmp.Diff(c.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("wrong children of %q (+got/-want):\n%s", c.path, diff)
			}
		}
	}
}

func testTransaction(ctx context.Context, s docstore.Store) func(t *testing.T) {
	return func(t *testing.T) {
		const p = "Users/42/complement_chance"
		err := docstore.Transaction(ctx, s, p, func(old []byte, found bool) ([]byte, error) {
			if found {
				t.Errorf("found nonexistent document with value %q", old)
			}
			return []byte("2"), nil
		})
		if err != nil {
			t.Fatalf("couldn't create: %v", err)
		}
		err = docstore.Transaction(ctx, s, p, func(old []byte, found bool) ([]byte, error) {
			if !found || string(old) != "2" {
				t.Errorf("wrong old value: want %q, got %q (found=%t)", "2", old, found)
			}
			return []byte("3"), nil
		})
		if err != nil {
			t.Fatalf("couldn't modify: %v", err)
		}
		v, err := s.Get(ctx, p)
		if err != nil || string(v) != "3" {
			t.Errorf("wrong value after modify: want %q, got %q (%v)", "3", v, err)
		}
		err = docstore.Transaction(ctx, s, p, func(old []byte, found bool) ([]byte, error) {
			return nil, nil
		})
		if err != nil {
			t.Fatalf("couldn't delete: %v", err)
		}
		if _, err := s.Get(ctx, p); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("document survived transaction deleting it: %v", err)
		}
	}
}

func testConcurrent(ctx context.Context, s docstore.Store) func(t *testing.T) {
	return func(t *testing.T) {
		const p = "Users/42/count"
		const n = 32
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := docstore.Transaction(ctx, s, p, func(old []byte, found bool) ([]byte, error) {
					k := 0
					if found {
						var err error
						k, err = strconv.Atoi(string(old))
						if err != nil {
							return nil, err
						}
					}
					return strconv.AppendInt(nil, int64(k+1), 10), nil
				})
				if err != nil {
					t.Errorf("couldn't increment: %v", err)
				}
			}()
		}
		wg.Wait()
		v, err := s.Get(ctx, p)
		if err != nil {
			t.Fatalf("couldn't get result: %v", err)
		}
		if got := string(v); got != strconv.Itoa(n) {
			t.Errorf("lost updates: want %d, got %s", n, got)
		}
	}
}

func testRollback(ctx context.Context, s docstore.Store) func(t *testing.T) {
	return func(t *testing.T) {
		populate(ctx, t, s)
		bad := errors.New("bad")
		err := s.Update(ctx, func(tx docstore.Tx) error {
			if err := tx.Set("Users/42/is_joined", []byte("false")); err != nil {
				return err
			}
			if err := tx.Delete("Users/7"); err != nil {
				return err
			}
			// Writes are visible within the transaction.
			v, err := tx.Get("Users/42/is_joined")
			if err != nil {
				return err
			}
			if string(v) != "false" {
				t.Errorf("write not visible within transaction: got %q", v)
			}
			return bad
		})
		if !errors.Is(err, bad) {
			t.Errorf("wrong error from failed update: want %v, got %v", bad, err)
		}
		v, err := s.Get(ctx, "Users/42/is_joined")
		if err != nil || string(v) != "true" {
			t.Errorf("failed update was applied: want %q, got %q (%v)", "true", v, err)
		}
		if _, err := s.Get(ctx, "Users/7/is_joined"); err != nil {
			t.Errorf("failed update deleted a document: %v", err)
		}
	}
}
