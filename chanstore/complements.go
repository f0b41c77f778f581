package chanstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ereiarrus/complementsbot/docstore"
)

// Complements returns the channel's custom complements. The result is never
// nil.
func (s *Store) Complements(ctx context.Context, id string) ([]string, error) {
	b, err := s.docs.Get(ctx, fieldPath(id, customComplementsKey))
	switch {
	case err == nil:
		r, err := decode[[]string](id, customComplementsKey, b)
		if r == nil {
			r = []string{}
		}
		return r, err
	case errors.Is(err, docstore.ErrNotFound):
		return []string{}, nil
	default:
		return []string{}, fmt.Errorf("couldn't get complements for %s: %w", id, err)
	}
}

// AddComplement appends a custom complement to the channel's list.
func (s *Store) AddComplement(ctx context.Context, id, text string) error {
	err := s.updateComplements(ctx, id, func(l []string) ([]string, error) {
		return append(l, text), nil
	})
	if err != nil {
		return fmt.Errorf("couldn't add complement for %s: %w", id, err)
	}
	return nil
}

// Removal describes how to shrink a complement list.
type Removal struct {
	list   []string
	remove bool
}

// Keep replaces the list with exactly the given complements.
func Keep(list []string) Removal {
	return Removal{list: list}
}

// Remove deletes every occurrence of the given complements from the list.
func Remove(list []string) Removal {
	return Removal{list: list, remove: true}
}

// RemoveComplements shrinks the channel's custom complements.
func (s *Store) RemoveComplements(ctx context.Context, id string, r Removal) error {
	err := s.updateComplements(ctx, id, func(l []string) ([]string, error) {
		if !r.remove {
			return slices.Clone(r.list), nil
		}
		return slices.DeleteFunc(l, func(c string) bool { return slices.Contains(r.list, c) }), nil
	})
	if err != nil {
		return fmt.Errorf("couldn't remove complements for %s: %w", id, err)
	}
	return nil
}

// RemoveMatching removes every custom complement matching phrase in the
// sense of [ComplementsToRemove] and returns the ones removed.
func (s *Store) RemoveMatching(ctx context.Context, id, phrase string) ([]string, error) {
	var removed []string
	err := s.updateComplements(ctx, id, func(l []string) ([]string, error) {
		var kept []string
		removed, kept = ComplementsToRemove(l, phrase)
		return kept, nil
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't remove complements for %s: %w", id, err)
	}
	return removed, nil
}

// RemoveAllComplements empties the channel's custom complements.
func (s *Store) RemoveAllComplements(ctx context.Context, id string) error {
	return s.RemoveComplements(ctx, id, Keep(nil))
}

// ComplementsToRemove partitions all into the complements that contain
// phrase and those that do not. Matching lowercases both sides, then ignores
// everything other than ASCII letters and digits. A phrase with no such
// characters matches nothing.
func ComplementsToRemove(all []string, phrase string) (removed, kept []string) {
	p := normalize(phrase)
	for _, c := range all {
		if p != "" && strings.Contains(normalize(c), p) {
			removed = append(removed, c)
		} else {
			kept = append(kept, c)
		}
	}
	return removed, kept
}

func normalize(s string) string {
	s = cases.Lower(language.Und).String(s)
	return strings.Map(func(r rune) rune {
		if 'a' <= r && r <= 'z' || '0' <= r && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Ignore adds a user to the global ignore list. Ignoring a user who is
// already ignored has no effect.
func (s *Store) Ignore(ctx context.Context, id string) error {
	err := docstore.Transaction(ctx, s.docs, ignoredPath, listFunc(func(l []string) ([]string, error) {
		if slices.Contains(l, id) {
			return l, nil
		}
		return append(l, id), nil
	}))
	if err != nil {
		return fmt.Errorf("couldn't ignore %s: %w", id, err)
	}
	return nil
}

// Unignore removes a user from the global ignore list.
// If the user is not ignored, the error is [ErrNotIgnored].
func (s *Store) Unignore(ctx context.Context, id string) error {
	err := docstore.Transaction(ctx, s.docs, ignoredPath, listFunc(func(l []string) ([]string, error) {
		k := slices.Index(l, id)
		if k < 0 {
			return nil, ErrNotIgnored
		}
		return slices.Delete(l, k, k+1), nil
	}))
	if err != nil {
		return fmt.Errorf("couldn't unignore %s: %w", id, err)
	}
	return nil
}

// IsIgnored reports whether a user is on the global ignore list.
func (s *Store) IsIgnored(ctx context.Context, id string) (bool, error) {
	b, err := s.docs.Get(ctx, ignoredPath)
	switch {
	case err == nil: // do nothing
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("couldn't get ignore list: %w", err)
	}
	l, err := docstore.Decode[[]string](b)
	if err != nil {
		return false, fmt.Errorf("bad ignore list: %w", err)
	}
	return slices.Contains(l, id), nil
}

// listFunc adapts a function over a string list to a document update.
// An absent list is presented to fn as empty.
func listFunc(fn func([]string) ([]string, error)) func([]byte, bool) ([]byte, error) {
	return func(old []byte, found bool) ([]byte, error) {
		var l []string
		if found {
			var err error
			l, err = docstore.Decode[[]string](old)
			if err != nil {
				return nil, err
			}
		}
		l, err := fn(l)
		if err != nil {
			return nil, err
		}
		if l == nil {
			l = []string{}
		}
		return docstore.Encode(l)
	}
}

// updateComplements atomically replaces the channel's custom complements
// with the result of fn applied to them.
// If the channel has no record, the error is [ErrNoChannel].
func (s *Store) updateComplements(ctx context.Context, id string, fn func([]string) ([]string, error)) error {
	return s.docs.Update(ctx, func(tx docstore.Tx) error {
		if err := requireTx(tx, id); err != nil {
			return err
		}
		return docstore.Modify(tx, fieldPath(id, customComplementsKey), listFunc(fn))
	})
}

func setList(tx docstore.Tx, path string, l []string) error {
	if l == nil {
		l = []string{}
	}
	b, err := docstore.Encode(l)
	if err != nil {
		return err
	}
	return tx.Set(path, b)
}
