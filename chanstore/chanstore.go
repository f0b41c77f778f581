// Package chanstore provides per-channel configuration and the global ignore
// list on top of a hierarchical document store.
//
// Channel records live under Users/<id>/<field>. A record exists exactly when
// the channel has been joined at least once.
package chanstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ereiarrus/complementsbot/docstore"
	"github.com/ereiarrus/complementsbot/resolve"
)

var (
	// ErrNotIgnored is returned by Unignore when the user is not ignored.
	ErrNotIgnored = errors.New("user is not ignored")
	// ErrNoChannel is returned when reading settings of or writing to a
	// channel that has no record.
	ErrNoChannel = errors.New("channel has no record")
)

// Resolver maps between user logins and user IDs.
type Resolver interface {
	ResolveOne(ctx context.Context, key string, dir resolve.Direction) (string, error)
}

// ChannelRef identifies a channel either by its owner's ID or by login.
type ChannelRef struct {
	id   string
	name string
}

// ByID refers to a channel by its owner's user ID.
func ByID(id string) ChannelRef {
	return ChannelRef{id: id}
}

// ByName refers to a channel by its owner's login.
func ByName(name string) ChannelRef {
	return ChannelRef{name: name}
}

func (r ChannelRef) String() string {
	if r.id != "" {
		return "id:" + r.id
	}
	return "login:" + r.name
}

// Store is a channel configuration store.
type Store struct {
	docs     docstore.Store
	resolver Resolver
	now      func() time.Time
}

// New creates a channel store over docs. resolver is used only to resolve
// channels referred to by name.
func New(docs docstore.Store, resolver Resolver) *Store {
	return &Store{docs: docs, resolver: resolver, now: time.Now}
}

// ID returns the user ID a channel reference denotes.
func (s *Store) ID(ctx context.Context, ref ChannelRef) (string, error) {
	if ref.id != "" {
		return ref.id, nil
	}
	if ref.name == "" {
		return "", fmt.Errorf("empty channel reference: %w", resolve.ErrMalformed)
	}
	id, err := s.resolver.ResolveOne(ctx, ref.name, resolve.NameToID)
	if err != nil {
		return "", fmt.Errorf("couldn't resolve channel %s: %w", ref.name, err)
	}
	return id, nil
}

const (
	usersPath   = "Users"
	ignoredPath = "Ignored"
)

func recordPath(id string) string {
	return docstore.Join(usersPath, id)
}

func fieldPath(id, key string) string {
	return docstore.Join(usersPath, id, key)
}

// Exists reports whether the channel has a record.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	c, err := s.docs.Children(ctx, recordPath(id))
	if err != nil {
		return false, fmt.Errorf("couldn't check record for %s: %w", id, err)
	}
	return len(c) != 0, nil
}

func existsTx(tx docstore.Tx, id string) (bool, error) {
	c, err := tx.Children(recordPath(id))
	if err != nil {
		return false, fmt.Errorf("couldn't check record for %s: %w", id, err)
	}
	return len(c) != 0, nil
}

// requireTx fails with ErrNoChannel if the channel has no record.
func requireTx(tx docstore.Tx, id string) error {
	ok, err := existsTx(tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoChannel
	}
	return nil
}

// Join marks the channel as joined. If the channel has no record, Join
// creates one with every field at its default, the given username, and the
// current time as its creation time. Otherwise only the joined flag changes.
func (s *Store) Join(ctx context.Context, id, username string) error {
	now := s.now()
	err := s.docs.Update(ctx, func(tx docstore.Tx) error {
		ok, err := existsTx(tx, id)
		if err != nil {
			return err
		}
		if ok {
			return setTx(tx, id, Joined, true)
		}
		for _, f := range defaults {
			if err := f.materialize(tx, id); err != nil {
				return err
			}
		}
		if err := setTx(tx, id, Username, username); err != nil {
			return err
		}
		if err := setTx(tx, id, CreatedAt, now); err != nil {
			return err
		}
		return setList(tx, fieldPath(id, customComplementsKey), []string{})
	})
	if err != nil {
		return fmt.Errorf("couldn't join %s: %w", id, err)
	}
	return nil
}

// Leave marks the channel as not joined, retaining all other settings.
// It does nothing if the channel has no record.
func (s *Store) Leave(ctx context.Context, id string) error {
	err := s.docs.Update(ctx, func(tx docstore.Tx) error {
		ok, err := existsTx(tx, id)
		if err != nil || !ok {
			return err
		}
		return setTx(tx, id, Joined, false)
	})
	if err != nil {
		return fmt.Errorf("couldn't leave %s: %w", id, err)
	}
	return nil
}

// Delete removes the channel's entire record.
// The ignore list is unaffected.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, recordPath(id)); err != nil {
		return fmt.Errorf("couldn't delete %s: %w", id, err)
	}
	return nil
}

// IsJoined reports whether the bot is active in the channel.
// Channels without records are not joined.
func (s *Store) IsJoined(ctx context.Context, id string) (bool, error) {
	ok, err := s.Exists(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return s.joined(ctx, id)
}

// joined reads the joined flag of an existing record. A record that lacks
// both the flag and a creation time was never made by Join, so it reads as
// not joined and nothing is written back.
func (s *Store) joined(ctx context.Context, id string) (bool, error) {
	b, err := s.docs.Get(ctx, fieldPath(id, Joined.key))
	switch {
	case err == nil:
		return decode[bool](id, Joined.key, b)
	case errors.Is(err, docstore.ErrNotFound): // do nothing
	default:
		return false, fmt.Errorf("couldn't get %s for %s: %w", Joined.key, id, err)
	}
	_, err = s.docs.Get(ctx, fieldPath(id, CreatedAt.key))
	switch {
	case err == nil:
		return GetOrDefault(ctx, s, id, Joined)
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("couldn't get %s for %s: %w", CreatedAt.key, id, err)
	}
}

// JoinedChannels returns the IDs of all joined channels in lexical order.
func (s *Store) JoinedChannels(ctx context.Context) ([]string, error) {
	ids, err := s.docs.Children(ctx, usersPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't list channels: %w", err)
	}
	r := ids[:0]
	for _, id := range ids {
		ok, err := s.joined(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			r = append(r, id)
		}
	}
	return r, nil
}

// CountJoined returns the number of joined channels.
func (s *Store) CountJoined(ctx context.Context) (int, error) {
	r, err := s.JoinedChannels(ctx)
	return len(r), err
}
