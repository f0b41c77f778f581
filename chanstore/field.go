package chanstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ereiarrus/complementsbot/docstore"
)

// Field is a typed channel setting with a default value.
type Field[T any] struct {
	key string
	def T
}

// Key returns the field's storage key.
func (f Field[T]) Key() string { return f.key }

// Default returns the value the field takes when it has never been written.
func (f Field[T]) Default() T { return f.def }

var (
	// ComplementChance is the percent chance that a chatter receives a random
	// complement per message.
	ComplementChance = Field[float64]{"complement_chance", 10.0 / 3}
	// IgnoreBots is whether accounts that look like bots are excluded from
	// random complements.
	IgnoreBots = Field[bool]{"should_ignore_bots", true}
	// Joined is whether the bot is active in the channel.
	Joined = Field[bool]{"is_joined", true}
	// TTSMutePrefix is prepended to muted complements.
	TTSMutePrefix = Field[string]{"tts_ignore_prefix", "!"}

	CmdComplementEnabled      = Field[bool]{"command_complement_enabled", true}
	RandomComplementEnabled   = Field[bool]{"random_complement_enabled", true}
	CmdComplementMuted        = Field[bool]{"command_complement_muted", true}
	RandomComplementMuted     = Field[bool]{"random_complement_muted", false}
	DefaultComplementsEnabled = Field[bool]{"default_complements_enabled", true}
	CustomComplementsEnabled  = Field[bool]{"custom_complements_enabled", true}

	// Username is the channel owner's login as of the last join or refresh.
	Username = Field[string]{"last_known_username", ""}
	// CreatedAt is the time the record was created.
	CreatedAt = Field[time.Time]{"created_at", time.Time{}}
)

const customComplementsKey = "custom_complements"

// materializer is a field that can write its default.
type materializer interface {
	materialize(tx docstore.Tx, id string) error
}

func (f Field[T]) materialize(tx docstore.Tx, id string) error {
	return setTx(tx, id, f, f.def)
}

// defaults are the fields a new record starts with.
var defaults = []materializer{
	ComplementChance,
	IgnoreBots,
	Joined,
	TTSMutePrefix,
	CmdComplementEnabled,
	RandomComplementEnabled,
	CmdComplementMuted,
	RandomComplementMuted,
	DefaultComplementsEnabled,
	CustomComplementsEnabled,
}

// GetOrDefault returns the value of a field. If the field has never been
// written on an existing record, its default is written back and returned.
// A channel with no record reads every field as its default without
// creating the record.
func GetOrDefault[T any](ctx context.Context, s *Store, id string, f Field[T]) (T, error) {
	b, err := s.docs.Get(ctx, fieldPath(id, f.key))
	switch {
	case err == nil:
		return decode[T](id, f.key, b)
	case errors.Is(err, docstore.ErrNotFound): // do nothing
	default:
		return f.def, fmt.Errorf("couldn't get %s for %s: %w", f.key, id, err)
	}
	r := f.def
	err = s.docs.Update(ctx, func(tx docstore.Tx) error {
		v, ok, err := getTx(tx, id, f)
		if err != nil {
			return err
		}
		if ok {
			// Someone else wrote it first.
			r = v
			return nil
		}
		r = f.def
		exists, err := existsTx(tx, id)
		if err != nil || !exists {
			return err
		}
		return setTx(tx, id, f, f.def)
	})
	if err != nil {
		return f.def, fmt.Errorf("couldn't get %s for %s: %w", f.key, id, err)
	}
	return r, nil
}

// Set overwrites the value of a field.
// If the channel has no record, the error is [ErrNoChannel].
func Set[T any](ctx context.Context, s *Store, id string, f Field[T], v T) error {
	err := s.docs.Update(ctx, func(tx docstore.Tx) error {
		if err := requireTx(tx, id); err != nil {
			return err
		}
		return setTx(tx, id, f, v)
	})
	if err != nil {
		return fmt.Errorf("couldn't set %s for %s: %w", f.key, id, err)
	}
	return nil
}

func getTx[T any](tx docstore.Tx, id string, f Field[T]) (T, bool, error) {
	b, err := tx.Get(fieldPath(id, f.key))
	switch {
	case err == nil:
		v, err := decode[T](id, f.key, b)
		return v, err == nil, err
	case errors.Is(err, docstore.ErrNotFound):
		return f.def, false, nil
	default:
		return f.def, false, err
	}
}

func setTx[T any](tx docstore.Tx, id string, f Field[T], v T) error {
	b, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	return tx.Set(fieldPath(id, f.key), b)
}

func decode[T any](id, key string, b []byte) (T, error) {
	v, err := docstore.Decode[T](b)
	if err != nil {
		return v, fmt.Errorf("bad %s for %s: %w", key, id, err)
	}
	return v, nil
}
