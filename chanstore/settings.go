package chanstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ereiarrus/complementsbot/docstore"
)

// Settings is a snapshot of a channel record.
type Settings struct {
	ID                        string    `json:"id"`
	Username                  string    `json:"last_known_username"`
	Joined                    bool      `json:"is_joined"`
	CreatedAt                 time.Time `json:"created_at"`
	ComplementChance          float64   `json:"complement_chance"`
	IgnoreBots                bool      `json:"should_ignore_bots"`
	TTSMutePrefix             string    `json:"tts_ignore_prefix"`
	CmdComplementEnabled      bool      `json:"command_complement_enabled"`
	RandomComplementEnabled   bool      `json:"random_complement_enabled"`
	CmdComplementMuted        bool      `json:"command_complement_muted"`
	RandomComplementMuted     bool      `json:"random_complement_muted"`
	DefaultComplementsEnabled bool      `json:"default_complements_enabled"`
	CustomComplementsEnabled  bool      `json:"custom_complements_enabled"`
	CustomComplements         []string  `json:"custom_complements"`
}

// Settings reads a consistent snapshot of a channel's record. Absent fields
// read as their defaults without being written. If the channel has no
// record, the error is [ErrNoChannel].
func (s *Store) Settings(ctx context.Context, id string) (Settings, error) {
	r := Settings{ID: id}
	err := s.docs.Update(ctx, func(tx docstore.Tx) error {
		ok, err := existsTx(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoChannel
		}
		// Collect the first error so the reads stay flat.
		var first error
		read := func(err error) {
			if first == nil {
				first = err
			}
		}
		r.Username, _, err = getTx(tx, id, Username)
		read(err)
		r.Joined, _, err = getTx(tx, id, Joined)
		read(err)
		r.CreatedAt, _, err = getTx(tx, id, CreatedAt)
		read(err)
		r.ComplementChance, _, err = getTx(tx, id, ComplementChance)
		read(err)
		r.IgnoreBots, _, err = getTx(tx, id, IgnoreBots)
		read(err)
		r.TTSMutePrefix, _, err = getTx(tx, id, TTSMutePrefix)
		read(err)
		r.CmdComplementEnabled, _, err = getTx(tx, id, CmdComplementEnabled)
		read(err)
		r.RandomComplementEnabled, _, err = getTx(tx, id, RandomComplementEnabled)
		read(err)
		r.CmdComplementMuted, _, err = getTx(tx, id, CmdComplementMuted)
		read(err)
		r.RandomComplementMuted, _, err = getTx(tx, id, RandomComplementMuted)
		read(err)
		r.DefaultComplementsEnabled, _, err = getTx(tx, id, DefaultComplementsEnabled)
		read(err)
		r.CustomComplementsEnabled, _, err = getTx(tx, id, CustomComplementsEnabled)
		read(err)
		l, _, err := getTx(tx, id, Field[[]string]{customComplementsKey, nil})
		read(err)
		r.CustomComplements = l
		if r.CustomComplements == nil {
			r.CustomComplements = []string{}
		}
		return first
	})
	if err != nil {
		return Settings{ID: id}, fmt.Errorf("couldn't read settings for %s: %w", id, err)
	}
	return r, nil
}
