// Package resolve translates between Twitch login names and user IDs.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/ereiarrus/complementsbot/auth"
	"github.com/ereiarrus/complementsbot/metrics"
	"github.com/ereiarrus/complementsbot/twitch"
)

// Direction is the direction of a resolution.
type Direction int

const (
	// NameToID resolves login names to user IDs.
	NameToID Direction = iota
	// IDToName resolves user IDs to login names.
	IDToName
)

func (d Direction) String() string {
	switch d {
	case NameToID:
		return "name-to-id"
	case IDToName:
		return "id-to-name"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

const (
	// MaxBatch is the number of keys sent in a single request.
	MaxBatch = twitch.MaxUsers
	// MaxAttempts is the number of requests made for one batch before giving
	// up on it.
	MaxAttempts = 5
)

var (
	// ErrNotFound means a key does not correspond to any user.
	ErrNotFound = errors.New("identifier could not be resolved")
	// ErrMalformed means the request was rejected for its shape and was not
	// retried.
	ErrMalformed = errors.New("malformed resolution request")
	// ErrExhausted means every attempt for a batch failed. Errors wrapping it
	// also wrap ErrNotFound.
	ErrExhausted = errors.New("resolution attempts exhausted")
)

// Resolver resolves names and IDs through the Twitch API.
// Its methods are safe to call concurrently.
type Resolver struct {
	// Client is the Twitch API client.
	Client twitch.Client
	// Tokens supplies access tokens. Renewal is serialized by the token
	// source, so all in-flight batches share one renewal.
	Tokens auth.TokenSource
	// Backoff is the wait before retrying a batch after a failure other than
	// an expired token. It grows linearly with the attempt count.
	Backoff time.Duration

	// Requests, if not nil, observes each request made.
	Requests metrics.Observer
	// Latency, if not nil, observes the duration of each Resolve in seconds.
	Latency metrics.Observer
}

// Resolve resolves keys in the given direction. The result has the same
// length as keys, and each element is the resolution of the key at the same
// index, or the empty string if that key does not exist.
//
// Keys are sent in batches of at most [MaxBatch], concurrently.
func (r *Resolver) Resolve(ctx context.Context, keys []string, dir Direction) ([]string, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrMalformed)
	}
	start := time.Now()
	defer func() {
		metrics.Observe(r.Latency, time.Since(start).Seconds(), dir.String())
	}()
	out := make([]string, len(keys))
	group, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(keys); lo += MaxBatch {
		hi := min(lo+MaxBatch, len(keys))
		group.Go(func() error {
			return r.batch(ctx, keys[lo:hi], dir, out[lo:hi])
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveOne resolves a single key.
// If the key does not exist, the error wraps [ErrNotFound].
func (r *Resolver) ResolveOne(ctx context.Context, key string, dir Direction) (string, error) {
	out, err := r.Resolve(ctx, []string{key}, dir)
	if err != nil {
		return "", err
	}
	if out[0] == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return out[0], nil
}

// batch resolves at most MaxBatch keys into out.
func (r *Resolver) batch(ctx context.Context, keys []string, dir Direction, out []string) error {
	tok, err := r.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("couldn't get access token: %w", err)
	}
	var last error
	for attempt := range MaxAttempts {
		users, err := r.lookup(ctx, tok, keys, dir)
		switch {
		case err == nil:
			fill(out, keys, users, dir)
			return nil
		case errors.Is(err, twitch.ErrBadRequest):
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		case errors.Is(err, twitch.ErrNeedRefresh):
			slog.InfoContext(ctx, "access token expired", slog.Int("attempt", attempt+1))
			last = twitch.ErrNeedRefresh
			if attempt == MaxAttempts-1 {
				// No request would use a new token.
				break
			}
			tok, err = r.Tokens.Refresh(ctx, tok)
			if err != nil {
				return fmt.Errorf("couldn't renew access token: %w", err)
			}
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			slog.WarnContext(ctx, "resolution failed", slog.Int("attempt", attempt+1), slog.Any("err", err))
			last = err
			if attempt == MaxAttempts-1 {
				break
			}
			if err := wait(ctx, r.Backoff*time.Duration(attempt+1)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %w (last error: %w)", ErrExhausted, MaxAttempts, ErrNotFound, last)
}

func (r *Resolver) lookup(ctx context.Context, tok *oauth2.Token, keys []string, dir Direction) ([]twitch.User, error) {
	metrics.Observe(r.Requests, 1)
	switch dir {
	case NameToID:
		return twitch.UsersByLogin(ctx, r.Client, tok, keys...)
	case IDToName:
		return twitch.UsersByID(ctx, r.Client, tok, keys...)
	default:
		panic(fmt.Errorf("resolve: bad direction %v", dir))
	}
}

// fill places each user's resolution at the index of the key that names it.
func fill(out, keys []string, users []twitch.User, dir Direction) {
	m := make(map[string]string, len(users))
	for _, u := range users {
		switch dir {
		case NameToID:
			m[strings.ToLower(u.Login)] = u.ID
		case IDToName:
			m[u.ID] = u.Login
		}
	}
	for i, k := range keys {
		if dir == NameToID {
			k = strings.ToLower(k)
		}
		out[i] = m[k]
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
