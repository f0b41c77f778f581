package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gitlab.com/zephyrtronium/tmi"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/command"
	"github.com/ereiarrus/complementsbot/complement"
	"github.com/ereiarrus/complementsbot/docstore"
	"github.com/ereiarrus/complementsbot/metrics"
	"github.com/ereiarrus/complementsbot/resolve"
	"github.com/ereiarrus/complementsbot/syncmap"
	"github.com/ereiarrus/complementsbot/twitch"
)

// Robot is the overall state of the bot.
type Robot struct {
	// docs is the document store backing the channel configuration store.
	docs docstore.Store
	// store is the channel configuration store.
	store *chanstore.Store
	// resolver translates between logins and user IDs.
	resolver *resolve.Resolver
	// channels is the set of chat channels currently joined, with the time
	// each was joined.
	channels *syncmap.Map[string, time.Time]
	// works is the worker pool for handling chat messages.
	works chan chan func(context.Context)
	// metrics are the bot's metrics.
	metrics *metrics.Metrics
	// owner is the bot owner's metadata and ownerID their user ID.
	owner   Owner
	ownerID string
	// tmi contains the bot's Twitch chat settings. It may be nil if there is
	// no chat configuration.
	tmi *client
}

// client is the state of the chat connection.
type client struct {
	send chan *tmi.Message
	recv chan *tmi.Message
	// rate is the global rate limiter for sent messages.
	rate *rate.Limiter
	// token is the chat access token, without the oauth: prefix.
	token string
	// prefix is the command prefix.
	prefix string
	// name and userID are the bot's login and user ID.
	name   string
	userID string
}

// New creates a new robot instance. Use the Init methods to set up chat.
func New(docs docstore.Store, resolver *resolve.Resolver, m *metrics.Metrics, poolSize int) *Robot {
	return &Robot{
		docs:     docs,
		store:    chanstore.New(docs, resolver),
		resolver: resolver,
		channels: syncmap.New[string, time.Time](),
		works:    make(chan chan func(context.Context), poolSize),
		metrics:  m,
	}
}

// SetOwner sets the owner's metadata and resolves their user ID.
// If the owner can't be resolved, owner commands are disabled.
func (robo *Robot) SetOwner(ctx context.Context, owner Owner) {
	robo.owner = owner
	if owner.Name == "" {
		slog.WarnContext(ctx, "no owner information; continuing with owner commands disabled")
		return
	}
	id, err := robo.resolver.ResolveOne(ctx, owner.Name, resolve.NameToID)
	if err != nil {
		slog.WarnContext(ctx, "couldn't resolve owner; continuing with owner commands disabled",
			slog.String("login", owner.Name),
			slog.Any("err", err),
		)
		return
	}
	robo.ownerID = id
	slog.InfoContext(ctx, "Twitch owner", slog.String("id", id), slog.String("login", owner.Name))
}

// InitTwitch initializes the chat client. It validates the chat token to
// learn the bot's own login and user ID, then records the bot's own channel
// as joined.
func (robo *Robot) InitTwitch(ctx context.Context, cfg ClientCfg, token string) error {
	token = strings.TrimPrefix(token, "oauth:")
	if token == "" {
		return errors.New("no chat token; set TMI_TOKEN")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}
	robo.tmi = &client{
		send:   make(chan *tmi.Message, 1),
		recv:   make(chan *tmi.Message, 8), // 8 is enough for on-connect msgs
		rate:   newLimiter(cfg.Rate),
		token:  token,
		prefix: prefix,
	}
	val, err := robo.validate(ctx, &oauth2.Token{AccessToken: token})
	if err != nil {
		return err
	}
	robo.tmi.name = strings.ToLower(val.Login)
	robo.tmi.userID = val.UserID
	if err := robo.store.Join(ctx, val.UserID, robo.tmi.name); err != nil {
		return fmt.Errorf("couldn't record own channel: %w", err)
	}
	return nil
}

// validate validates the chat token, retrying transient failures.
func (robo *Robot) validate(ctx context.Context, tok *oauth2.Token) (*twitch.Validation, error) {
	var last error
	for attempt := range 5 {
		val, err := twitch.Validate(ctx, robo.resolver.Client, tok)
		slog.InfoContext(ctx, "Twitch validation", slog.Any("response", val), slog.Any("err", err))
		switch {
		case err == nil:
			return val, nil
		case errors.Is(err, twitch.ErrNeedRefresh):
			// The chat token is supplied by the operator, so there is no way
			// for us to renew it.
			return nil, fmt.Errorf("chat token is invalid or expired: %w", err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		last = err
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
	return nil, fmt.Errorf("gave up on validation attempts: %w", last)
}

// commands returns the state visible to chat commands.
func (robo *Robot) commands() *command.Robot {
	return &command.Robot{
		Log:      slog.Default(),
		Store:    robo.store,
		Resolver: robo.resolver,
		Me:       robo.tmi.name,
		MeID:     robo.tmi.userID,
		Owner:    strings.ToLower(robo.owner.Name),
		OwnerID:  robo.ownerID,
		Defaults: complement.Defaults(),
		Join:     robo.joinChannel,
		Part:     robo.partChannel,
		Sent:     robo.metrics.ComplementsSent,
	}
}

// Run connects to configured services and serves until ctx is canceled.
func (robo *Robot) Run(ctx context.Context, listen string) error {
	group, ctx := errgroup.WithContext(ctx)
	if robo.tmi != nil {
		group.Go(func() error { return robo.runTwitch(ctx, group) })
	}
	if listen != "" {
		group.Go(func() error {
			return robo.api(ctx, listen, new(http.ServeMux), robo.metrics.Collectors())
		})
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		// If the first error is context canceled, then we are shutting down
		// normally in response to a sigint.
		err = nil
	}
	return err
}

// Close closes the robot's store.
func (robo *Robot) Close() error {
	return robo.docs.Close()
}
