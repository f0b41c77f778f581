package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/message"
	"github.com/ereiarrus/complementsbot/metrics"
	"github.com/ereiarrus/complementsbot/resolve"
)

// Resolver maps between user logins and user IDs.
type Resolver interface {
	Resolve(ctx context.Context, keys []string, dir resolve.Direction) ([]string, error)
	ResolveOne(ctx context.Context, key string, dir resolve.Direction) (string, error)
}

// Robot is the bot state as is visible to commands.
type Robot struct {
	Log      *slog.Logger
	Store    *chanstore.Store
	Resolver Resolver
	// Me and MeID are the bot's login and user ID.
	Me, MeID string
	// Owner and OwnerID are the login and user ID of the bot's owner.
	Owner, OwnerID string
	// Defaults is the list of default complements.
	Defaults []string
	// Join and Part join and leave chat channels by login.
	Join func(ctx context.Context, login string)
	Part func(ctx context.Context, login string)
	// Sent counts complements sent, labeled by kind.
	Sent metrics.Observer
}

func (robo *Robot) isPrivileged(m *message.Received) bool {
	return m.Login != "" && (m.Login == robo.Me || m.Login == robo.Owner)
}

func (robo *Robot) join(ctx context.Context, login string) {
	if robo.Join != nil && login != "" {
		robo.Join(ctx, login)
	}
}

func (robo *Robot) part(ctx context.Context, login string) {
	if robo.Part != nil && login != "" {
		robo.Part(ctx, login)
	}
}

// fail logs a failed command and tells the user something went wrong.
func (robo *Robot) fail(ctx context.Context, call *Invocation, what string, err error) {
	if errors.Is(err, chanstore.ErrNoChannel) {
		// The channel's data was deleted while the command was waiting.
		robo.Log.WarnContext(ctx, what,
			slog.String("channel", call.Channel),
			slog.Any("err", err),
		)
		return
	}
	robo.Log.ErrorContext(ctx, what,
		slog.String("channel", call.Channel),
		slog.String("sender", call.Message.Sender),
		slog.Any("err", err),
	)
	call.reply(ctx, "@"+call.Message.Login+" sorry, something went wrong. Please try again later.")
}
