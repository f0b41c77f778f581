package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/resolve"
)

// Count reports the number of joined channels.
func Count(ctx context.Context, robo *Robot, call *Invocation) {
	n, err := robo.Store.CountJoined(ctx)
	if err != nil {
		robo.fail(ctx, call, "count failed", err)
		return
	}
	call.reply(ctx, fmt.Sprintf("@%s %d channels and counting!", call.Message.Login, n))
}

// About links to the bot's documentation.
func About(ctx context.Context, robo *Robot, call *Invocation) {
	call.reply(ctx, "@"+call.Message.Login+" For most up-to-date information on commands, please have a look at "+
		"https://github.com/Ereiarrus/ComplementsBotPy#readme "+
		"and for most up-to-date complements, have a look at "+
		"https://github.com/Ereiarrus/ComplementsBotPy/blob/main/complements_list.txt")
}

// Refresh updates the sender's last known username. If it changed and the
// bot is in their channel, the bot moves to the new channel name.
func Refresh(ctx context.Context, robo *Robot, call *Invocation) {
	id, login := call.Message.Sender, call.Message.Login
	ok, err := robo.Store.Exists(ctx, id)
	if err != nil {
		robo.fail(ctx, call, "refresh failed", err)
		return
	}
	if !ok {
		call.reply(ctx, "@"+login+" your channel does not exists in my records.")
		return
	}
	changed, err := robo.rename(ctx, id, login)
	if err != nil {
		robo.fail(ctx, call, "refresh failed", err)
		return
	}
	if !changed {
		call.reply(ctx, "@"+login+" your username is already up to date!")
		return
	}
	call.reply(ctx, "@"+login+" I have updated your username.")
}

// RefreshAll refreshes the usernames of all joined channels.
func RefreshAll(ctx context.Context, robo *Robot, call *Invocation) {
	ids, err := robo.Store.JoinedChannels(ctx)
	if err != nil {
		robo.fail(ctx, call, "refresh all failed", err)
		return
	}
	if len(ids) == 0 {
		call.reply(ctx, "@"+call.Message.Login+" no channels to refresh.")
		return
	}
	names, err := robo.Resolver.Resolve(ctx, ids, resolve.IDToName)
	if err != nil {
		robo.fail(ctx, call, "refresh all failed", err)
		return
	}
	n := 0
	for i, id := range ids {
		if names[i] == "" {
			robo.Log.WarnContext(ctx, "joined channel has no user", slog.String("id", id))
			continue
		}
		changed, err := robo.rename(ctx, id, names[i])
		if err != nil {
			robo.fail(ctx, call, "refresh all failed", err)
			return
		}
		if changed {
			n++
		}
	}
	call.reply(ctx, fmt.Sprintf("@%s refreshed %d of %d channels.", call.Message.Login, n, len(ids)))
}

// rename records a channel's current login and moves the bot if the channel
// is joined under an old name. It reports whether the login changed.
func (robo *Robot) rename(ctx context.Context, id, login string) (bool, error) {
	old, err := chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.Username)
	if err != nil {
		return false, err
	}
	if old == login {
		return false, nil
	}
	if err := chanstore.Set(ctx, robo.Store, id, chanstore.Username, login); err != nil {
		return false, err
	}
	joined, err := robo.Store.IsJoined(ctx, id)
	if err != nil {
		return true, err
	}
	robo.Log.InfoContext(ctx, "channel renamed",
		slog.String("id", id),
		slog.String("old", old),
		slog.String("new", login),
		slog.Bool("joined", joined),
	)
	if joined {
		robo.part(ctx, old)
		robo.join(ctx, login)
	}
	return true, nil
}
