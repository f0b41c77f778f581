package command

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/complement"
	"github.com/ereiarrus/complementsbot/message"
	"github.com/ereiarrus/complementsbot/metrics"
	"github.com/ereiarrus/complementsbot/resolve"
)

// Complement complements a user, or the sender if no user is named.
// Nothing happens if the user is ignored or the channel disabled the command.
func Complement(ctx context.Context, robo *Robot, call *Invocation) {
	who := strings.TrimPrefix(strings.TrimSpace(call.Args), "@")
	if k := strings.IndexByte(who, ' '); k >= 0 {
		who = who[:k]
	}
	id := call.Message.Sender
	if who == "" {
		who = call.Message.Login
	} else if !strings.EqualFold(who, call.Message.Login) {
		var err error
		id, err = robo.Resolver.ResolveOne(ctx, who, resolve.NameToID)
		switch {
		case err == nil: // do nothing
		case errors.Is(err, resolve.ErrNotFound):
			robo.Log.InfoContext(ctx, "complement for unknown user", slog.String("who", who))
			return
		default:
			robo.Log.ErrorContext(ctx, "couldn't resolve complement target", slog.String("who", who), slog.Any("err", err))
			return
		}
	}
	ign, err := robo.Store.IsIgnored(ctx, id)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't check ignored", slog.String("who", who), slog.Any("err", err))
		return
	}
	if ign {
		return
	}
	ok, err := chanstore.GetOrDefault(ctx, robo.Store, call.ChannelID, chanstore.CmdComplementEnabled)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't check command complements", slog.String("channel", call.Channel), slog.Any("err", err))
		return
	}
	if !ok {
		return
	}
	text, ok, err := robo.compose(ctx, call.ChannelID, chanstore.CmdComplementMuted, who)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't compose complement", slog.String("channel", call.Channel), slog.Any("err", err))
		return
	}
	if !ok {
		return
	}
	call.reply(ctx, text)
	metrics.Observe(robo.Sent, 1, "command")
	robo.Log.InfoContext(ctx, "complemented",
		slog.String("kind", "command"),
		slog.String("channel", call.Channel),
		slog.String("who", who),
	)
}

// Random decides whether the sender of a chat message receives a random
// complement and returns it if so.
func Random(ctx context.Context, robo *Robot, m *message.Received) (message.Sent, bool) {
	id := m.RoomID
	chance, err := chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.ComplementChance)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't get complement chance", slog.String("channel", m.To), slog.Any("err", err))
		return message.Sent{}, false
	}
	if rand.Float64()*100 >= chance {
		return message.Sent{}, false
	}
	ok, err := chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.RandomComplementEnabled)
	if err != nil || !ok {
		return message.Sent{}, false
	}
	ign, err := robo.Store.IsIgnored(ctx, m.Sender)
	if err != nil || ign {
		return message.Sent{}, false
	}
	if complement.IsBot(m.Login) {
		bots, err := chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.IgnoreBots)
		if err != nil || bots {
			return message.Sent{}, false
		}
	}
	text, ok, err := robo.compose(ctx, id, chanstore.RandomComplementMuted, m.Login)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't compose complement", slog.String("channel", m.To), slog.Any("err", err))
		return message.Sent{}, false
	}
	if !ok {
		return message.Sent{}, false
	}
	metrics.Observe(robo.Sent, 1, "random")
	robo.Log.InfoContext(ctx, "complemented",
		slog.String("kind", "random"),
		slog.String("channel", m.To),
		slog.String("who", m.Login),
	)
	return message.Sent{To: m.To, Text: text}, true
}

// compose chooses and formats a complement to who for a channel, using the
// given mute setting. It returns false if the channel has no complements
// available.
func (robo *Robot) compose(ctx context.Context, id string, mute chanstore.Field[bool], who string) (string, bool, error) {
	var defaults, custom []string
	ok, err := chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.DefaultComplementsEnabled)
	if err != nil {
		return "", false, err
	}
	if ok {
		defaults = robo.Defaults
	}
	ok, err = chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.CustomComplementsEnabled)
	if err != nil {
		return "", false, err
	}
	if ok {
		custom, err = robo.Store.Complements(ctx, id)
		if err != nil {
			return "", false, err
		}
	}
	c, ok := complement.Choose(defaults, custom)
	if !ok {
		return "", false, nil
	}
	muted, err := chanstore.GetOrDefault(ctx, robo.Store, id, mute)
	if err != nil {
		return "", false, err
	}
	var prefix string
	if muted {
		prefix, err = chanstore.GetOrDefault(ctx, robo.Store, id, chanstore.TTSMutePrefix)
		if err != nil {
			return "", false, err
		}
	}
	return complement.Format(prefix, muted, who, c), true, nil
}
