package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gitlab.com/zephyrtronium/tmi"
	"golang.org/x/sync/errgroup"

	"github.com/ereiarrus/complementsbot/resolve"
)

func (robo *Robot) runTwitch(ctx context.Context, group *errgroup.Group) error {
	cfg := tmi.ConnectConfig{
		Dial:         new(tls.Dialer).DialContext,
		RetryWait:    tmi.RetryList(true, 0, time.Second, time.Minute, 5*time.Minute),
		Nick:         robo.tmi.name,
		Pass:         "oauth:" + robo.tmi.token,
		Capabilities: []string{"twitch.tv/commands", "twitch.tv/tags"},
		Timeout:      300 * time.Second,
	}
	log := slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)
	go robo.tmiLoop(ctx, group, robo.tmi.send, robo.tmi.recv)
	tmi.Connect(ctx, cfg, tmi.Log(log, false), robo.tmi.send, robo.tmi.recv)
	return ctx.Err()
}

func (robo *Robot) tmiLoop(ctx context.Context, group *errgroup.Group, send chan<- *tmi.Message, recv <-chan *tmi.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-recv:
			if !ok {
				return
			}
			switch msg.Command {
			case "PRIVMSG":
				group.Go(func() error {
					robo.tmiMessage(ctx, send, msg)
					return nil
				})
			case "NOTICE":
				slog.InfoContext(ctx, "notice", slog.String("channel", msg.To()), slog.String("text", msg.Trailing))
			case "GLOBALUSERSTATE":
				slog.InfoContext(ctx, "connected to TMI", slog.String("GLOBALUSERSTATE", msg.Tags))
			case "366": // End NAMES
				if len(msg.Params) > 1 {
					slog.InfoContext(ctx, "joined channel", slog.String("channel", msg.Params[1]))
				}
			case "376": // End MOTD
				go robo.joinTwitch(ctx, send)
			}
		}
	}
}

// joinTwitch joins the bot's own channel and every channel recorded as
// joined.
func (robo *Robot) joinTwitch(ctx context.Context, send chan<- *tmi.Message) {
	ls, err := robo.joinedLogins(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "couldn't list joined channels", slog.Any("err", err))
		// Still join our own channel so that people can use joinme.
		ls = []string{robo.tmi.name}
	}
	for _, l := range ls {
		robo.channels.Store("#"+l, time.Now())
	}
	burst := 20
	for len(ls) > 0 {
		l := ls[:min(burst, len(ls))]
		ls = ls[len(l):]
		for i, s := range l {
			l[i] = "#" + s
		}
		msg := tmi.Message{
			Command: "JOIN",
			Params:  []string{strings.Join(l, ",")},
		}
		select {
		case <-ctx.Done():
			return
		case send <- &msg:
			// do nothing
		}
		if len(ls) > 0 {
			// Per https://dev.twitch.tv/docs/irc/#rate-limits we get 20 join
			// attempts per ten seconds. Use a slightly longer delay to ensure
			// we don't get globaled by clock drift.
			time.Sleep(11 * time.Second)
		}
	}
}

// joinedLogins returns the current logins of the bot's own channel and all
// joined channels. Channels whose owners no longer exist are skipped.
func (robo *Robot) joinedLogins(ctx context.Context) ([]string, error) {
	ids, err := robo.store.JoinedChannels(ctx)
	if err != nil {
		return nil, err
	}
	ls := []string{robo.tmi.name}
	var others []string
	for _, id := range ids {
		if id != robo.tmi.userID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return ls, nil
	}
	names, err := robo.resolver.Resolve(ctx, others, resolve.IDToName)
	if err != nil {
		return nil, fmt.Errorf("couldn't resolve joined channels: %w", err)
	}
	for i, name := range names {
		if name == "" {
			slog.WarnContext(ctx, "joined channel owner does not exist", slog.String("id", others[i]))
			continue
		}
		ls = append(ls, strings.ToLower(name))
	}
	slog.InfoContext(ctx, "joining channels", slog.Int("count", len(ls)))
	return ls, nil
}

// joinChannel joins a single chat channel by login.
func (robo *Robot) joinChannel(ctx context.Context, login string) {
	ch := "#" + strings.ToLower(login)
	robo.channels.Store(ch, time.Now())
	robo.sendRaw(ctx, &tmi.Message{Command: "JOIN", Params: []string{ch}})
	slog.InfoContext(ctx, "join", slog.String("channel", ch))
}

// partChannel leaves a single chat channel by login.
func (robo *Robot) partChannel(ctx context.Context, login string) {
	ch := "#" + strings.ToLower(login)
	since, ok := robo.channels.Load(ch)
	robo.channels.Delete(ch)
	robo.sendRaw(ctx, &tmi.Message{Command: "PART", Params: []string{ch}})
	if ok {
		slog.InfoContext(ctx, "part", slog.String("channel", ch), slog.Duration("after", time.Since(since)))
	}
}

func (robo *Robot) sendRaw(ctx context.Context, msg *tmi.Message) {
	select {
	case <-ctx.Done():
	case robo.tmi.send <- msg:
	}
}
