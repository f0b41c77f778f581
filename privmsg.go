package main

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/zephyrtronium/tmi"

	"github.com/ereiarrus/complementsbot/command"
	"github.com/ereiarrus/complementsbot/complement"
	"github.com/ereiarrus/complementsbot/message"
	"github.com/ereiarrus/complementsbot/metrics"
)

// tmiMessage processes a PRIVMSG from TMI.
func (robo *Robot) tmiMessage(ctx context.Context, send chan<- *tmi.Message, msg *tmi.Message) {
	metrics.Observe(robo.metrics.TMIMsgsCount, 1)
	if _, ok := robo.channels.Load(msg.To()); !ok {
		// TMI gives a WHISPER for a direct message, so this is a message to a
		// channel we have already left. Ignore it.
		return
	}
	// Run the rest in a worker so that we don't block the message loop.
	work := func(ctx context.Context) {
		m := message.FromTMI(msg)
		out := func(ctx context.Context, s message.Sent) {
			robo.sendTMI(ctx, send, s)
		}
		robo.privmsg(ctx, robo.commands(), m, out)
	}
	robo.enqueue(ctx, work)
}

// privmsg handles a chat message: it runs the command the message invokes,
// if any, then decides whether to complement the sender at random.
func (robo *Robot) privmsg(ctx context.Context, r *command.Robot, m *message.Received, send func(context.Context, message.Sent)) {
	if m.Sender == r.MeID {
		// Ignore our own messages.
		return
	}
	if name, args, ok := message.Command(m.Text, robo.tmi.prefix); ok {
		if c := command.Lookup(name); c != nil {
			metrics.Observe(robo.metrics.TMICommandCount, 1)
			call := command.Invocation{
				Message:   m,
				Channel:   m.Channel(),
				ChannelID: m.RoomID,
				Args:      args,
				Send:      send,
			}
			start := time.Now()
			ran := c.Run(ctx, r, &call)
			slog.InfoContext(ctx, "command",
				slog.String("name", c.Name),
				slog.String("channel", m.To),
				slog.String("sender", m.Login),
				slog.Bool("allowed", ran),
			)
			if ran {
				metrics.Observe(robo.metrics.CommandLatency, time.Since(start).Seconds(), c.Name)
			}
		}
	}
	if s, ok := command.Random(ctx, r, m); ok {
		send(ctx, s)
	}
}

func (robo *Robot) enqueue(ctx context.Context, work func(context.Context)) {
	var w chan func(context.Context)
	// Get a worker if one exists. Otherwise, spawn a new one.
	select {
	case w = <-robo.works:
	default:
		w = make(chan func(context.Context), 1)
		go worker(ctx, robo.works, w)
	}
	// Send it work.
	select {
	case <-ctx.Done():
		return
	case w <- work:
	}
}

// worker runs works for a while. The provided context is passed to each work.
func worker(ctx context.Context, works chan chan func(context.Context), ch chan func(context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		case work := <-ch:
			work(ctx)
			// Replace ourselves in the pool if it needs additional capacity.
			// Otherwise, we're done.
			select {
			case works <- ch:
			default:
				return
			}
		}
	}
}

// sendTMI sends a message to TMI after waiting for the global rate limit.
// Long messages are split so that each piece fits in one chat message.
func (robo *Robot) sendTMI(ctx context.Context, send chan<- *tmi.Message, msg message.Sent) {
	for _, text := range complement.Wrap(msg.Text) {
		if err := robo.tmi.rate.Wait(ctx); err != nil {
			return
		}
		resp := message.ToTMI(msg.Reply, msg.To, text)
		select {
		case <-ctx.Done():
			return
		case send <- resp:
		}
	}
}
