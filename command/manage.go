package command

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/complement"
)

// SetChance sets the channel's random complement chance.
func SetChance(ctx context.Context, robo *Robot, call *Invocation) {
	arg := strings.TrimSpace(call.Args)
	if arg == "" {
		call.reply(ctx, "@"+call.Channel+" You did not enter a number. Please try again.")
		return
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		call.reply(ctx, fmt.Sprintf("@%s '%s' is an invalid number. Please try again.", call.Channel, arg))
		return
	}
	if err := chanstore.Set(ctx, robo.Store, call.ChannelID, chanstore.ComplementChance, v); err != nil {
		robo.fail(ctx, call, "set chance failed", err)
		return
	}
	call.reply(ctx, fmt.Sprintf("@%s complement chance set to %s!", call.Channel, strconv.FormatFloat(v, 'f', -1, 64)))
}

// AddComplement adds a custom complement to the channel.
func AddComplement(ctx context.Context, robo *Robot, call *Invocation) {
	c := strings.TrimSpace(call.Args)
	if c == "" {
		return
	}
	if len(c) > complement.MaxLength {
		call.reply(ctx, fmt.Sprintf("@%s complement is too long. It may not be over %d characters long.", call.Channel, complement.MaxLength))
		return
	}
	if err := robo.Store.AddComplement(ctx, call.ChannelID, c); err != nil {
		robo.fail(ctx, call, "add complement failed", err)
		return
	}
	call.reply(ctx, fmt.Sprintf("@%s new complements added: '%s'", call.Channel, c))
}

// ListComplements lists the channel's custom complements, over several
// messages if needed.
func ListComplements(ctx context.Context, robo *Robot, call *Invocation) {
	l, err := robo.Store.Complements(ctx, call.ChannelID)
	if err != nil {
		robo.fail(ctx, call, "list complements failed", err)
		return
	}
	if len(l) == 0 {
		call.reply(ctx, "@"+call.Channel+" No complements found.")
		return
	}
	for _, m := range complement.Wrap("@" + call.Channel + " complements: " + complement.Quote(l)) {
		call.reply(ctx, m)
	}
}

// RemoveComplement removes every custom complement containing a phrase.
func RemoveComplement(ctx context.Context, robo *Robot, call *Invocation) {
	removed, err := robo.Store.RemoveMatching(ctx, call.ChannelID, call.Args)
	if err != nil {
		robo.fail(ctx, call, "remove complement failed", err)
		return
	}
	if len(removed) == 0 {
		call.reply(ctx, "@"+call.Channel+" No complements with that phrase found.")
		return
	}
	for _, m := range complement.Wrap("@" + call.Channel + " complement/s removed: " + complement.Quote(removed)) {
		call.reply(ctx, m)
	}
}

// RemoveAllComplements removes all of the channel's custom complements.
func RemoveAllComplements(ctx context.Context, robo *Robot, call *Invocation) {
	if err := robo.Store.RemoveAllComplements(ctx, call.ChannelID); err != nil {
		robo.fail(ctx, call, "remove all complements failed", err)
		return
	}
	call.reply(ctx, "@"+call.Channel+" all of your custom complements have been removed.")
}

// SetMutePrefix sets the prefix used to mute text-to-speech.
func SetMutePrefix(ctx context.Context, robo *Robot, call *Invocation) {
	p := strings.TrimSpace(call.Args)
	if p == "" {
		return
	}
	if err := chanstore.Set(ctx, robo.Store, call.ChannelID, chanstore.TTSMutePrefix, p); err != nil {
		robo.fail(ctx, call, "set mute prefix failed", err)
		return
	}
	call.reply(ctx, fmt.Sprintf("@%s mute TTS prefix changed to '%s'.", call.Channel, p))
}
