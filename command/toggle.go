package command

import (
	"context"
	"fmt"

	"github.com/ereiarrus/complementsbot/chanstore"
)

// toggle is a command that moves some state to a wanted value, replying
// differently depending on whether it was already there.
type toggle struct {
	// name names the toggle in logs.
	name string
	// check gets the current state.
	check func(ctx context.Context, robo *Robot, call *Invocation) (bool, error)
	// set moves the state to want.
	set func(ctx context.Context, robo *Robot, call *Invocation) error
	// want is the state the toggle moves to.
	want bool
	// already and changed are reply formats taking the addressee's login.
	// Empty formats send nothing.
	already, changed string
	// who chooses the addressee. If nil, it is the channel.
	who func(call *Invocation) string
	// after runs after the state changes.
	after func(ctx context.Context, robo *Robot, call *Invocation)
}

// Func returns a command running the toggle.
func (tg *toggle) Func() Func {
	return func(ctx context.Context, robo *Robot, call *Invocation) {
		cur, err := tg.check(ctx, robo, call)
		if err != nil {
			robo.fail(ctx, call, tg.name+" check failed", err)
			return
		}
		who := call.Channel
		if tg.who != nil {
			who = tg.who(call)
		}
		if cur == tg.want {
			if tg.already != "" {
				call.reply(ctx, fmt.Sprintf(tg.already, who))
			}
			return
		}
		if err := tg.set(ctx, robo, call); err != nil {
			robo.fail(ctx, call, tg.name+" failed", err)
			return
		}
		if tg.changed != "" {
			call.reply(ctx, fmt.Sprintf(tg.changed, who))
		}
		if tg.after != nil {
			tg.after(ctx, robo, call)
		}
	}
}

// field creates a toggle on a boolean channel setting.
func field(name string, f chanstore.Field[bool], want bool, already, changed string) *toggle {
	return &toggle{
		name: name,
		check: func(ctx context.Context, robo *Robot, call *Invocation) (bool, error) {
			return chanstore.GetOrDefault(ctx, robo.Store, call.ChannelID, f)
		},
		set: func(ctx context.Context, robo *Robot, call *Invocation) error {
			return chanstore.Set(ctx, robo.Store, call.ChannelID, f, want)
		},
		want:    want,
		already: already,
		changed: changed,
	}
}

func sender(call *Invocation) string {
	return call.Message.Login
}

var (
	disableCmd = field("disable command complements", chanstore.CmdComplementEnabled, false,
		"@%s your viewers already cannot make use of the !complement command.",
		"@%s your viewers will no longer be able to make use of the !complement command.",
	)
	enableCmd = field("enable command complements", chanstore.CmdComplementEnabled, true,
		"@%s your viewers can already make use of the !complement command!",
		"@%s your viewers will now be able to make use of the !complement command!",
	)
	disableRandom = field("disable random complements", chanstore.RandomComplementEnabled, false,
		"@%s your viewers already do not randomly receive complements.",
		"@%s your viewers will no longer randomly receive complements.",
	)
	enableRandom = field("enable random complements", chanstore.RandomComplementEnabled, true,
		"@%s I already randomly send out complements!",
		"@%s your viewers will now randomly receive complements!",
	)
	muteCmd = field("mute command complements", chanstore.CmdComplementMuted, true,
		"@%s command complements are already muted!",
		"@%s command complements are now muted.",
	)
	unmuteCmd = field("unmute command complements", chanstore.CmdComplementMuted, false,
		"@%s command complements are already unmuted!",
		"@%s command complements are no longer muted!",
	)
	muteRandom = field("mute random complements", chanstore.RandomComplementMuted, true,
		"@%s random complements are already muted!",
		"@%s random complements are now muted.",
	)
	unmuteRandom = field("unmute random complements", chanstore.RandomComplementMuted, false,
		"@%s random complements are already unmuted!",
		"@%s random complements are no longer muted!",
	)
	enableCustom = field("enable custom complements", chanstore.CustomComplementsEnabled, true,
		"@%s custom complements are already enabled!",
		"@%s custom complements are now enabled!",
	)
	disableCustom = field("disable custom complements", chanstore.CustomComplementsEnabled, false,
		"@%s custom complements are already disabled.",
		"@%s custom complements are now disabled.",
	)
	enableDefault = field("enable default complements", chanstore.DefaultComplementsEnabled, true,
		"@%s default complements are already enabled!",
		"@%s default complements are now enabled!",
	)
	disableDefault = field("disable default complements", chanstore.DefaultComplementsEnabled, false,
		"@%s default complements are already disabled.",
		"@%s default complements are now disabled.",
	)
	ignoreBots = field("ignore bots", chanstore.IgnoreBots, true,
		"@%s bots are already not getting complements.",
		"@%s bots will no longer get complemented.",
	)
	unignoreBots = field("unignore bots", chanstore.IgnoreBots, false,
		"@%s bots can already get complements!",
		"@%s bots have a chance of being complemented!",
	)
)

func senderJoined(ctx context.Context, robo *Robot, call *Invocation) (bool, error) {
	return robo.Store.IsJoined(ctx, call.Message.Sender)
}

func senderIgnored(ctx context.Context, robo *Robot, call *Invocation) (bool, error) {
	return robo.Store.IsIgnored(ctx, call.Message.Sender)
}

func ignoreSender(ctx context.Context, robo *Robot, call *Invocation) error {
	return robo.Store.Ignore(ctx, call.Message.Sender)
}

func unignoreSender(ctx context.Context, robo *Robot, call *Invocation) error {
	return robo.Store.Unignore(ctx, call.Message.Sender)
}

var (
	joinMe = &toggle{
		name:  "join",
		check: senderJoined,
		set: func(ctx context.Context, robo *Robot, call *Invocation) error {
			return robo.Store.Join(ctx, call.Message.Sender, call.Message.Login)
		},
		want:    true,
		already: "@%s I am already in your channel!",
		changed: "@%s I have joined your channel!",
		who:     sender,
		after: func(ctx context.Context, robo *Robot, call *Invocation) {
			robo.join(ctx, call.Message.Login)
		},
	}
	leaveMe = &toggle{
		name:  "leave",
		check: senderJoined,
		set: func(ctx context.Context, robo *Robot, call *Invocation) error {
			return robo.Store.Leave(ctx, call.Message.Sender)
		},
		want:    false,
		already: "@%s I have not joined your channel.",
		changed: "@%s I have left your channel.",
		who:     sender,
		after: func(ctx context.Context, robo *Robot, call *Invocation) {
			robo.part(ctx, call.Message.Login)
		},
	}
	deleteMe = &toggle{
		name: "delete",
		check: func(ctx context.Context, robo *Robot, call *Invocation) (bool, error) {
			return robo.Store.Exists(ctx, call.Message.Sender)
		},
		set: func(ctx context.Context, robo *Robot, call *Invocation) error {
			return robo.Store.Delete(ctx, call.Message.Sender)
		},
		want:    false,
		already: "@%s your channel does not exists in my records.",
		changed: "@%s I have deleted your channel data.",
		who:     sender,
		after: func(ctx context.Context, robo *Robot, call *Invocation) {
			robo.part(ctx, call.Message.Login)
		},
	}
	ignoreMe = &toggle{
		name:    "ignore",
		check:   senderIgnored,
		set:     ignoreSender,
		want:    true,
		already: "@%s I am already ignoring you.",
		changed: "@%s I am now ignoring you.",
		who:     sender,
	}
	unignoreMe = &toggle{
		name:    "unignore",
		check:   senderIgnored,
		set:     unignoreSender,
		want:    false,
		already: "@%s I am not ignoring you!",
		changed: "@%s I am no longer ignoring you!",
		who:     sender,
	}
	compIgnoreMe = &toggle{
		name:  "ignore",
		check: senderIgnored,
		set:   ignoreSender,
		want:  true,
	}
	compUnignoreMe = &toggle{
		name:  "unignore",
		check: senderIgnored,
		set:   unignoreSender,
		want:  false,
	}
	compLeave = &toggle{
		name: "leave",
		check: func(ctx context.Context, robo *Robot, call *Invocation) (bool, error) {
			return robo.Store.IsJoined(ctx, call.ChannelID)
		},
		set: func(ctx context.Context, robo *Robot, call *Invocation) error {
			return robo.Store.Leave(ctx, call.ChannelID)
		},
		want:    false,
		already: "@%s I have not joined your channel.",
		changed: "@%s I have left your channel.",
		after: func(ctx context.Context, robo *Robot, call *Invocation) {
			robo.part(ctx, call.Channel)
		},
	}
)
