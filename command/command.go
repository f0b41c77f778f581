// Package command implements the bot's chat commands.
package command

import (
	"context"
	"sync"

	"github.com/ereiarrus/complementsbot/message"
)

// Invocation is a command invocation. An Invocation and its fields must not
// be modified or retained by any command.
type Invocation struct {
	// Message is the message which triggered the invocation.
	Message *message.Received
	// Channel is the login of the channel where the invocation occurred.
	Channel string
	// ChannelID is the user ID of the channel owner.
	ChannelID string
	// Args is the text following the command name.
	Args string
	// Send sends a message.
	Send func(ctx context.Context, msg message.Sent)
}

// reply sends a message to the invocation's channel.
func (call *Invocation) reply(ctx context.Context, text string) {
	if text == "" {
		return
	}
	call.Send(ctx, message.Sent{To: call.Message.To, Text: text})
}

// Func executes a command.
type Func func(ctx context.Context, robo *Robot, call *Invocation)

// Predicate decides whether an invocation may run a command.
type Predicate func(robo *Robot, call *Invocation) bool

// Anyone allows every invocation.
func Anyone(robo *Robot, call *Invocation) bool {
	return true
}

// InBotChannel allows invocations in the bot's own channel or its owner's.
func InBotChannel(robo *Robot, call *Invocation) bool {
	return call.ChannelID != "" && (call.ChannelID == robo.MeID || call.ChannelID == robo.OwnerID)
}

// BroadcasterOrMod allows invocations by the channel owner, its moderators,
// the bot, and the bot's owner.
func BroadcasterOrMod(robo *Robot, call *Invocation) bool {
	m := call.Message
	return m.IsBroadcaster || m.IsModerator || robo.isPrivileged(m)
}

// ChannelOwner allows invocations by the channel owner.
func ChannelOwner(robo *Robot, call *Invocation) bool {
	return call.Message.IsBroadcaster
}

// BotOwner allows invocations by the bot and the bot's owner.
func BotOwner(robo *Robot, call *Invocation) bool {
	s := call.Message.Sender
	return s != "" && (s == robo.MeID || s == robo.OwnerID)
}

// Command is a chat command.
type Command struct {
	// Name is the primary name of the command.
	Name string
	// Aliases are additional names that invoke the command.
	Aliases []string
	// Allow decides who may use the command.
	Allow Predicate
	// Fn runs the command.
	Fn Func
}

var index = sync.OnceValue(func() map[string]*Command {
	m := make(map[string]*Command)
	for i := range All {
		c := &All[i]
		for _, n := range append([]string{c.Name}, c.Aliases...) {
			if m[n] != nil {
				panic("duplicate command name " + n)
			}
			m[n] = c
		}
	}
	return m
})

// Lookup finds the command with the given name or alias.
// It returns nil if there is none.
func Lookup(name string) *Command {
	return index()[name]
}

// Run runs the command if the invocation is allowed to. It reports whether
// the command ran.
func (c *Command) Run(ctx context.Context, robo *Robot, call *Invocation) bool {
	if !c.Allow(robo, call) {
		return false
	}
	c.Fn(ctx, robo, call)
	return true
}

// All is the list of all commands.
var All = []Command{
	// Anywhere, by anyone.
	{Name: "complement", Allow: Anyone, Fn: Complement},
	{Name: "compignoreme", Allow: Anyone, Fn: compIgnoreMe.Func()},
	{Name: "compunignoreme", Allow: Anyone, Fn: compUnignoreMe.Func()},

	// In the bot's channel.
	{Name: "joinme", Allow: InBotChannel, Fn: joinMe.Func()},
	{Name: "leaveme", Allow: InBotChannel, Fn: leaveMe.Func()},
	{Name: "deleteme", Allow: InBotChannel, Fn: deleteMe.Func()},
	{Name: "ignoreme", Allow: InBotChannel, Fn: ignoreMe.Func()},
	{Name: "unignoreme", Allow: InBotChannel, Fn: unignoreMe.Func()},
	{Name: "count", Allow: InBotChannel, Fn: Count},
	{Name: "about", Allow: InBotChannel, Fn: About},
	{Name: "refresh", Allow: InBotChannel, Fn: Refresh},
	{Name: "refreshall", Allow: BotOwner, Fn: RefreshAll},

	// In any channel, by its owner or moderators.
	{Name: "setchance", Allow: BroadcasterOrMod, Fn: SetChance},
	{
		Name:    "disablecmdcomplement",
		Aliases: []string{"disablecommandcomplement", "disablecommandcomp", "disablecmdcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      disableCmd.Func(),
	},
	{
		Name:    "enablecmdcomplement",
		Aliases: []string{"enablecommandcomplement", "enablecommandcomp", "enablecmdcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      enableCmd.Func(),
	},
	{
		Name:    "disablerandomcomplement",
		Aliases: []string{"disablerandcomplement", "disablerandcomp", "disablerandomcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      disableRandom.Func(),
	},
	{
		Name:    "enablerandomcomplement",
		Aliases: []string{"enablerandcomplement", "enablerandcomp", "enablerandomcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      enableRandom.Func(),
	},
	{Name: "addcomplement", Aliases: []string{"addcomp"}, Allow: BroadcasterOrMod, Fn: AddComplement},
	{Name: "listcomplements", Aliases: []string{"listcomps"}, Allow: BroadcasterOrMod, Fn: ListComplements},
	{Name: "removecomplement", Aliases: []string{"removecomp"}, Allow: BroadcasterOrMod, Fn: RemoveComplement},
	{Name: "removeallcomplements", Aliases: []string{"removeallcomps"}, Allow: BroadcasterOrMod, Fn: RemoveAllComplements},
	{Name: "setmutettsprefix", Allow: BroadcasterOrMod, Fn: SetMutePrefix},
	{
		Name:    "mutecmdcomplement",
		Aliases: []string{"mutecommandcomplement", "mutecommandcomp", "mutecmdcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      muteCmd.Func(),
	},
	{
		Name:    "muterandomcomplement",
		Aliases: []string{"muterandcomplement", "muterandcomp", "muterandomcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      muteRandom.Func(),
	},
	{
		Name:    "unmutecmdcomplement",
		Aliases: []string{"unmutecommandcomplement", "unmutecommandcomp", "unmutecmdcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      unmuteCmd.Func(),
	},
	{
		Name:    "unmuterandomcomplement",
		Aliases: []string{"unmuterandcomplement", "unmuterandcomp", "unmuterandomcomp"},
		Allow:   BroadcasterOrMod,
		Fn:      unmuteRandom.Func(),
	},
	{Name: "enablecustomcomplements", Aliases: []string{"enablecustomcomps"}, Allow: BroadcasterOrMod, Fn: enableCustom.Func()},
	{Name: "enabledefaultcomplements", Aliases: []string{"enabledefaultcomps"}, Allow: BroadcasterOrMod, Fn: enableDefault.Func()},
	{Name: "disablecustomcomplements", Aliases: []string{"disablecustomcomps"}, Allow: BroadcasterOrMod, Fn: disableCustom.Func()},
	{Name: "disabledefaultcomplements", Aliases: []string{"disabledefaultcomps"}, Allow: BroadcasterOrMod, Fn: disableDefault.Func()},
	{Name: "ignorebots", Aliases: []string{"ignorebot"}, Allow: BroadcasterOrMod, Fn: ignoreBots.Func()},
	{Name: "unignorebots", Aliases: []string{"unignorebot"}, Allow: BroadcasterOrMod, Fn: unignoreBots.Func()},

	// In any channel, by its owner only.
	{Name: "compleave", Aliases: []string{"compleaveme"}, Allow: ChannelOwner, Fn: compLeave.Func()},
}
