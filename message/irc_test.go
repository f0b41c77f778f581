package message_test

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gitlab.com/zephyrtronium/tmi"

	"github.com/ereiarrus/complementsbot/message"
)

func TestFromTMI(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want message.Received
	}{
		{
			name: "regular",
			msg:  `@badge-info=;badges=;client-nonce=eb10a5865f1231b6e96d6ae2dbcecdb4;color=#B22222;display-name=Someone;emotes=;first-msg=0;flags=;id=a74eb158-9732-4e6f-9150-2648cdf3c902;mod=0;returning-chatter=0;room-id=12345678;subscriber=0;tmi-sent-ts=1662882968379;turbo=0;user-id=123456789;user-type= :someone!someone@someone.tmi.twitch.tv PRIVMSG #channel :hello, world!`,
			want: message.Received{
				ID:        "a74eb158-9732-4e6f-9150-2648cdf3c902",
				To:        "#channel",
				RoomID:    "12345678",
				Sender:    "123456789",
				Login:     "someone",
				Name:      "Someone",
				Text:      "hello, world!",
				Timestamp: 1662882968379,
			},
		},
		{
			name: "mod",
			msg:  `@badge-info=;badges=moderator/1;color=#1E90FF;display-name=aMod;emotes=;first-msg=0;flags=;id=2a9bb533-2837-48d0-8aba-032f844c91f6;mod=1;returning-chatter=0;room-id=12345678;subscriber=0;tmi-sent-ts=1662887850257;turbo=0;user-id=87654321;user-type=mod :amod!amod@amod.tmi.twitch.tv PRIVMSG #channel :!setchance 50`,
			want: message.Received{
				ID:          "2a9bb533-2837-48d0-8aba-032f844c91f6",
				To:          "#channel",
				RoomID:      "12345678",
				Sender:      "87654321",
				Login:       "amod",
				Name:        "aMod",
				Text:        "!setchance 50",
				Timestamp:   1662887850257,
				IsModerator: true,
			},
		},
		{
			name: "broadcaster",
			msg:  `@badge-info=;badges=broadcaster/1;color=#0000FF;display-name=Channel;emotes=;first-msg=0;flags=;id=d2129ccd-0763-434c-bd00-7354bfe1a781;mod=0;returning-chatter=0;room-id=12345678;subscriber=0;tmi-sent-ts=1662885432414;turbo=0;user-id=12345678;user-type= :channel!channel@channel.tmi.twitch.tv PRIVMSG #channel :!listcomps`,
			want: message.Received{
				ID:            "d2129ccd-0763-434c-bd00-7354bfe1a781",
				To:            "#channel",
				RoomID:        "12345678",
				Sender:        "12345678",
				Login:         "channel",
				Name:          "Channel",
				Text:          "!listcomps",
				Timestamp:     1662885432414,
				IsBroadcaster: true,
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tm, err := tmi.Parse(strings.NewReader(c.msg + "\r\n"))
			if err != nil && err != io.EOF {
				panic(err)
			}
			msg := message.FromTMI(tm)
			if diff := cmp.Diff(&c.want, msg); diff != "" {
				t.Errorf("wrong message (+got/-want):\n%s", diff)
			}
			if got := msg.Channel(); got != "channel" {
				t.Errorf("wrong channel: want %q, got %q", "channel", got)
			}
		})
	}
}

func TestToTMI(t *testing.T) {
	m := message.ToTMI("", "#channel", "@bocchi you rock")
	if m.Command != "PRIVMSG" || m.To() != "#channel" || m.Trailing != "@bocchi you rock" || m.Tags != "" {
		t.Errorf("wrong message: %#v", m)
	}
	m = message.ToTMI("1234", "#channel", "hi")
	if m.Tags != "reply-parent-msg-id=1234" {
		t.Errorf("wrong reply tags: %q", m.Tags)
	}
}
