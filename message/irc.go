package message

import (
	"strconv"
	"strings"

	"gitlab.com/zephyrtronium/tmi"
)

// FromTMI adapts a TMI IRC message.
func FromTMI(m *tmi.Message) *Received {
	id, _ := m.Tag("id")
	room, _ := m.Tag("room-id")
	sender, _ := m.Tag("user-id")
	ts, _ := m.Tag("tmi-sent-ts")
	u, _ := strconv.ParseInt(ts, 10, 64)
	r := Received{
		ID:            id,
		To:            m.To(),
		RoomID:        room,
		Sender:        sender,
		Login:         m.Nick,
		Name:          m.DisplayName(),
		Text:          m.Trailing,
		Timestamp:     u,
		IsBroadcaster: broadcaster(m),
	}
	r.IsModerator = !r.IsBroadcaster && moderator(m)
	return &r
}

func broadcaster(m *tmi.Message) bool {
	// The broadcaster gets mod=0, but their nick is equal to the channel
	// name and their user ID to the room ID.
	if to := m.To(); len(to) > 1 && to[0] == '#' && to[1:] == m.Nick {
		return true
	}
	room, _ := m.Tag("room-id")
	user, _ := m.Tag("user-id")
	if room != "" && room == user {
		return true
	}
	badges, _ := m.Tag("badges")
	return strings.Contains(","+badges, ",broadcaster/")
}

func moderator(m *tmi.Message) bool {
	t, _ := m.Tag("mod")
	return t == "1"
}

// ToTMI creates a message to send to TMI. If reply is not empty, then the
// result is a reply to the message with that ID.
func ToTMI(reply, to, text string) *tmi.Message {
	r := tmi.Privmsg(to, text)
	if reply != "" {
		r.Tags = "reply-parent-msg-id=" + reply
	}
	return r
}
