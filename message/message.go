// Package message defines chat messages received and sent by the bot.
package message

import "strings"

// Received is a chat message received from Twitch.
type Received struct {
	// ID is the unique ID of the message.
	ID string
	// To is the channel to which the message was sent, including the leading #.
	To string
	// RoomID is the user ID of the owner of the channel.
	RoomID string
	// Sender is the user ID of the message sender.
	Sender string
	// Login is the sender's login name.
	Login string
	// Name is the display name of the message sender.
	Name string
	// Text is the text of the message.
	Text string
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// IsBroadcaster indicates whether the sender owns the channel.
	IsBroadcaster bool
	// IsModerator indicates whether the sender can moderate the channel.
	// It does not include the broadcaster.
	IsModerator bool
}

// Channel returns the login of the channel owner.
func (m *Received) Channel() string {
	return strings.TrimPrefix(m.To, "#")
}

// Sent is a message to be sent to a channel.
type Sent struct {
	// Reply is a message to reply to. If empty, the message is not interpreted
	// as a reply.
	Reply string
	// To is the channel to which the message is sent.
	To string
	// Text is the message text.
	Text string
}

// Command splits a chat message into a command name and its argument text if
// it begins with prefix. The name is lowercased. The argument text is
// everything after the first space following the name.
func Command(text, prefix string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	text = text[len(prefix):]
	name, args, _ = strings.Cut(text, " ")
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), args, true
}
