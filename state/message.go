package state

import "time"

// Message is built fresh for every payload and is immutable afterwards;
// message ids are never upserted because edits arrive as their own update
// path, not as a rebuild of the same id.
type Message struct {
	id               string
	author           *User
	content          string
	time             time.Time
	editedTime       time.Time
	mentionsEveryone bool
	tts              bool
	channel          *TextChannel
	mentionedUsers   []*User
}

func (m *Message) Id() string {
	return m.id
}

func (m *Message) Author() *User {
	return m.author
}

func (m *Message) Content() string {
	return m.content
}

func (m *Message) Time() time.Time {
	return m.time
}

// EditedTime reports when the message was last edited, false when never.
func (m *Message) EditedTime() (time.Time, bool) {
	if m.editedTime.IsZero() {
		return time.Time{}, false
	}
	return m.editedTime, true
}

func (m *Message) IsEdited() bool {
	return !m.editedTime.IsZero()
}

func (m *Message) MentionsEveryone() bool {
	return m.mentionsEveryone
}

// TTS reports whether the message was sent as text-to-speech.
func (m *Message) TTS() bool {
	return m.tts
}

// Channel is the text channel the message was posted in, nil when no known
// guild owns the channel id yet.
func (m *Message) Channel() *TextChannel {
	return m.channel
}

// MentionedUsers is in payload order.
func (m *Message) MentionedUsers() []*User {
	out := make([]*User, len(m.mentionedUsers))
	copy(out, m.mentionedUsers)
	return out
}
