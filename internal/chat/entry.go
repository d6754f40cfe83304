// Package chat implements the room/user state machine, the slash-command
// protocol, per-user bounded entry queues and the background sweeper.
package chat

import "time"

// EntryKind distinguishes chat lines from system notifications.
type EntryKind int

const (
	// KindMessage is a chat line typed by a user.
	KindMessage EntryKind = iota
	// KindNotification is a system notice or a /ME action.
	KindNotification
)

// Entry is one delivered chat line or notification. Entries are values and
// are copied into every recipient queue.
type Entry struct {
	// Author is the nickname of the sender. Empty for system notices.
	Author string

	// Text is the message body, already formatted.
	Text string

	Kind EntryKind

	// Time is when the entry was created.
	Time time.Time
}

// NewMessage creates a chat line from author.
func NewMessage(author, text string, at time.Time) Entry {
	return Entry{Author: author, Text: text, Kind: KindMessage, Time: at}
}

// NewNotification creates a notification. author may be empty.
func NewNotification(author, text string, at time.Time) Entry {
	return Entry{Author: author, Text: text, Kind: KindNotification, Time: at}
}
