// Package server encodes chat replies as tagged text frames.
package server

import (
	"strings"

	"github.com/Tyrowin/roomchat/internal/chat"
)

const frameSeparator = "\nend\n"

// Frame tags.
const (
	tagAddUser    = "ADD USER:"
	tagAddMessage = "ADD MESSAGE:"
	tagSetTopic   = "SET TOPIC:"
	tagNewPseudo  = "NEW PSEUDO:"
	tagKick       = "KICK:"
)

func writeFrame(b *strings.Builder, tag, payload string) {
	b.WriteString(tag)
	b.WriteString(payload)
	b.WriteString(frameSeparator)
}

func frame(tag, payload string) string {
	var b strings.Builder
	writeFrame(&b, tag, payload)
	return b.String()
}

// entryPayload renders chat lines as "<author> text" and notifications as
// their bare text.
func entryPayload(e chat.Entry) string {
	if e.Kind == chat.KindMessage {
		return "<" + e.Author + "> " + e.Text
	}
	return e.Text
}

// memberPayload renders a membership row such as "@alice*" or
// "+bob (absent:lunch)".
func memberPayload(m chat.PollMember) string {
	var b strings.Builder
	b.WriteString(m.Mode.Prefix())
	b.WriteString(m.Nickname)
	if m.Self {
		b.WriteString("*")
	}
	if m.Away {
		if m.HasAwayComment {
			b.WriteString(" (absent:" + m.AwayComment + ")")
		} else {
			b.WriteString(" (absent)")
		}
	}
	return b.String()
}

// encodeEntries renders entries as ADD MESSAGE frames.
func encodeEntries(entries []chat.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		writeFrame(&b, tagAddMessage, entryPayload(e))
	}
	return b.String()
}

// encodePoll renders a poll result.
func encodePoll(res chat.PollResult) string {
	if res.Kicked {
		return frame(tagKick, res.KickComment)
	}
	if res.Renamed {
		return frame(tagNewPseudo, res.Nickname)
	}

	var b strings.Builder
	b.WriteString(encodeEntries(res.Entries))
	for _, m := range res.Members {
		writeFrame(&b, tagAddUser, memberPayload(m))
	}
	writeFrame(&b, tagSetTopic, res.Topic)
	return b.String()
}

// encodeJoin renders the reply to a join attempt.
func encodeJoin(messages chat.Messages, status chat.Status) string {
	switch status {
	case chat.Added:
		return frame(tagAddMessage, messages.Format(chat.MsgConnectionEstablished))
	case chat.InvalidRoom:
		return frame(tagKick, messages.Format(chat.MsgInvalidRoom))
	case chat.Banned:
		return frame(tagKick, messages.Format(chat.MsgUserBanned))
	case chat.AlreadyExists:
		return frame(tagKick, messages.Format(chat.MsgUserAlreadyExists))
	case chat.AliasExhausted:
		return frame(tagKick, messages.Format(chat.MsgAliasExhausted))
	default:
		return messages.Format(chat.MsgConnectionFailed)
	}
}
