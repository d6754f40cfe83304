package chat

import (
	"strings"
	"time"
)

// MaxQueuedEntries is how many pending entries a user keeps. Older entries
// are dropped when a user polls less often than entries arrive.
const MaxQueuedEntries = 20

// sentDataOverhead is added to every ledger sample so that floods of very
// short lines still accumulate cost.
const sentDataOverhead = 50

// Mode is a user's privilege tier.
type Mode int

const (
	ModeNormal Mode = iota
	ModeVoice
	ModeOperator
)

// Prefix returns the marker shown before a nickname in membership listings.
func (m Mode) Prefix() string {
	switch m {
	case ModeOperator:
		return "@"
	case ModeVoice:
		return "+"
	default:
		return ""
	}
}

func (m Mode) String() string {
	switch m {
	case ModeOperator:
		return "operator"
	case ModeVoice:
		return "voice"
	default:
		return "normal"
	}
}

// entryRing is a fixed-capacity FIFO of entries. Pushing onto a full ring
// overwrites the oldest entry.
type entryRing struct {
	buf   [MaxQueuedEntries]Entry
	start int
	size  int
}

func (r *entryRing) push(e Entry) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *entryRing) len() int {
	return r.size
}

// snapshot returns the entries in arrival order without consuming them.
func (r *entryRing) snapshot() []Entry {
	out := make([]Entry, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

// drain returns the entries in arrival order and empties the ring.
func (r *entryRing) drain() []Entry {
	out := r.snapshot()
	r.buf = [MaxQueuedEntries]Entry{}
	r.start = 0
	r.size = 0
	return out
}

// sentSample is one flood ledger record.
type sentSample struct {
	at   time.Time
	cost int
}

// User is a participant of one room.
//
// A User is owned by its Room: every method that mutates it must be called
// while holding the owning room's lock.
type User struct {
	nickname string
	ip       string
	host     string

	joined     time.Time
	lastAccess time.Time

	mode Mode

	away           bool
	awayComment    string
	hasAwayComment bool

	kicked      bool
	kickComment string

	// renamed is set after a successful /NICK so the next poll can tell the
	// original session about its new identity.
	renamed bool

	entries entryRing
	sent    []sentSample

	clock func() time.Time
}

// NewUser creates a user joining now. Spaces in nickname become underscores.
func NewUser(nickname, ip, host string, clock func() time.Time) *User {
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	u := &User{
		ip:         ip,
		host:       host,
		joined:     now,
		lastAccess: now,
		mode:       ModeNormal,
		clock:      clock,
	}
	u.SetNickname(nickname)
	return u
}

// normalizeNickname replaces spaces with underscores.
func normalizeNickname(raw string) string {
	return strings.ReplaceAll(raw, " ", "_")
}

// SetNickname stores raw with spaces replaced by underscores.
func (u *User) SetNickname(raw string) {
	u.nickname = normalizeNickname(raw)
}

func (u *User) Nickname() string { return u.nickname }
func (u *User) IP() string       { return u.ip }
func (u *User) Host() string     { return u.host }

// JoinTime returns when the user entered the room.
func (u *User) JoinTime() time.Time { return u.joined }

// LastAccess returns the time of the user's last poll.
func (u *User) LastAccess() time.Time { return u.lastAccess }

func (u *User) SetLastAccess(t time.Time) { u.lastAccess = t }

func (u *User) Mode() Mode        { return u.mode }
func (u *User) SetMode(mode Mode) { u.mode = mode }

// SetAway marks the user away (or back) and clears any away comment.
func (u *User) SetAway(away bool) {
	u.away = away
	u.awayComment = ""
	u.hasAwayComment = false
}

// SetAwayComment marks the user away with a comment.
func (u *User) SetAwayComment(comment string) {
	u.away = true
	u.awayComment = comment
	u.hasAwayComment = true
}

// Away reports the away flag, the comment and whether a comment was given.
func (u *User) Away() (away bool, comment string, hasComment bool) {
	return u.away, u.awayComment, u.hasAwayComment
}

// Kick marks the user for removal on their next poll. The last comment wins.
func (u *User) Kick(comment string) {
	u.kicked = true
	u.kickComment = comment
}

func (u *User) Kicked() bool        { return u.kicked }
func (u *User) KickComment() string { return u.kickComment }

func (u *User) Renamed() bool         { return u.renamed }
func (u *User) SetRenamed(value bool) { u.renamed = value }

// RecordEntry appends e to the user's queue, evicting the oldest entry once
// MaxQueuedEntries is exceeded.
func (u *User) RecordEntry(e Entry) {
	u.entries.push(e)
}

// PendingEntries returns the queued entries without consuming them.
func (u *User) PendingEntries() []Entry {
	return u.entries.snapshot()
}

// PendingCount returns how many entries are queued.
func (u *User) PendingCount() int {
	return u.entries.len()
}

// DrainEntries returns the queued entries in arrival order and empties the
// queue.
func (u *User) DrainEntries() []Entry {
	return u.entries.drain()
}

// RecordSentBytes adds a ledger sample costing len(text)+50.
func (u *User) RecordSentBytes(text string) {
	u.sent = append(u.sent, sentSample{at: u.clock(), cost: len(text) + sentDataOverhead})
}

// SentBytesSince sums the cost of the samples newer than now-seconds.
func (u *User) SentBytesSince(seconds int) int {
	limit := u.clock().Add(-time.Duration(seconds) * time.Second)
	total := 0
	for _, s := range u.sent {
		if s.at.After(limit) {
			total += s.cost
		}
	}
	return total
}

// pruneSentBefore drops ledger samples that are not newer than limit.
// Samples are appended in time order, so the kept ones form a suffix.
func (u *User) pruneSentBefore(limit time.Time) {
	i := 0
	for i < len(u.sent) && !u.sent[i].at.After(limit) {
		i++
	}
	if i == 0 {
		return
	}
	u.sent = append(u.sent[:0:0], u.sent[i:]...)
}
