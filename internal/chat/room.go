package chat

import (
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultRoomLogSize bounds the room-wide log when a definition sets none.
const DefaultRoomLogSize = 100

// DisplayAttributes are opaque presentation settings carried for the
// listing UI. The core never interprets them.
type DisplayAttributes struct {
	BgColor       string `json:"bgcolor"`
	ButtonBgColor string `json:"btbgcolor"`
	ButtonFgColor string `json:"btfgcolor"`
	FieldBgColor  string `json:"fdbgcolor"`
}

// MemberInfo is a point-in-time copy of a user's state, safe to use outside
// the room's lock.
type MemberInfo struct {
	Nickname       string
	IP             string
	Host           string
	Mode           Mode
	Away           bool
	AwayComment    string
	HasAwayComment bool
	Kicked         bool
	KickComment    string
	Renamed        bool
	JoinTime       time.Time
	LastAccess     time.Time
	Pending        int
}

func infoOf(u *User) MemberInfo {
	away, comment, hasComment := u.Away()
	return MemberInfo{
		Nickname:       u.nickname,
		IP:             u.ip,
		Host:           u.host,
		Mode:           u.mode,
		Away:           away,
		AwayComment:    comment,
		HasAwayComment: hasComment,
		Kicked:         u.kicked,
		KickComment:    u.kickComment,
		Renamed:        u.renamed,
		JoinTime:       u.joined,
		LastAccess:     u.lastAccess,
		Pending:        u.entries.len(),
	}
}

// Room is a named chat space. Its member table, ban table and the state of
// every member are guarded by a single mutex.
type Room struct {
	// name is the registry key.
	name string

	// description doubles as the room topic.
	description string

	adminPassword string

	display DisplayAttributes

	// lock guards every field below as well as the Users they point to.
	lock sync.Mutex

	// members maps nickname to user. While a rename is pending, both the
	// old and the new nickname point at the same User.
	members map[string]*User

	// banned maps IP address to the user that was banned from it.
	banned map[string]*User

	// log keeps the most recent public broadcasts.
	log     []Entry
	logSize int

	clock func() time.Time
}

// NewRoom creates an empty room from its definition.
func NewRoom(def RoomDefinition, clock func() time.Time) *Room {
	if clock == nil {
		clock = time.Now
	}
	logSize := def.LogSize
	if logSize <= 0 {
		logSize = DefaultRoomLogSize
	}
	return &Room{
		name:          def.Name,
		description:   def.Description,
		adminPassword: def.AdminPassword,
		display:       def.Display,
		members:       make(map[string]*User),
		banned:        make(map[string]*User),
		logSize:       logSize,
		clock:         clock,
	}
}

func (r *Room) Name() string { return r.name }

// Description returns the room's topic.
func (r *Room) Description() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.description
}

// SetTopic replaces the room's description.
func (r *Room) SetTopic(text string) {
	r.lock.Lock()
	r.description = text
	r.lock.Unlock()
}

func (r *Room) AdminPassword() string { return r.adminPassword }

func (r *Room) Display() DisplayAttributes { return r.display }

// checkAdminPassword compares case-insensitively.
func (r *Room) checkAdminPassword(candidate string) bool {
	return strings.EqualFold(candidate, r.adminPassword)
}

// AddUser inserts u into the member table. The nickname collision is tested
// before the ban table, so a banned IP colliding on nickname reports
// AlreadyExists.
func (r *Room) AddUser(u *User) Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.addUserUnsafe(u)
}

func (r *Room) addUserUnsafe(u *User) Status {
	if _, ok := r.members[u.nickname]; ok {
		return AlreadyExists
	}
	if _, ok := r.banned[u.ip]; ok {
		return Banned
	}
	r.members[u.nickname] = u
	return Added
}

// ChangeNickname renames the member known as oldNick and re-runs the AddUser
// checks under the new name. On failure the user keeps the attempted name
// but stays keyed under oldNick. Renaming again before the pending rename is
// polled replaces the pending nickname; if that second attempt fails, the
// pending nickname is kept.
func (r *Room) ChangeNickname(oldNick, newNick string) Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.changeNicknameUnsafe(oldNick, newNick)
}

func (r *Room) changeNicknameUnsafe(oldNick, newNick string) Status {
	u, ok := r.members[oldNick]
	if !ok {
		return NotMember
	}
	pending := ""
	if u.renamed {
		pending = u.nickname
	}

	u.SetNickname(newNick)
	status := r.addUserUnsafe(u)
	if status != Added {
		if pending != "" {
			u.nickname = pending
		}
		return status
	}

	if pending != "" && pending != oldNick && r.members[pending] == u {
		delete(r.members, pending)
	}
	u.SetRenamed(true)
	return Added
}

// removeOldNicknameUnsafe finishes a rename once the original session has
// been told about it.
func (r *Room) removeOldNicknameUnsafe(oldNick string) {
	if u, ok := r.members[oldNick]; ok {
		u.SetRenamed(false)
	}
	delete(r.members, oldNick)
}

// RemoveUser deletes nickname from the member table. Absent names are
// ignored.
func (r *Room) RemoveUser(nickname string) {
	r.lock.Lock()
	r.removeUserUnsafe(nickname)
	r.lock.Unlock()
}

func (r *Room) removeUserUnsafe(nickname string) {
	delete(r.members, nickname)
}

// evictUnsafe deletes every key pointing at u.
func (r *Room) evictUnsafe(u *User) {
	for k, v := range r.members {
		if v == u {
			delete(r.members, k)
		}
	}
}

// BanUser records the member's IP in the ban table and marks the member
// kicked. The member stays in the member table until their next poll.
func (r *Room) BanUser(nickname, comment string) {
	r.lock.Lock()
	r.banUserUnsafe(nickname, comment)
	r.lock.Unlock()
}

func (r *Room) banUserUnsafe(nickname, comment string) {
	u, ok := r.members[nickname]
	if !ok {
		return
	}
	r.banUnsafe(u, comment)
}

func (r *Room) banUnsafe(u *User, comment string) {
	r.banned[u.ip] = u
	u.Kick(comment)
	log.WithFields(log.Fields{"room": r.name, "nickname": u.nickname, "ip": u.ip}).Info("User banned")
}

// UnbanUser deletes the ban record for ip, if any.
func (r *Room) UnbanUser(ip string) {
	r.lock.Lock()
	r.unbanUserUnsafe(ip)
	r.lock.Unlock()
}

func (r *Room) unbanUserUnsafe(ip string) {
	delete(r.banned, ip)
}

// Broadcast appends e to every member's queue when recipient is empty, or
// only to recipient's queue otherwise.
func (r *Room) Broadcast(e Entry, recipient string) {
	r.lock.Lock()
	r.broadcastUnsafe(e, recipient)
	r.lock.Unlock()
}

func (r *Room) broadcastUnsafe(e Entry, recipient string) {
	if recipient != "" {
		if u, ok := r.members[recipient]; ok {
			r.deliverUnsafe(u, e)
		}
		return
	}

	users := r.distinctMembersUnsafe()
	for _, u := range users {
		u.RecordEntry(e)
	}
	entriesDelivered.Add(float64(len(users)))

	r.log = append(r.log, e)
	if len(r.log) > r.logSize {
		r.log = append(r.log[:0:0], r.log[len(r.log)-r.logSize:]...)
	}
}

// deliverUnsafe appends e to a single user's queue.
func (r *Room) deliverUnsafe(u *User, e Entry) {
	u.RecordEntry(e)
	entriesDelivered.Inc()
}

// distinctMembersUnsafe lists each member once, ordered by join time then
// nickname.
func (r *Room) distinctMembersUnsafe() []*User {
	seen := make(map[*User]struct{}, len(r.members))
	users := make([]*User, 0, len(r.members))
	for _, u := range r.members {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		users = append(users, u)
	}
	sortUsers(users)
	return users
}

func sortUsers(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].joined.Equal(users[j].joined) {
			return users[i].joined.Before(users[j].joined)
		}
		return users[i].nickname < users[j].nickname
	})
}

// Members returns a snapshot of every member.
func (r *Room) Members() []MemberInfo {
	r.lock.Lock()
	defer r.lock.Unlock()

	users := r.distinctMembersUnsafe()
	out := make([]MemberInfo, 0, len(users))
	for _, u := range users {
		out = append(out, infoOf(u))
	}
	return out
}

// Member returns a snapshot of the user keyed by nickname.
func (r *Room) Member(nickname string) (MemberInfo, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	u, ok := r.members[nickname]
	if !ok {
		return MemberInfo{}, false
	}
	return infoOf(u), true
}

// BannedUsers returns a snapshot of every ban record, ordered by IP.
func (r *Room) BannedUsers() []MemberInfo {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.bannedUsersUnsafe()
}

func (r *Room) bannedUsersUnsafe() []MemberInfo {
	ips := make([]string, 0, len(r.banned))
	for ip := range r.banned {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	out := make([]MemberInfo, 0, len(ips))
	for _, ip := range ips {
		out = append(out, infoOf(r.banned[ip]))
	}
	return out
}

// IsBanned reports whether ip has a ban record.
func (r *Room) IsBanned(ip string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, ok := r.banned[ip]
	return ok
}

// UserCount returns the number of distinct members.
func (r *Room) UserCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.distinctMembersUnsafe())
}

// Log returns the most recent public broadcasts, oldest first.
func (r *Room) Log() []Entry {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Entry(nil), r.log...)
}
