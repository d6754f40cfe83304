package chat

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultNicknameRetries is how many times a colliding nickname is suffixed
// with an underscore before a join gives up.
const DefaultNicknameRetries = 10

// Config is the policy of a Service.
type Config struct {
	Sweeper SweeperConfig

	// NicknameRetries bounds the underscore-suffix retry on join. Zero
	// disables the retry so a collision reports AlreadyExists.
	NicknameRetries int
}

// DefaultConfig returns the stock policy.
func DefaultConfig() Config {
	return Config{
		Sweeper:         DefaultSweeperConfig(),
		NicknameRetries: DefaultNicknameRetries,
	}
}

// JoinResult is the outcome of a join. Nickname is the name the user was
// finally added under, which may carry underscore suffixes.
type JoinResult struct {
	Status   Status
	Nickname string
}

// PollMember is one row of the membership listing returned by a poll.
type PollMember struct {
	MemberInfo

	// Self marks the polling user's own row.
	Self bool
}

// PollResult is what a poll reports to the caller.
//
// When Kicked is set, KickComment is the only thing to show and the user is
// gone. When Renamed is set, Nickname is the user's new identity and nothing
// else is filled in.
type PollResult struct {
	Kicked      bool
	KickComment string

	Renamed  bool
	Nickname string

	Entries []Entry
	Members []PollMember
	Topic   string
}

// Service is the chat engine: a registry of rooms, the command processor
// and the sweeper, with an explicit Start/Stop lifecycle.
type Service struct {
	registry  *Registry
	messages  Messages
	processor *Processor
	sweeper   *Sweeper
	retries   int
	clock     func() time.Time
}

// NewService creates a stopped service over registry.
func NewService(registry *Registry, messages Messages, cfg Config, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	if cfg.NicknameRetries < 0 {
		cfg.NicknameRetries = 0
	}
	return &Service{
		registry:  registry,
		messages:  messages,
		processor: NewProcessor(messages, clock),
		sweeper:   NewSweeper(registry, messages, cfg.Sweeper, clock),
		retries:   cfg.NicknameRetries,
		clock:     clock,
	}
}

// Registry returns the rooms served.
func (s *Service) Registry() *Registry { return s.registry }

// Messages returns the template lookup used for notices and replies.
func (s *Service) Messages() Messages { return s.messages }

// Sweeper returns the background sweeper.
func (s *Service) Sweeper() *Sweeper { return s.sweeper }

// Start launches the sweeper.
func (s *Service) Start() {
	s.sweeper.Start()
}

// Stop halts the sweeper, waiting up to timeout.
func (s *Service) Stop(timeout time.Duration) error {
	return s.sweeper.Stop(timeout)
}

// Join adds a user called nickname to roomName. A colliding nickname is
// retried with an underscore appended, up to the configured bound.
func (s *Service) Join(roomName, nickname, ip, host string) JoinResult {
	room, err := s.registry.Lookup(roomName)
	if err != nil {
		joinsTotal.WithLabelValues(InvalidRoom.String()).Inc()
		return JoinResult{Status: InvalidRoom}
	}

	u := NewUser(nickname, ip, host, s.clock)
	if u.nickname == "" {
		joinsTotal.WithLabelValues(InvalidNickname.String()).Inc()
		return JoinResult{Status: InvalidNickname}
	}

	room.lock.Lock()
	defer room.lock.Unlock()

	status := room.addUserUnsafe(u)
	for attempt := 0; status == AlreadyExists && attempt < s.retries; attempt++ {
		u.SetNickname(u.nickname + "_")
		status = room.addUserUnsafe(u)
	}
	if status == AlreadyExists && s.retries > 0 {
		status = AliasExhausted
	}

	joinsTotal.WithLabelValues(status.String()).Inc()
	if status != Added {
		log.WithFields(log.Fields{"room": roomName, "nickname": nickname, "ip": ip, "status": status}).Info("Join rejected")
		return JoinResult{Status: status}
	}

	room.broadcastUnsafe(NewNotification("", s.messages.Format(MsgEnter, u.nickname), s.clock()), "")
	log.WithFields(log.Fields{"room": roomName, "nickname": u.nickname, "ip": ip}).Info("User joined")
	return JoinResult{Status: Added, Nickname: u.nickname}
}

// Submit feeds text from nickname into roomName. Text from a kicked user is
// dropped. An away user is brought back before the text is processed.
func (s *Service) Submit(roomName, nickname, text string) error {
	room, err := s.registry.Lookup(roomName)
	if err != nil {
		return err
	}

	room.lock.Lock()
	defer room.lock.Unlock()

	u, ok := room.members[nickname]
	if !ok {
		return ErrNotMember
	}
	if u.kicked {
		return nil
	}

	if u.away {
		u.SetAway(false)
		comeback := s.messages.Format(MsgComeback, nickname)
		room.broadcastUnsafe(NewNotification("", comeback, s.clock()), "")
		u.RecordSentBytes(comeback)
	}

	s.processor.dispatchUnsafe(text, room, nickname, u)
	return nil
}

// Poll drains nickname's queue in roomName and reports the membership and
// topic. This is where kicked users are removed and where a pending rename
// is completed.
func (s *Service) Poll(roomName, nickname string) PollResult {
	room, err := s.registry.Lookup(roomName)
	if err != nil {
		return PollResult{Kicked: true, KickComment: s.messages.Format(MsgUserKicked)}
	}

	room.lock.Lock()
	defer room.lock.Unlock()

	u, ok := room.members[nickname]
	if !ok {
		return PollResult{Kicked: true, KickComment: s.messages.Format(MsgUserKicked)}
	}

	if u.kicked {
		room.evictUnsafe(u)
		log.WithFields(log.Fields{"room": roomName, "nickname": nickname}).Debug("Kicked user removed on poll")
		return PollResult{Kicked: true, KickComment: u.kickComment}
	}

	if u.renamed {
		room.removeOldNicknameUnsafe(nickname)
		return PollResult{Renamed: true, Nickname: u.nickname}
	}

	res := PollResult{
		Nickname: u.nickname,
		Entries:  u.DrainEntries(),
		Topic:    room.description,
	}
	for _, m := range room.distinctMembersUnsafe() {
		res.Members = append(res.Members, PollMember{MemberInfo: infoOf(m), Self: m == u})
	}
	u.SetLastAccess(s.clock())
	return res
}
