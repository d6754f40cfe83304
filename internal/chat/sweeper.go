package chat

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SweeperConfig holds the policy applied on every sweep.
type SweeperConfig struct {
	// Interval between sweeps.
	Interval time.Duration

	// InactivityTimeout, in seconds, after which a user who hasn't polled
	// is evicted.
	InactivityTimeout int

	// FloodWindow is the trailing window, in seconds, over which sent bytes
	// are summed.
	FloodWindow int

	// FloodMaxBytes is the largest allowed sum within FloodWindow.
	FloodMaxBytes int

	// SupervisorName is shown as the author of flood kicks and bans.
	SupervisorName string

	// SupervisorMessage is the reason given for flood kicks.
	SupervisorMessage string
}

// DefaultSweeperConfig returns the stock policy.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:          time.Second,
		InactivityTimeout: 60,
		FloodWindow:       5,
		FloodMaxBytes:     300,
		SupervisorName:    "ChatSupervisor",
		SupervisorMessage: "Excess flood",
	}
}

// Sweeper periodically evicts inactive users and bans flooders in every
// room of a registry.
type Sweeper struct {
	registry *Registry
	messages Messages
	cfg      SweeperConfig
	clock    func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	started   bool
	mutex     sync.Mutex
}

// NewSweeper creates a stopped sweeper. Call Start to run it.
func NewSweeper(registry *Registry, messages Messages, cfg SweeperConfig, clock func() time.Time) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		registry: registry,
		messages: messages,
		cfg:      cfg,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in a new goroutine. Further calls do nothing.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.mutex.Lock()
		s.started = true
		s.mutex.Unlock()

		go s.run()
		log.WithField("interval", s.cfg.Interval).Info("Sweeper started")
	})
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Stop signals the loop to exit and waits up to timeout for it.
func (s *Sweeper) Stop(timeout time.Duration) error {
	s.cancel()

	s.mutex.Lock()
	started := s.started
	s.mutex.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.done:
		log.Info("Sweeper stopped")
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// Sweep runs one pass over every room.
func (s *Sweeper) Sweep() {
	for _, room := range s.registry.List() {
		s.sweepRoom(room)
	}
}

func (s *Sweeper) sweepRoom(room *Room) {
	room.lock.Lock()
	defer room.lock.Unlock()

	s.evictInactiveUnsafe(room)
	s.banFloodersUnsafe(room)

	roomMembers.WithLabelValues(room.name).Set(float64(len(room.distinctMembersUnsafe())))
}

func (s *Sweeper) notify(room *Room, text string) {
	room.broadcastUnsafe(NewNotification("", text, s.clock()), "")
}

func (s *Sweeper) evictInactiveUnsafe(room *Room) {
	now := s.clock()
	limit := time.Duration(s.cfg.InactivityTimeout) * time.Second

	for _, u := range room.distinctMembersUnsafe() {
		if now.Sub(u.lastAccess) <= limit {
			continue
		}
		room.evictUnsafe(u)
		s.notify(room, s.messages.Format(MsgQuit, u.nickname, "", ""))
		sweeperEvictions.Inc()
		log.WithFields(log.Fields{"room": room.name, "nickname": u.nickname}).Info("Evicted inactive user")
	}
}

func (s *Sweeper) banFloodersUnsafe(room *Room) {
	bot, reason := s.cfg.SupervisorName, s.cfg.SupervisorMessage
	limit := s.clock().Add(-time.Duration(s.cfg.FloodWindow) * time.Second)

	for _, u := range room.distinctMembersUnsafe() {
		if !u.kicked && u.SentBytesSince(s.cfg.FloodWindow) > s.cfg.FloodMaxBytes {
			nick := u.nickname
			u.Kick(s.messages.Format(MsgKicked, bot, nick, reason))
			s.notify(room, s.messages.Format(MsgKick, bot, nick, reason))
			room.banUnsafe(u, s.messages.Format(MsgBanned))
			s.notify(room, s.messages.Format(MsgBan, bot, nick, ""))
			sweeperFloodBans.Inc()
		}
		u.pruneSentBefore(limit)
	}
}
