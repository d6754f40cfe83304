package chat

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeMessages renders a template as its name followed by every argument,
// separated by pipes, so tests can assert on exact notice text.
type fakeMessages struct{}

func (fakeMessages) Format(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), "|")
}

// fakeClock is a settable clock shared by users, rooms and the sweeper.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestService builds a service over a single "Lobby" room whose admin
// password is "chatadmin".
func newTestService(t *testing.T, cfg Config) (*Service, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	reg, err := NewRegistry([]RoomDefinition{{Name: "Lobby", Description: "Welcome", AdminPassword: "chatadmin"}}, clock.Now)
	if err != nil {
		t.Fatalf("NewRegistry() returned error: %v", err)
	}
	return NewService(reg, fakeMessages{}, cfg, clock.Now), clock
}

func lobby(t *testing.T, svc *Service) *Room {
	t.Helper()
	room, err := svc.Registry().Lookup("Lobby")
	if err != nil {
		t.Fatalf("Lookup(Lobby) returned error: %v", err)
	}
	return room
}

func mustJoin(t *testing.T, svc *Service, nickname, ip string) {
	t.Helper()
	if res := svc.Join("Lobby", nickname, ip, "host-"+ip); res.Status != Added {
		t.Fatalf("Expected %s to join, got %s", nickname, res.Status)
	}
}

// mustOp joins nickname and promotes it to operator.
func mustOp(t *testing.T, svc *Service, nickname, ip string) {
	t.Helper()
	mustJoin(t, svc, nickname, ip)
	if err := svc.Submit("Lobby", nickname, "/OP chatadmin"); err != nil {
		t.Fatalf("Submit(/OP) returned error: %v", err)
	}
}

// pending returns the texts queued for nickname without draining them.
func pending(t *testing.T, room *Room, nickname string) []string {
	t.Helper()
	room.lock.Lock()
	defer room.lock.Unlock()
	u, ok := room.members[nickname]
	if !ok {
		t.Fatalf("%s is not a member", nickname)
	}
	var texts []string
	for _, e := range u.PendingEntries() {
		texts = append(texts, e.Text)
	}
	return texts
}

// clearQueues empties every member's queue.
func clearQueues(room *Room) {
	room.lock.Lock()
	defer room.lock.Unlock()
	for _, u := range room.members {
		u.DrainEntries()
	}
}

func contains(texts []string, want string) bool {
	for _, text := range texts {
		if text == want {
			return true
		}
	}
	return false
}

func count(texts []string, want string) int {
	n := 0
	for _, text := range texts {
		if text == want {
			n++
		}
	}
	return n
}
