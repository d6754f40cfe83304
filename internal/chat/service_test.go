package chat

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestJoinScenario tests the basic join flow with retries disabled.
func TestJoinScenario(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	first := svc.Join("Lobby", "Bob", "10.0.0.1", "h")
	if first.Status != Added || first.Nickname != "Bob" {
		t.Errorf("Expected Bob %s, got %+v", Added, first)
	}
	second := svc.Join("Lobby", "Bob", "10.0.0.2", "h")
	if second.Status != AlreadyExists {
		t.Errorf("Expected %s, got %s", AlreadyExists, second.Status)
	}
}

// TestJoinInvalidRoom tests missing and unknown rooms.
func TestJoinInvalidRoom(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	for _, name := range []string{"", "Nowhere"} {
		if res := svc.Join(name, "Bob", "10.0.0.1", "h"); res.Status != InvalidRoom {
			t.Errorf("Expected %s for %q, got %s", InvalidRoom, name, res.Status)
		}
	}
}

// TestJoinEmptyNickname tests that an empty nickname never becomes a member.
func TestJoinEmptyNickname(t *testing.T) {
	svc, _ := newTestService(t, Config{NicknameRetries: 2})

	res := svc.Join("Lobby", "", "10.0.0.1", "h")
	if res.Status != InvalidNickname || res.Nickname != "" {
		t.Errorf("Expected %s, got %s %q", InvalidNickname, res.Status, res.Nickname)
	}
	if _, ok := lobby(t, svc).Member(""); ok {
		t.Error("Expected no member keyed by an empty nickname")
	}
	if count := lobby(t, svc).UserCount(); count != 0 {
		t.Errorf("Expected 0 members, got %d", count)
	}

	if res := svc.Join("", "", "10.0.0.1", "h"); res.Status != InvalidRoom {
		t.Errorf("Expected the room to be checked first, got %s", res.Status)
	}
}

// TestJoinRetriesWithSuffix tests the bounded underscore retry.
func TestJoinRetriesWithSuffix(t *testing.T) {
	svc, _ := newTestService(t, Config{NicknameRetries: 2})

	expected := []struct {
		status   Status
		nickname string
	}{
		{Added, "Bob"},
		{Added, "Bob_"},
		{Added, "Bob__"},
		{AliasExhausted, ""},
	}

	for i, want := range expected {
		res := svc.Join("Lobby", "Bob", fmt.Sprintf("10.0.0.%d", i), "h")
		if res.Status != want.status || res.Nickname != want.nickname {
			t.Errorf("Join %d: expected %s %q, got %s %q", i, want.status, want.nickname, res.Status, res.Nickname)
		}
	}
}

// TestJoinBroadcastsEnterNotice tests that members see newcomers under their
// final nickname.
func TestJoinBroadcastsEnterNotice(t *testing.T) {
	svc, _ := newTestService(t, Config{NicknameRetries: 1})
	mustJoin(t, svc, "Bob", "10.0.0.1")
	mustJoin(t, svc, "Bob", "10.0.0.2")

	texts := pending(t, lobby(t, svc), "Bob")
	if len(texts) != 2 || texts[0] != "enter|Bob" || texts[1] != "enter|Bob_" {
		t.Errorf("Expected [enter|Bob enter|Bob_], got %v", texts)
	}
}

// TestConcurrentJoinUnique tests that concurrent joins with the same
// nickname admit exactly one user.
func TestConcurrentJoinUnique(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	const workers = 30
	var added int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := svc.Join("Lobby", "Bob", fmt.Sprintf("10.0.1.%d", i), "h")
			if res.Status == Added {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("Expected exactly 1 join to succeed, got %d", added)
	}
}

// TestSubmitErrors tests the errors reported for unknown rooms and users.
func TestSubmitErrors(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	if err := svc.Submit("Nowhere", "Bob", "hi"); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("Expected ErrInvalidRoom, got %v", err)
	}
	if err := svc.Submit("Lobby", "Bob", "hi"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}

// TestPollUnknownUser tests that unknown pollers are told they were kicked.
func TestPollUnknownUser(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	for _, room := range []string{"Lobby", "Nowhere"} {
		res := svc.Poll(room, "Ghost")
		if !res.Kicked || res.KickComment != "user.kicked" {
			t.Errorf("Expected user.kicked for %s, got %+v", room, res)
		}
	}
}

// TestPollReportsState tests the regular poll result.
func TestPollReportsState(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	mustOp(t, svc, "Alice", "10.0.0.1")
	clock.Advance(time.Second)
	mustJoin(t, svc, "Bob", "10.0.0.2")
	svc.Submit("Lobby", "Bob", "/AWAY")

	clock.Advance(10 * time.Second)
	res := svc.Poll("Lobby", "Bob")

	if res.Kicked || res.Renamed {
		t.Fatalf("Expected a regular poll, got %+v", res)
	}
	if res.Topic != "Welcome" {
		t.Errorf("Expected topic Welcome, got %q", res.Topic)
	}
	if len(res.Entries) != 2 || res.Entries[0].Text != "enter|Bob" || res.Entries[1].Text != "away|Bob||" {
		t.Errorf("Expected enter and away notices, got %v", res.Entries)
	}
	if len(res.Members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(res.Members))
	}
	alice, bob := res.Members[0], res.Members[1]
	if alice.Nickname != "Alice" || alice.Mode != ModeOperator || alice.Self {
		t.Errorf("Unexpected row for Alice: %+v", alice)
	}
	if bob.Nickname != "Bob" || !bob.Self || !bob.Away || bob.HasAwayComment {
		t.Errorf("Unexpected row for Bob: %+v", bob)
	}

	info, _ := lobby(t, svc).Member("Bob")
	if !info.LastAccess.Equal(clock.Now()) {
		t.Errorf("Expected last access %v, got %v", clock.Now(), info.LastAccess)
	}
	if again := svc.Poll("Lobby", "Bob"); len(again.Entries) != 0 {
		t.Errorf("Expected the queue to be drained, got %v", again.Entries)
	}
}
