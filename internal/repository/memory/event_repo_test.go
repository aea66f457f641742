package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventroster/internal/domain"
)

func newTestEvent(id string) *domain.Event {
	return &domain.Event{
		ID:          id,
		CommunityID: "guild-1",
		ChannelRef:  "chan-1",
		Name:        "weekly raid",
		Roles:       []domain.RoleSlot{{Role: "Tank", Capacity: 2}, {Role: "DPS", Capacity: 5}},
		Roster:      map[string][]string{"Tank": {}, "DPS": {}},
		StartTime:   time.Now().UTC().Add(time.Hour),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestAddParticipantConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository()
	if err := repo.Create(ctx, newTestEvent("ev-1")); err != nil {
		t.Fatal(err)
	}

	const workers = 50
	var wg sync.WaitGroup
	successes := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pid := fmt.Sprintf("user-%d", n)
			if _, err := repo.AddParticipant(ctx, "ev-1", "Tank", pid, time.Now()); err == nil {
				successes <- pid
			} else if !errors.Is(err, domain.ErrRoleFull) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	var joined int
	for range successes {
		joined++
	}
	if joined != 2 {
		t.Fatalf("joined = %d, want 2 (role capacity)", joined)
	}

	event, err := repo.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(event.Roster["Tank"]); got != 2 {
		t.Fatalf("roster size = %d, want 2", got)
	}
}

func TestAddParticipantConcurrentSingleClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository()
	if err := repo.Create(ctx, newTestEvent("ev-1")); err != nil {
		t.Fatal(err)
	}

	// The same participant racing to claim two different roles must win at
	// most one of them.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins int
	for _, role := range []string{"Tank", "DPS"} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(role string) {
				defer wg.Done()
				if _, err := repo.AddParticipant(ctx, "ev-1", role, "dave", time.Now()); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else if !errors.Is(err, domain.ErrAlreadyRegistered) {
					t.Errorf("unexpected error: %v", err)
				}
			}(role)
		}
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	event, err := repo.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatal(err)
	}
	total := len(event.Roster["Tank"]) + len(event.Roster["DPS"])
	if total != 1 {
		t.Fatalf("participant appears %d times across rosters, want 1", total)
	}
}

func TestRemoveParticipantPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository()
	if err := repo.Create(ctx, newTestEvent("ev-1")); err != nil {
		t.Fatal(err)
	}
	for _, pid := range []string{"a", "b", "c"} {
		if _, err := repo.AddParticipant(ctx, "ev-1", "DPS", pid, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := repo.RemoveParticipant(ctx, "ev-1", "DPS", "b"); err != nil {
		t.Fatal(err)
	}
	event, err := repo.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatal(err)
	}
	got := event.Roster["DPS"]
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("roster = %v, want [a c]", got)
	}

	if _, err := repo.RemoveParticipant(ctx, "ev-1", "DPS", "b"); !errors.Is(err, domain.ErrNotRegistered) {
		t.Fatalf("second remove error = %v, want ErrNotRegistered", err)
	}
}

func TestMarkReminderSentOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository()
	if err := repo.Create(ctx, newTestEvent("ev-1")); err != nil {
		t.Fatal(err)
	}

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var transitions int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := repo.MarkReminderSent(ctx, "ev-1")
			if err != nil {
				t.Errorf("mark: %v", err)
				return
			}
			if marked {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Fatalf("transitions = %d, want exactly 1", transitions)
	}
}

func TestListDueForReminderWindow(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository()
	now := time.Now().UTC()

	cases := []struct {
		id    string
		start time.Time
		sent  bool
		due   bool
	}{
		{"inside", now.Add(10 * time.Minute), false, true},
		{"at-cutoff", now.Add(30 * time.Minute), false, true},
		{"beyond", now.Add(31 * time.Minute), false, false},
		{"past", now.Add(-time.Minute), false, false},
		{"starting-now", now, false, false},
		{"already-sent", now.Add(10 * time.Minute), true, false},
	}
	for _, c := range cases {
		e := newTestEvent(c.id)
		e.StartTime = c.start
		e.ReminderSent = c.sent
		if err := repo.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	due, err := repo.ListDueForReminder(ctx, now, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool, len(due))
	for _, e := range due {
		got[e.ID] = true
	}
	for _, c := range cases {
		if got[c.id] != c.due {
			t.Errorf("event %q due = %v, want %v", c.id, got[c.id], c.due)
		}
	}
}

func TestListUpcomingOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository()
	now := time.Now().UTC()

	later := newTestEvent("later")
	later.StartTime = now.Add(2 * time.Hour)
	sooner := newTestEvent("sooner")
	sooner.StartTime = now.Add(time.Hour)
	tieFirst := newTestEvent("tie-first")
	tieFirst.StartTime = now.Add(3 * time.Hour)
	tieSecond := newTestEvent("tie-second")
	tieSecond.StartTime = now.Add(3 * time.Hour)
	past := newTestEvent("past")
	past.StartTime = now.Add(-time.Hour)

	for _, e := range []*domain.Event{later, sooner, tieFirst, tieSecond, past} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	events, err := repo.ListUpcoming(ctx, "guild-1", now)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"sooner", "later", "tie-first", "tie-second"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("events[%d] = %q, want %q", i, events[i].ID, id)
		}
	}
}
