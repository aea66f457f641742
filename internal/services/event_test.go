package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventroster/internal/domain"
	"eventroster/internal/repository/memory"
)

func seedTemplate(t *testing.T, repo domain.TemplateRepository, communityID, name, spec string) {
	t.Helper()
	roles, err := domain.ParseSlotSpec(spec)
	if err != nil {
		t.Fatal(err)
	}
	tpl := domain.NewTemplate(communityID, name, "desc for "+name, roles, time.Now().UTC())
	tpl.ID = name + "-id"
	if err := repo.Create(context.Background(), tpl); err != nil {
		t.Fatal(err)
	}
}

func TestEventServiceInstantiate(t *testing.T) {
	ctx := context.Background()
	templates := memory.NewTemplateRepository()
	events := memory.NewEventRepository()
	seedTemplate(t, templates, "guild-1", "raid", "Tank:1,Healer:1,DPS:2")
	svc := NewEventService(events, templates, 5*time.Second)

	event, err := svc.Instantiate(ctx, "guild-1", "chan-9", "friday raid", "raid", "2026-12-01T20:00:00Z")
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if event.ID == "" {
		t.Error("event ID not assigned")
	}
	if event.TemplateName != "raid" || event.Description != "desc for raid" {
		t.Errorf("snapshot = %q/%q, want raid/desc for raid", event.TemplateName, event.Description)
	}
	if !event.StartTime.Equal(time.Date(2026, 12, 1, 20, 0, 0, 0, time.UTC)) {
		t.Errorf("start time = %v", event.StartTime)
	}
	if event.ReminderSent {
		t.Error("new event has reminder sent")
	}
	for _, rs := range event.Roles {
		members, ok := event.Roster[rs.Role]
		if !ok {
			t.Errorf("role %q missing from roster", rs.Role)
		}
		if len(members) != 0 {
			t.Errorf("role %q roster = %v, want empty", rs.Role, members)
		}
	}

	// The stored event is retrievable and scoped.
	if _, err := svc.GetByID(ctx, "guild-1", event.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := svc.GetByID(ctx, "guild-2", event.ID); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("cross-community GetByID error = %v, want ErrEventNotFound", err)
	}
}

func TestEventServiceInstantiateUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	svc := NewEventService(memory.NewEventRepository(), memory.NewTemplateRepository(), 5*time.Second)

	_, err := svc.Instantiate(ctx, "guild-1", "chan-9", "friday raid", "missing", "2026-12-01T20:00:00Z")
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestEventServiceInstantiateBadTime(t *testing.T) {
	ctx := context.Background()
	templates := memory.NewTemplateRepository()
	events := memory.NewEventRepository()
	seedTemplate(t, templates, "guild-1", "raid", "Tank:1")
	svc := NewEventService(events, templates, 5*time.Second)

	_, err := svc.Instantiate(ctx, "guild-1", "chan-9", "friday raid", "raid", "not-a-date")
	if !errors.Is(err, domain.ErrInvalidTime) {
		t.Fatalf("error = %v, want ErrInvalidTime", err)
	}

	// No partial record was created.
	upcoming, err := events.ListUpcoming(ctx, "guild-1", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(upcoming) != 0 {
		t.Fatalf("events created after failed instantiate: %v", upcoming)
	}
}

func TestEventServiceSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	templates := memory.NewTemplateRepository()
	events := memory.NewEventRepository()
	seedTemplate(t, templates, "guild-1", "raid", "Tank:2")
	svc := NewEventService(events, templates, 5*time.Second)

	event, err := svc.Instantiate(ctx, "guild-1", "chan-9", "raid night", "raid", "2026-12-01 20:00")
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the returned event must not leak into the store.
	event.Roles[0].Capacity = 99
	event.Roster["Tank"] = append(event.Roster["Tank"], "intruder")

	stored, err := svc.GetByID(ctx, "guild-1", event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Roles[0].Capacity != 2 {
		t.Errorf("stored capacity = %d, want 2", stored.Roles[0].Capacity)
	}
	if len(stored.Roster["Tank"]) != 0 {
		t.Errorf("stored roster = %v, want empty", stored.Roster["Tank"])
	}
}

func TestEventServiceListUpcoming(t *testing.T) {
	ctx := context.Background()
	templates := memory.NewTemplateRepository()
	events := memory.NewEventRepository()
	seedTemplate(t, templates, "guild-1", "raid", "Tank:1")
	svc := NewEventService(events, templates, 5*time.Second)

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	if _, err := svc.Instantiate(ctx, "guild-1", "c", "future event", "raid", future); err != nil {
		t.Fatal(err)
	}
	// Past events may be created (the store does not forbid history), but
	// they are not upcoming.
	if _, err := svc.Instantiate(ctx, "guild-1", "c", "past event", "raid", past); err != nil {
		t.Fatal(err)
	}

	upcoming, err := svc.ListUpcoming(ctx, "guild-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(upcoming) != 1 || upcoming[0].Name != "future event" {
		t.Fatalf("upcoming = %v, want only future event", upcoming)
	}
}
