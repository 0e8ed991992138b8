package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/taskmind/go-hub-backend/internal/spoke"
)

func TestManifest_Actions(t *testing.T) {
	s, err := New(NewDevClient())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := s.Manifest()
	if m.SpokeName != "calendar" {
		t.Fatalf("spoke name = %q", m.SpokeName)
	}
	for _, at := range []string{"create_event", "list_events", "delete_event"} {
		if m.Action(at) == nil {
			t.Fatalf("manifest missing %q", at)
		}
	}
	if !m.Action("delete_event").Destructive {
		t.Fatal("delete_event must be destructive")
	}
}

func TestInvoke_CreateListDelete(t *testing.T) {
	s, err := New(NewDevClient())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	user := spoke.UserContext{UserID: "u1"}

	starts := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	res, err := s.Invoke(ctx, "create_event", map[string]any{
		"title": "standup", "starts_at": starts, "location": "room 4",
	}, user)
	if err != nil {
		t.Fatalf("create_event: %v", err)
	}
	created, ok := res.Data.(Event)
	if !ok || created.ID == "" || created.Title != "standup" || !created.StartsAt.Equal(starts) {
		t.Fatalf("created = %+v", res.Data)
	}

	// Time-window filtering.
	res, err = s.Invoke(ctx, "list_events", map[string]any{
		"from": starts.Add(-time.Hour),
	}, user)
	if err != nil {
		t.Fatalf("list_events: %v", err)
	}
	if events, _ := res.Data.([]Event); len(events) != 1 {
		t.Fatalf("events = %+v", res.Data)
	}
	res, err = s.Invoke(ctx, "list_events", map[string]any{
		"from": starts.Add(-2 * time.Hour), "to": starts.Add(-time.Hour),
	}, user)
	if err != nil {
		t.Fatalf("list_events windowed: %v", err)
	}
	if events, _ := res.Data.([]Event); len(events) != 0 {
		t.Fatalf("window should exclude the event: %+v", res.Data)
	}

	if _, err := s.Invoke(ctx, "delete_event", map[string]any{"event_id": created.ID}, user); err != nil {
		t.Fatalf("delete_event: %v", err)
	}
	if _, err := s.Invoke(ctx, "delete_event", map[string]any{"event_id": created.ID}, user); err == nil {
		t.Fatal("double delete must fail")
	}
}

func TestInvoke_UnknownAction(t *testing.T) {
	s, err := New(NewDevClient())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Invoke(context.Background(), "move_event", nil, spoke.UserContext{UserID: "u1"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
