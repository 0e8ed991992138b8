// Package calendar implements the calendar spoke. Like mail, the actual
// calendar service is an external collaborator injected as a Client; the
// spoke maps catalog actions onto single client calls.
package calendar

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

//go:embed manifest.json
var manifestJSON []byte

// Event is a calendar entry.
type Event struct {
	ID       string     `json:"id,omitempty"`
	Title    string     `json:"title"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Location string     `json:"location,omitempty"`
}

// Client is the collaborator interface to the user's calendar account.
type Client interface {
	CreateEvent(ctx context.Context, userID string, ev Event) (Event, error)
	ListEvents(ctx context.Context, userID string, from time.Time, to *time.Time) ([]Event, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

// Spoke is the calendar integration.
type Spoke struct {
	client   Client
	manifest *catalog.Manifest
}

// New parses the embedded manifest and returns the spoke.
func New(client Client) (*Spoke, error) {
	m, err := catalog.ParseManifest(manifestJSON)
	if err != nil {
		return nil, err
	}
	return &Spoke{client: client, manifest: m}, nil
}

// Name implements spoke.Spoke.
func (s *Spoke) Name() string { return "calendar" }

// Manifest implements spoke.Spoke.
func (s *Spoke) Manifest() *catalog.Manifest { return s.manifest }

// Invoke implements spoke.Spoke.
func (s *Spoke) Invoke(ctx context.Context, actionType string, params map[string]any, user spoke.UserContext) (*spoke.Result, error) {
	switch actionType {
	case "create_event":
		ev := Event{}
		ev.Title, _ = params["title"].(string)
		ev.Location, _ = params["location"].(string)
		if t, ok := params["starts_at"].(time.Time); ok {
			ev.StartsAt = t
		}
		if t, ok := params["ends_at"].(time.Time); ok {
			ev.EndsAt = &t
		}
		created, err := s.client.CreateEvent(ctx, user.UserID, ev)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{
			Summary: fmt.Sprintf("Event %q scheduled for %s.", created.Title, created.StartsAt.Format(time.RFC3339)),
			Data:    created,
		}, nil

	case "list_events":
		from := time.Now().UTC()
		if t, ok := params["from"].(time.Time); ok {
			from = t
		}
		var to *time.Time
		if t, ok := params["to"].(time.Time); ok {
			to = &t
		}
		events, err := s.client.ListEvents(ctx, user.UserID, from, to)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: fmt.Sprintf("%d event(s) found.", len(events)), Data: events}, nil

	case "delete_event":
		id, _ := params["event_id"].(string)
		if err := s.client.DeleteEvent(ctx, user.UserID, id); err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: "Event deleted."}, nil
	}
	return nil, fmt.Errorf("calendar: unknown action %q", actionType)
}
