package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DevClient is an in-memory Client used in local development and tests.
type DevClient struct {
	mu     sync.Mutex
	events map[string][]Event
}

// NewDevClient returns an empty in-memory calendar client.
func NewDevClient() *DevClient {
	return &DevClient{events: make(map[string][]Event)}
}

// CreateEvent implements Client.
func (c *DevClient) CreateEvent(_ context.Context, userID string, ev Event) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev.ID = uuid.NewString()
	c.events[userID] = append(c.events[userID], ev)
	return ev, nil
}

// ListEvents implements Client.
func (c *DevClient) ListEvents(_ context.Context, userID string, from time.Time, to *time.Time) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events[userID] {
		if ev.StartsAt.Before(from) {
			continue
		}
		if to != nil && ev.StartsAt.After(*to) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// DeleteEvent implements Client.
func (c *DevClient) DeleteEvent(_ context.Context, userID, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events[userID]
	for i, ev := range events {
		if ev.ID == eventID {
			c.events[userID] = append(events[:i], events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s not found", eventID)
}
