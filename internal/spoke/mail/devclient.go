package mail

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DevClient is an in-memory Client used in local development and tests.
// Sent messages are recorded per user and echoed back by ListInbox.
type DevClient struct {
	mu   sync.Mutex
	sent map[string][]InboxEntry
}

// NewDevClient returns an empty in-memory mail client.
func NewDevClient() *DevClient {
	return &DevClient{sent: make(map[string][]InboxEntry)}
}

// Send implements Client.
func (c *DevClient) Send(_ context.Context, userID string, msg Email) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[userID] = append(c.sent[userID], InboxEntry{
		From:       userID,
		Subject:    msg.Subject,
		ReceivedAt: time.Now().UTC(),
	})
	return uuid.NewString(), nil
}

// ListInbox implements Client.
func (c *DevClient) ListInbox(_ context.Context, userID string, limit int) ([]InboxEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.sent[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]InboxEntry, len(entries))
	copy(out, entries)
	return out, nil
}
