package issues

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DevClient is an in-memory Client used in local development and tests.
type DevClient struct {
	mu     sync.Mutex
	issues map[string][]Issue
}

// NewDevClient returns an empty in-memory tracker client.
func NewDevClient() *DevClient {
	return &DevClient{issues: make(map[string][]Issue)}
}

// CreateIssue implements Client.
func (c *DevClient) CreateIssue(_ context.Context, userID string, is Issue) (Issue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	is.ID = uuid.NewString()
	is.State = "open"
	c.issues[userID] = append(c.issues[userID], is)
	return is, nil
}

// CloseIssue implements Client.
func (c *DevClient) CloseIssue(_ context.Context, userID, issueID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, is := range c.issues[userID] {
		if is.ID == issueID {
			c.issues[userID][i].State = "closed"
			return nil
		}
	}
	return fmt.Errorf("issue %s not found", issueID)
}

// ListIssues implements Client.
func (c *DevClient) ListIssues(_ context.Context, userID, state string) ([]Issue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Issue
	for _, is := range c.issues[userID] {
		if state != "" && is.State != state {
			continue
		}
		out = append(out, is)
	}
	return out, nil
}
