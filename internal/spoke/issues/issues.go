// Package issues implements the issue-tracker spoke. The tracker itself is
// an external collaborator injected as a Client.
package issues

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

//go:embed manifest.json
var manifestJSON []byte

// Issue is a tracker issue.
type Issue struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	State string `json:"state,omitempty"`
}

// Client is the collaborator interface to the user's issue tracker.
type Client interface {
	CreateIssue(ctx context.Context, userID string, is Issue) (Issue, error)
	CloseIssue(ctx context.Context, userID, issueID string) error
	ListIssues(ctx context.Context, userID, state string) ([]Issue, error)
}

// Spoke is the issue-tracker integration.
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
func (s *Spoke) Name() string { return "issues" }

// Manifest implements spoke.Spoke.
func (s *Spoke) Manifest() *catalog.Manifest { return s.manifest }

// Invoke implements spoke.Spoke.
func (s *Spoke) Invoke(ctx context.Context, actionType string, params map[string]any, user spoke.UserContext) (*spoke.Result, error) {
	switch actionType {
	case "create_issue":
		is := Issue{}
		is.Title, _ = params["title"].(string)
		is.Body, _ = params["body"].(string)
		created, err := s.client.CreateIssue(ctx, user.UserID, is)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: fmt.Sprintf("Issue %q filed.", created.Title), Data: created}, nil

	case "close_issue":
		id, _ := params["issue_id"].(string)
		if err := s.client.CloseIssue(ctx, user.UserID, id); err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: "Issue closed."}, nil

	case "list_issues":
		state, _ := params["state"].(string)
		items, err := s.client.ListIssues(ctx, user.UserID, state)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: fmt.Sprintf("%d issue(s) found.", len(items)), Data: items}, nil
	}
	return nil, fmt.Errorf("issues: unknown action %q", actionType)
}
