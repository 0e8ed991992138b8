// Package mail implements the email spoke. The actual mail transport is an
// external collaborator: the OAuth-token-backed client lives outside this
// core and is injected as a Client. The spoke translates catalog actions
// into single client calls.
package mail

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

// Email is an outbound message.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
}

// InboxEntry is one message summary from the user's inbox.
type InboxEntry struct {
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

// Client is the collaborator interface to the user's mail account.
// Implementations resolve OAuth credentials per user; the hub never sees
// tokens.
type Client interface {
	Send(ctx context.Context, userID string, msg Email) (messageID string, err error)
	ListInbox(ctx context.Context, userID string, limit int) ([]InboxEntry, error)
}

// Spoke is the mail integration.
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
func (s *Spoke) Name() string { return "mail" }

// Manifest implements spoke.Spoke.
func (s *Spoke) Manifest() *catalog.Manifest { return s.manifest }

// Invoke implements spoke.Spoke.
func (s *Spoke) Invoke(ctx context.Context, actionType string, params map[string]any, user spoke.UserContext) (*spoke.Result, error) {
	switch actionType {
	case "send_email":
		msg := Email{}
		msg.To, _ = params["to"].(string)
		msg.Subject, _ = params["subject"].(string)
		msg.Body, _ = params["body"].(string)
		id, err := s.client.Send(ctx, user.UserID, msg)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{
			Summary: fmt.Sprintf("Email sent to %s.", msg.To),
			Data:    map[string]string{"message_id": id},
		}, nil

	case "list_inbox":
		limit := 10
		if f, ok := params["limit"].(float64); ok && f > 0 {
			limit = int(f)
		}
		entries, err := s.client.ListInbox(ctx, user.UserID, limit)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: fmt.Sprintf("%d message(s) in your inbox.", len(entries)), Data: entries}, nil
	}
	return nil, fmt.Errorf("mail: unknown action %q", actionType)
}
