// Package spoke defines the capability contract every integration implements
// and the registry that publishes the combined action index.
//
// A spoke is an independently registered integration (mail, calendar, task
// store, issue tracker, ...) exposing a fixed set of named actions described
// by its manifest. Spokes are registered explicitly at process startup from a
// static list (no filesystem scanning or runtime reflection), which keeps
// the "add a package, get a new capability" experience while remaining
// link-time verifiable.
package spoke

import (
	"context"
	"encoding/json"

	"github.com/taskmind/go-hub-backend/internal/catalog"
)

// UserContext carries the requesting user's identity into a spoke call.
// OAuth tokens for third-party services are resolved by the spoke's client,
// outside this core.
type UserContext struct {
	UserID string
}

// Result is the structured outcome of a spoke invocation, returned verbatim
// to the caller in the invocation response.
type Result struct {
	// Summary is a short, human-readable outcome line.
	Summary string `json:"summary"`
	// Data carries action-specific payload (created record, listing, ...).
	Data any `json:"data,omitempty"`
}

// Spoke is the polymorphic capability unit. Implementations must be safe for
// concurrent use: the executor calls Invoke from independent request workers.
type Spoke interface {
	// Name returns the spoke's stable identifier (manifest spoke_name).
	Name() string

	// Manifest returns the spoke's validated action catalog. The manifest is
	// loaded once at construction and never mutated.
	Manifest() *catalog.Manifest

	// Invoke executes actionType with validated, type-normalized parameters.
	// It performs exactly one external call; retries are the caller's policy.
	Invoke(ctx context.Context, actionType string, params map[string]any, user UserContext) (*Result, error)
}

// MarshalParams encodes a parameter map for persistence on the invocation
// row. Encoding a validated map cannot realistically fail; a failure is
// recorded as "{}" rather than blocking the invocation record.
func MarshalParams(params map[string]any) string {
	b, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(b)
}
