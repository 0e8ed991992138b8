// Package catalog defines the static description of every action a spoke
// exposes: parameter schemas, destructiveness flags, and the per-spoke
// manifest format that new integrations must satisfy.
//
// Manifests are decoded from JSON, validated once at startup, and never
// mutated at runtime. Validation is strict: an unrecognized parameter type or
// a duplicate action_type within a spoke yields ErrManifestInvalid, and the
// process refuses to start with a broken spoke rather than degrade silently.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Recognized parameter types. Values outside this set make a manifest invalid.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeDatetime = "datetime"
)

// Parameter describes a single named parameter of an action.
type Parameter struct {
	// Type is one of string, number, boolean, datetime (ISO-8601).
	Type string `json:"type"`
	// Required marks the parameter as mandatory at submission.
	Required bool `json:"required"`
	// Description is shown to users and used by the resolver.
	Description string `json:"description,omitempty"`
	// Default is applied when an optional parameter is absent.
	Default any `json:"default,omitempty"`
}

// ActionDefinition is the immutable description of one spoke action.
// Identity is (SpokeName, ActionType).
type ActionDefinition struct {
	SpokeName   string               `json:"spoke_name"`
	ActionType  string               `json:"action_type"`
	DisplayName string               `json:"display_name"`
	Description string               `json:"description,omitempty"`
	Parameters  map[string]Parameter `json:"parameters,omitempty"`
	Destructive bool                 `json:"destructive"`
}

// Manifest is the per-spoke action catalog, owned by the spoke author and
// loaded once at startup.
type Manifest struct {
	SpokeName   string             `json:"spoke_name"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description,omitempty"`
	Actions     []ActionDefinition `json:"actions"`
}

// ParseManifest decodes and validates a JSON manifest. The returned manifest
// has SpokeName stamped onto every action definition.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, manifestInvalid("malformed JSON: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest against the catalog schema and normalizes it
// (SpokeName is stamped onto each action). It returns an error wrapping
// ErrManifestInvalid on any deviation.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.SpokeName) == "" {
		return manifestInvalid("spoke_name is required")
	}
	if len(m.Actions) == 0 {
		return manifestInvalid("spoke %q declares no actions", m.SpokeName)
	}

	seen := make(map[string]struct{}, len(m.Actions))
	for i := range m.Actions {
		a := &m.Actions[i]
		a.SpokeName = m.SpokeName

		if strings.TrimSpace(a.ActionType) == "" {
			return manifestInvalid("spoke %q: action %d has no action_type", m.SpokeName, i)
		}
		if _, dup := seen[a.ActionType]; dup {
			return manifestInvalid("spoke %q: duplicate action_type %q", m.SpokeName, a.ActionType)
		}
		seen[a.ActionType] = struct{}{}

		for name, p := range a.Parameters {
			if strings.TrimSpace(name) == "" {
				return manifestInvalid("spoke %q action %q: empty parameter name", m.SpokeName, a.ActionType)
			}
			switch p.Type {
			case TypeString, TypeNumber, TypeBoolean, TypeDatetime:
			default:
				return manifestInvalid("spoke %q action %q parameter %q: unknown type %q",
					m.SpokeName, a.ActionType, name, p.Type)
			}
		}
	}
	return nil
}

// Action returns the definition for actionType, or nil if the manifest does
// not declare it.
func (m *Manifest) Action(actionType string) *ActionDefinition {
	for i := range m.Actions {
		if m.Actions[i].ActionType == actionType {
			return &m.Actions[i]
		}
	}
	return nil
}

// Identity returns the stable "(spoke, action)" identity string used in logs
// and error messages.
func (a ActionDefinition) Identity() string {
	return a.SpokeName + "." + a.ActionType
}

func manifestInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrManifestInvalid, fmt.Sprintf(format, args...))
}
