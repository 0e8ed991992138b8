package catalog

import (
	"errors"
	"testing"
)

const validManifest = `{
  "spoke_name": "notes",
  "display_name": "Notes",
  "actions": [
    {
      "action_type": "create_note",
      "display_name": "Create a note",
      "parameters": {
        "title": {"type": "string", "required": true},
        "pinned": {"type": "boolean", "required": false, "default": false}
      },
      "destructive": false
    },
    {
      "action_type": "delete_note",
      "display_name": "Delete a note",
      "parameters": {
        "note_id": {"type": "string", "required": true}
      },
      "destructive": true
    }
  ]
}`

func TestParseManifest_ValidStampsSpokeName(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.SpokeName != "notes" || len(m.Actions) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	for _, a := range m.Actions {
		if a.SpokeName != "notes" {
			t.Fatalf("spoke name not stamped onto action %q: %q", a.ActionType, a.SpokeName)
		}
	}
	if got := m.Actions[1].Identity(); got != "notes.delete_note" {
		t.Fatalf("identity = %q", got)
	}
}

func TestParseManifest_MalformedJSON(t *testing.T) {
	_, err := ParseManifest([]byte(`{nope`))
	if !errors.Is(err, ErrManifestInvalid) {
		t.Fatalf("expected ErrManifestInvalid, got %v", err)
	}
}

func TestManifestValidate_Failures(t *testing.T) {
	cases := []struct {
		name string
		m    Manifest
	}{
		{"empty spoke name", Manifest{Actions: []ActionDefinition{{ActionType: "a"}}}},
		{"no actions", Manifest{SpokeName: "s"}},
		{"empty action type", Manifest{SpokeName: "s", Actions: []ActionDefinition{{}}}},
		{"duplicate action type", Manifest{SpokeName: "s", Actions: []ActionDefinition{
			{ActionType: "a"}, {ActionType: "a"},
		}}},
		{"unknown parameter type", Manifest{SpokeName: "s", Actions: []ActionDefinition{
			{ActionType: "a", Parameters: map[string]Parameter{"p": {Type: "uuid"}}},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.m.Validate(); !errors.Is(err, ErrManifestInvalid) {
				t.Fatalf("expected ErrManifestInvalid, got %v", err)
			}
		})
	}
}

func TestManifestAction_Lookup(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if a := m.Action("delete_note"); a == nil || !a.Destructive {
		t.Fatalf("delete_note lookup failed: %+v", a)
	}
	if a := m.Action("unknown"); a != nil {
		t.Fatalf("expected nil for unknown action, got %+v", a)
	}
}
