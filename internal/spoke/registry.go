// Package spoke – Registry
//
// The registry validates each spoke's manifest at registration and publishes
// a read-only lookup from (spoke_name, action_type) to its ActionDefinition.
// Registration is append-only and idempotent: registering the same spoke with
// an identical manifest twice is a no-op, while a conflicting re-registration
// fails so two different spokes can never claim the same name.
package spoke

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/taskmind/go-hub-backend/internal/catalog"
)

// ErrNotFound indicates that a (spoke, action) pair is not registered. An
// invocation referencing it fails closed (Rejected), never silently skipped.
var ErrNotFound = errors.New("action not found")

// Registry holds the active spokes and their combined action index. It is an
// explicitly constructed instance (no package-level singleton) passed to the
// executor and resolver, which keeps test doubles clean.
//
// Safe for concurrent use; lookups take a read lock only.
type Registry struct {
	mu     sync.RWMutex
	spokes map[string]Spoke
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{spokes: make(map[string]Spoke)}
}

// Register validates the spoke's manifest and adds it to the registry.
//
// Errors:
//   - catalog.ErrManifestInvalid (wrapped) when the manifest deviates from
//     the schema; callers treat this as fatal at startup.
//   - catalog.ErrManifestInvalid also covers a name mismatch between the
//     spoke and its manifest, and a conflicting re-registration.
//
// Registering the same spoke name with a deep-equal manifest is idempotent.
func (r *Registry) Register(s Spoke) error {
	m := s.Manifest()
	if m == nil {
		return fmt.Errorf("%w: spoke %q has no manifest", catalog.ErrManifestInvalid, s.Name())
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.SpokeName != s.Name() {
		return fmt.Errorf("%w: spoke %q manifest declares spoke_name %q",
			catalog.ErrManifestInvalid, s.Name(), m.SpokeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.spokes[m.SpokeName]; ok {
		if reflect.DeepEqual(prev.Manifest(), m) {
			return nil // idempotent re-registration
		}
		return fmt.Errorf("%w: spoke %q already registered with a different manifest",
			catalog.ErrManifestInvalid, m.SpokeName)
	}
	r.spokes[m.SpokeName] = s
	return nil
}

// Resolve returns the ActionDefinition for (spokeName, actionType) and the
// spoke that owns it, or ErrNotFound.
func (r *Registry) Resolve(spokeName, actionType string) (*catalog.ActionDefinition, Spoke, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.spokes[spokeName]
	if !ok {
		return nil, nil, fmt.Errorf("%w: spoke %q", ErrNotFound, spokeName)
	}
	def := s.Manifest().Action(actionType)
	if def == nil {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrNotFound, spokeName, actionType)
	}
	return def, s, nil
}

// ListActions returns every registered ActionDefinition, sorted by identity
// for deterministic output. This is the resolver's vocabulary and reflects
// exactly the set of spokes active at startup.
func (r *Registry) ListActions() []catalog.ActionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []catalog.ActionDefinition
	for _, s := range r.spokes {
		out = append(out, s.Manifest().Actions...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}
