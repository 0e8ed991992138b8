// Package hub contains the action hub core: intent resolution, the
// invocation state machine, and per-thread conversation context. This file
// centralizes hub-level error values so they can be consistently returned by
// the executor and checked by callers.
//
// All errors are returned as structured results to the caller; nothing is
// thrown past the executor boundary. Translation into user-facing messages
// and HTTP status codes is performed at the handler layer.
package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch is returned when a free-form message cannot be resolved to
	// any catalog action.
	ErrNoMatch = errors.New("no matching action")

	// ErrAmbiguousIntent is returned when several actions score within a
	// narrow margin of each other; it is surfaced as a clarification request,
	// not a failure.
	ErrAmbiguousIntent = errors.New("ambiguous intent")

	// ErrContextExpired indicates a confirmation arrived after the thread's
	// context was evicted; the pending invocation is treated as abandoned and
	// is never executed against stale parameters.
	ErrContextExpired = errors.New("conversation context expired")

	// ErrNothingPending indicates a confirmation or cancellation arrived with
	// no pending invocation to apply it to.
	ErrNothingPending = errors.New("nothing pending to confirm")
)

// SpokeError carries the detail of a failed external integration call. The
// invocation is marked Failed and the error is reported, never retried
// automatically; a hidden retry could double-execute a destructive action.
type SpokeError struct {
	SpokeName  string
	ActionType string
	Err        error
}

// Error implements the error interface.
func (e *SpokeError) Error() string {
	return fmt.Sprintf("spoke %s.%s: %v", e.SpokeName, e.ActionType, e.Err)
}

// Unwrap exposes the underlying spoke error for errors.Is/As.
func (e *SpokeError) Unwrap() error { return e.Err }
