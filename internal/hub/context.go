// Package hub – conversation context store.
//
// Short-lived, per-thread memory enabling multi-turn resolution: the last
// pending invocation plus a bounded window of recent turns. Threads expire
// after an inactivity timeout; older turns are evicted, not retained
// indefinitely. Turns within one thread are expected to be serialized by the
// calling transport, but the store still guards each thread with the store
// lock so pathological concurrent sends cannot corrupt the turn window.
package hub

import (
	"sync"
	"time"
)

// PendingInvocation is the confirmation-gated action a thread is waiting on.
type PendingInvocation struct {
	InvocationID string
	SpokeName    string
	ActionType   string
	Params       map[string]any
	// Prompt is the confirmation question shown to the user.
	Prompt string
}

// Turn is one message in a thread's bounded history with the action it
// resolved to, if any.
type Turn struct {
	Message        string
	ResolvedAction string
	At             time.Time
}

type threadContext struct {
	pending  *PendingInvocation
	turns    []Turn
	lastSeen time.Time
}

// ContextStore is the in-process conversation context manager. It is an
// explicitly constructed instance (no singleton) shared by the executor; all
// methods are safe for concurrent use.
type ContextStore struct {
	mu      sync.Mutex
	threads map[string]*threadContext

	ttl      time.Duration
	maxTurns int

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewContextStore constructs a store expiring threads after ttl of
// inactivity and keeping at most maxTurns recent turns per thread.
// Non-positive arguments fall back to 30 minutes and 10 turns.
func NewContextStore(ttl time.Duration, maxTurns int) *ContextStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &ContextStore{
		threads:  make(map[string]*threadContext),
		ttl:      ttl,
		maxTurns: maxTurns,
		now:      time.Now,
	}
}

// Pending returns the thread's pending invocation.
//
// When the thread sat idle past the TTL, the stale pending invocation is
// returned together with ErrContextExpired and the thread is evicted: the
// caller must reject it, never execute it against stale parameters. A thread
// with no pending invocation yields (nil, nil).
func (s *ContextStore) Pending(threadID string) (*PendingInvocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	if s.now().Sub(tc.lastSeen) >= s.ttl {
		delete(s.threads, threadID)
		if tc.pending != nil {
			return tc.pending, ErrContextExpired
		}
		return nil, nil
	}
	return tc.pending, nil
}

// SetPending records the invocation a thread is now waiting to confirm,
// replacing any previous one.
func (s *ContextStore) SetPending(threadID string, p *PendingInvocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc := s.touch(threadID)
	tc.pending = p
}

// ClearPending drops the thread's pending invocation, keeping the turn
// history.
func (s *ContextStore) ClearPending(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tc, ok := s.threads[threadID]; ok {
		tc.pending = nil
		tc.lastSeen = s.now()
	}
}

// RecordTurn appends a turn to the thread's bounded history, evicting the
// oldest entries beyond the window.
func (s *ContextStore) RecordTurn(threadID, message, resolvedAction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc := s.touch(threadID)
	tc.turns = append(tc.turns, Turn{Message: message, ResolvedAction: resolvedAction, At: s.now()})
	if n := len(tc.turns); n > s.maxTurns {
		tc.turns = tc.turns[n-s.maxTurns:]
	}
}

// Turns returns a copy of the thread's recent turns (oldest first). An
// expired or unknown thread yields nil.
func (s *ContextStore) Turns(threadID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.threads[threadID]
	if !ok || s.now().Sub(tc.lastSeen) >= s.ttl {
		return nil
	}
	out := make([]Turn, len(tc.turns))
	copy(out, tc.turns)
	return out
}

// Close drops a thread's context entirely (explicit thread close).
func (s *ContextStore) Close(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
}

// touch fetches or creates a live thread entry and stamps lastSeen.
// Caller holds s.mu.
func (s *ContextStore) touch(threadID string) *threadContext {
	now := s.now()
	tc, ok := s.threads[threadID]
	if !ok || now.Sub(tc.lastSeen) >= s.ttl {
		tc = &threadContext{}
		s.threads[threadID] = tc
	}
	tc.lastSeen = now
	return tc
}
