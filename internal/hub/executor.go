// Package hub – Action Executor
//
// The orchestration core: resolve intent → check quota → validate parameters
// → (optionally) request confirmation for destructive actions → invoke the
// target spoke → return a structured result.
//
// Invocation lifecycle: Pending → Confirmed → Executed, with Pending →
// Rejected and Confirmed|Pending → Failed as alternate terminals. A
// destructive invocation can only reach Executed through Confirmed. The
// quota slot is committed before the spoke call and no lock is held during
// it; a spoke failure after admission stands as consumed usage.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// user/thread identifiers and the resolved action identity.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/domain"
	"github.com/taskmind/go-hub-backend/internal/quota"
	"github.com/taskmind/go-hub-backend/internal/repo"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

// Outcome is the structured result of handling one inbound request. Exactly
// one of the shapes is populated: an invocation (with optional spoke result
// or confirmation prompt), or a clarification (ambiguous/no-match, no
// invocation created).
type Outcome struct {
	Invocation    *domain.Invocation
	Result        *spoke.Result
	Confirmation  string
	Clarification string
	Candidates    []catalog.ActionDefinition
}

// Executor drives the invocation state machine. All dependencies are
// injected explicitly; there is no package-level state beyond metrics.
type Executor struct {
	DB       *gorm.DB
	Registry *spoke.Registry
	Resolver *Resolver
	Quota    *quota.Enforcer
	Contexts *ContextStore
}

// NewExecutor wires the executor to its collaborators.
func NewExecutor(db *gorm.DB, reg *spoke.Registry, res *Resolver, q *quota.Enforcer, cs *ContextStore) *Executor {
	return &Executor{DB: db, Registry: reg, Resolver: res, Quota: q, Contexts: cs}
}

// HandleMessage processes a free-form user message on a thread: it resolves
// intent against the catalog and conversation context, then submits,
// confirms, or cancels accordingly.
//
// Errors carried alongside the Outcome follow the hub taxonomy
// (quota.ErrQuotaExceeded, quota.ErrPlanRestricted, spoke.ErrNotFound,
// *catalog.ParameterError, ErrContextExpired, *SpokeError); they are data
// for the transport layer, not panics.
func (e *Executor) HandleMessage(ctx context.Context, user spoke.UserContext, threadID, message string) (*Outcome, error) {
	tr := otel.Tracer("hub/Executor")
	ctx, span := tr.Start(ctx, "HandleMessage",
		trace.WithAttributes(
			attribute.String("user.id", user.UserID),
			attribute.String("thread.id", threadID),
		),
	)
	defer span.End()

	pending, perr := e.Contexts.Pending(threadID)
	res := e.Resolver.Resolve(message)

	// A stale pending invocation is abandoned regardless of what the new
	// message resolves to; only an explicit confirmation surfaces the expiry
	// to the user.
	if errors.Is(perr, ErrContextExpired) && res.Kind != KindConfirm {
		_ = repo.TransitionInvocation(ctx, e.DB, pending.InvocationID, domain.StatusPending, domain.StatusRejected, "context expired")
		contextExpiriesTotal.Inc()
		pending = nil
	}

	switch res.Kind {
	case KindConfirm:
		if errors.Is(perr, ErrContextExpired) {
			return e.abandonExpired(ctx, user, threadID, message, pending)
		}
		if pending == nil {
			e.Contexts.RecordTurn(threadID, message, "")
			return &Outcome{Clarification: "There is nothing waiting for confirmation."}, ErrNothingPending
		}
		return e.confirm(ctx, user, threadID, message, pending)

	case KindCancel:
		if pending == nil {
			e.Contexts.RecordTurn(threadID, message, "")
			return &Outcome{Clarification: "There is nothing to cancel."}, ErrNothingPending
		}
		return e.cancel(ctx, user, threadID, message, pending)

	case KindResolved:
		return e.submit(ctx, user, threadID, message, res.Action, res.Params)

	case KindAmbiguous:
		e.Contexts.RecordTurn(threadID, message, "")
		return &Outcome{
			Clarification: clarificationPrompt(res.Candidates),
			Candidates:    res.Candidates,
		}, ErrAmbiguousIntent

	default: // KindNoMatch
		e.Contexts.RecordTurn(threadID, message, "")
		return &Outcome{Clarification: "I couldn't match that to anything I can do."}, ErrNoMatch
	}
}

// Submit handles a pre-structured action request: the caller already names
// the spoke, action, and parameters, so no intent resolution happens.
func (e *Executor) Submit(ctx context.Context, user spoke.UserContext, threadID, spokeName, actionType string, params map[string]any) (*Outcome, error) {
	tr := otel.Tracer("hub/Executor")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", user.UserID),
			attribute.String("action", spokeName+"."+actionType),
		),
	)
	defer span.End()

	def, _, err := e.Registry.Resolve(spokeName, actionType)
	if err != nil {
		// Fail closed: the invocation is recorded as Rejected and no quota
		// is consumed.
		inv, cerr := repo.CreateInvocation(ctx, e.DB, user.UserID, threadID, spokeName, actionType, "{}",
			domain.StatusRejected, "action not registered")
		if cerr != nil {
			return nil, cerr
		}
		invocationsTotal.WithLabelValues(spokeName, actionType, domain.StatusRejected).Inc()
		return &Outcome{Invocation: inv}, err
	}
	return e.submit(ctx, user, threadID, "", def, params)
}

// submit validates parameters and either parks a destructive invocation at
// Pending behind the confirmation gate, or executes immediately.
func (e *Executor) submit(ctx context.Context, user spoke.UserContext, threadID, message string, def *catalog.ActionDefinition, params map[string]any) (*Outcome, error) {
	normalized, err := catalog.ValidateParams(def, params)
	if err != nil {
		inv, cerr := repo.CreateInvocation(ctx, e.DB, user.UserID, threadID, def.SpokeName, def.ActionType,
			spoke.MarshalParams(params), domain.StatusRejected, err.Error())
		if cerr != nil {
			return nil, cerr
		}
		invocationsTotal.WithLabelValues(def.SpokeName, def.ActionType, domain.StatusRejected).Inc()
		e.Contexts.RecordTurn(threadID, message, def.Identity())
		return &Outcome{Invocation: inv}, err
	}

	inv, err := repo.CreateInvocation(ctx, e.DB, user.UserID, threadID, def.SpokeName, def.ActionType,
		spoke.MarshalParams(normalized), domain.StatusPending, "")
	if err != nil {
		return nil, err
	}
	e.Contexts.RecordTurn(threadID, message, def.Identity())

	if def.Destructive {
		prompt := confirmationPrompt(def, normalized)
		e.Contexts.SetPending(threadID, &PendingInvocation{
			InvocationID: inv.ID,
			SpokeName:    def.SpokeName,
			ActionType:   def.ActionType,
			Params:       normalized,
			Prompt:       prompt,
		})
		invocationsTotal.WithLabelValues(def.SpokeName, def.ActionType, domain.StatusPending).Inc()
		return &Outcome{Invocation: inv, Confirmation: prompt}, nil
	}

	return e.execute(ctx, user, inv, def, normalized, domain.StatusPending)
}

// confirm advances the thread's pending invocation through Confirmed and
// executes it.
func (e *Executor) confirm(ctx context.Context, user spoke.UserContext, threadID, message string, pending *PendingInvocation) (*Outcome, error) {
	e.Contexts.RecordTurn(threadID, message, pending.SpokeName+"."+pending.ActionType)
	e.Contexts.ClearPending(threadID)

	def, _, err := e.Registry.Resolve(pending.SpokeName, pending.ActionType)
	if err != nil {
		// The owning spoke disappeared mid-flight: fail closed.
		_ = repo.TransitionInvocation(ctx, e.DB, pending.InvocationID, domain.StatusPending, domain.StatusRejected, "action no longer registered")
		inv, gerr := repo.GetInvocation(ctx, e.DB, pending.InvocationID, user.UserID)
		if gerr != nil {
			return nil, gerr
		}
		invocationsTotal.WithLabelValues(pending.SpokeName, pending.ActionType, domain.StatusRejected).Inc()
		return &Outcome{Invocation: inv}, err
	}

	if err := repo.TransitionInvocation(ctx, e.DB, pending.InvocationID, domain.StatusPending, domain.StatusConfirmed, ""); err != nil {
		return nil, err
	}
	inv, err := repo.GetInvocation(ctx, e.DB, pending.InvocationID, user.UserID)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, user, inv, def, pending.Params, domain.StatusConfirmed)
}

// cancel rejects the thread's pending invocation on an explicit negative.
// No spoke call occurs and no quota is consumed.
func (e *Executor) cancel(ctx context.Context, user spoke.UserContext, threadID, message string, pending *PendingInvocation) (*Outcome, error) {
	e.Contexts.RecordTurn(threadID, message, pending.SpokeName+"."+pending.ActionType)
	e.Contexts.ClearPending(threadID)

	if err := repo.TransitionInvocation(ctx, e.DB, pending.InvocationID, domain.StatusPending, domain.StatusRejected, "cancelled by user"); err != nil {
		return nil, err
	}
	inv, err := repo.GetInvocation(ctx, e.DB, pending.InvocationID, user.UserID)
	if err != nil {
		return nil, err
	}
	invocationsTotal.WithLabelValues(pending.SpokeName, pending.ActionType, domain.StatusRejected).Inc()
	return &Outcome{Invocation: inv}, nil
}

// abandonExpired rejects a pending invocation whose thread context expired
// before the confirmation arrived. The stale parameters are never executed.
func (e *Executor) abandonExpired(ctx context.Context, user spoke.UserContext, threadID, message string, pending *PendingInvocation) (*Outcome, error) {
	e.Contexts.RecordTurn(threadID, message, "")
	contextExpiriesTotal.Inc()

	if err := repo.TransitionInvocation(ctx, e.DB, pending.InvocationID, domain.StatusPending, domain.StatusRejected, "context expired"); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	inv, err := repo.GetInvocation(ctx, e.DB, pending.InvocationID, user.UserID)
	if err != nil {
		return nil, err
	}
	invocationsTotal.WithLabelValues(pending.SpokeName, pending.ActionType, domain.StatusRejected).Inc()
	return &Outcome{Invocation: inv}, ErrContextExpired
}

// execute performs admission control and the single spoke call, moving the
// invocation to its terminal status. from names the invocation's current
// status (Pending for non-destructive submissions, Confirmed after the
// gate).
func (e *Executor) execute(ctx context.Context, user spoke.UserContext, inv *domain.Invocation, def *catalog.ActionDefinition, params map[string]any, from string) (*Outcome, error) {
	st, err := e.Quota.CheckAndIncrement(ctx, user.UserID)
	if err != nil {
		reason := "quota exceeded"
		code := "quota_exceeded"
		switch {
		case errors.Is(err, quota.ErrPlanRestricted):
			reason = "plan does not include actions"
			code = "plan_restricted"
		case errors.Is(err, quota.ErrQuotaExceeded):
			if st != nil {
				reason = fmt.Sprintf("quota exceeded, resets %s", st.ResetTime.Format(time.RFC3339))
			}
		default:
			return nil, err
		}
		if terr := repo.TransitionInvocation(ctx, e.DB, inv.ID, from, domain.StatusRejected, reason); terr != nil {
			return nil, terr
		}
		inv.Status = domain.StatusRejected
		inv.Reason = reason
		invocationsTotal.WithLabelValues(def.SpokeName, def.ActionType, domain.StatusRejected).Inc()
		quotaDenialsTotal.WithLabelValues(code).Inc()
		return &Outcome{Invocation: inv}, err
	}

	// Quota slot committed; no lock is held across the external call.
	_, sp, rerr := e.Registry.Resolve(def.SpokeName, def.ActionType)
	if rerr != nil {
		if terr := repo.TransitionInvocation(ctx, e.DB, inv.ID, from, domain.StatusRejected, "action no longer registered"); terr != nil {
			return nil, terr
		}
		inv.Status = domain.StatusRejected
		inv.Reason = "action no longer registered"
		invocationsTotal.WithLabelValues(def.SpokeName, def.ActionType, domain.StatusRejected).Inc()
		return &Outcome{Invocation: inv}, rerr
	}

	result, serr := sp.Invoke(ctx, def.ActionType, params, user)
	if serr != nil {
		reason := serr.Error()
		if terr := repo.TransitionInvocation(ctx, e.DB, inv.ID, from, domain.StatusFailed, reason); terr != nil {
			return nil, terr
		}
		inv.Status = domain.StatusFailed
		inv.Reason = reason
		invocationsTotal.WithLabelValues(def.SpokeName, def.ActionType, domain.StatusFailed).Inc()
		return &Outcome{Invocation: inv}, &SpokeError{SpokeName: def.SpokeName, ActionType: def.ActionType, Err: serr}
	}

	if terr := repo.TransitionInvocation(ctx, e.DB, inv.ID, from, domain.StatusExecuted, ""); terr != nil {
		return nil, terr
	}
	inv.Status = domain.StatusExecuted
	inv.Reason = ""
	invocationsTotal.WithLabelValues(def.SpokeName, def.ActionType, domain.StatusExecuted).Inc()
	return &Outcome{Invocation: inv, Result: result}, nil
}

// confirmationPrompt renders the question shown before a destructive action
// runs, naming the action and its parameters.
func confirmationPrompt(def *catalog.ActionDefinition, params map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "About to %s", strings.ToLower(def.DisplayName))
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		for k := range params {
			names = append(names, k)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, k := range names {
			parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString(". Reply \"yes\" to confirm or \"cancel\" to abort.")
	return b.String()
}

// clarificationPrompt lists tied candidates for the user to choose between.
func clarificationPrompt(candidates []catalog.ActionDefinition) string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.DisplayName)
	}
	return "Did you mean: " + strings.Join(names, " or ") + "?"
}
