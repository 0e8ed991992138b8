// Package quota implements admission control for AI-mediated actions: a
// per-user, per-day invocation budget derived from the user's subscription
// plan.
//
// The enforcer's CheckAndIncrement is a single atomic operation (one
// conditional UPDATE against the day's usage row), so two concurrent
// invocations from the same user can never both be admitted when only one
// slot remains. Peek is strictly read-only and exists purely for UI display.
//
// Plan limits come from a collaborator interface (PlanLookup); provider
// specifics (Stripe, auth metadata, overrides) live entirely outside this
// core.
package quota

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/taskmind/go-hub-backend/internal/repo"
)

// PlanLimit describes the quota a subscription plan grants.
//
//   - DailyLimit -1 denotes unlimited.
//   - DailyLimit 0 denotes "feature not available on this plan", reported as
//     ErrPlanRestricted, which is distinct from an exhausted limit.
type PlanLimit struct {
	DailyLimit int    `json:"daily_limit"`
	PlanName   string `json:"plan_name"`
}

// PlanLookup is the external collaborator resolving a user's current plan.
type PlanLookup interface {
	PlanLimit(ctx context.Context, userID string) (PlanLimit, error)
}

// Status is the read-only quota snapshot consumed by the UI layer.
type Status struct {
	RemainingCount int       `json:"remaining_count"`
	DailyLimit     int       `json:"daily_limit"`
	ResetTime      time.Time `json:"reset_time"`
	CanUse         bool      `json:"can_use"`
	PlanName       string    `json:"plan_name,omitempty"`
}

// Enforcer gates every invocation attempt against the durable usage ledger.
type Enforcer struct {
	// DB is the GORM handle used for usage_records access.
	DB *gorm.DB
	// Plans resolves the user's current plan limit.
	Plans PlanLookup
	// Location is the fixed reference timezone defining the calendar-day
	// reset boundary.
	Location *time.Location

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewEnforcer constructs an Enforcer. A nil location defaults to UTC.
func NewEnforcer(db *gorm.DB, plans PlanLookup, loc *time.Location) *Enforcer {
	if loc == nil {
		loc = time.UTC
	}
	return &Enforcer{DB: db, Plans: plans, Location: loc, now: time.Now}
}

// CheckAndIncrement admits or denies one invocation for userID, consuming a
// quota slot on admission. The returned Status reflects the state after the
// decision.
//
// Errors:
//   - ErrPlanRestricted when the plan's daily limit is 0.
//   - ErrQuotaExceeded when the day's budget is exhausted; the Status carries
//     the reset time so the caller can tell the user when to come back.
//   - The underlying DB or plan-lookup error otherwise.
//
// The slot is committed before any external call is made, so a spoke failure
// after admission counts as consumed usage.
func (e *Enforcer) CheckAndIncrement(ctx context.Context, userID string) (*Status, error) {
	plan, err := e.Plans.PlanLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	day, reset := e.dayWindow()

	if plan.DailyLimit == 0 {
		return &Status{DailyLimit: 0, ResetTime: reset, PlanName: plan.PlanName}, ErrPlanRestricted
	}

	if err := repo.EnsureUsageRecord(ctx, e.DB, userID, day, plan.DailyLimit); err != nil {
		return nil, err
	}

	if plan.DailyLimit < 0 {
		// Unlimited: still record usage for audit, without a cap.
		if err := repo.Increment(ctx, e.DB, userID, day); err != nil {
			return nil, err
		}
		return &Status{RemainingCount: -1, DailyLimit: -1, ResetTime: reset, CanUse: true, PlanName: plan.PlanName}, nil
	}

	admitted, err := repo.IncrementIfBelow(ctx, e.DB, userID, day, plan.DailyLimit)
	if err != nil {
		return nil, err
	}

	rec, err := repo.GetUsageRecord(ctx, e.DB, userID, day)
	if err != nil {
		return nil, err
	}
	st := &Status{
		RemainingCount: remaining(plan.DailyLimit, rec.Count),
		DailyLimit:     plan.DailyLimit,
		ResetTime:      reset,
		CanUse:         rec.Count < plan.DailyLimit,
		PlanName:       plan.PlanName,
	}
	if !admitted {
		return st, ErrQuotaExceeded
	}
	return st, nil
}

// Peek reports the user's current quota state without mutating anything.
// Calling it any number of times leaves the usage ledger byte-identical.
func (e *Enforcer) Peek(ctx context.Context, userID string) (*Status, error) {
	plan, err := e.Plans.PlanLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	day, reset := e.dayWindow()

	if plan.DailyLimit == 0 {
		return &Status{DailyLimit: 0, ResetTime: reset, PlanName: plan.PlanName}, nil
	}
	if plan.DailyLimit < 0 {
		return &Status{RemainingCount: -1, DailyLimit: -1, ResetTime: reset, CanUse: true, PlanName: plan.PlanName}, nil
	}

	count := 0
	rec, err := repo.GetUsageRecord(ctx, e.DB, userID, day)
	switch {
	case err == nil:
		count = rec.Count
	case err == repo.ErrNotFound:
		// No usage yet today.
	default:
		return nil, err
	}

	return &Status{
		RemainingCount: remaining(plan.DailyLimit, count),
		DailyLimit:     plan.DailyLimit,
		ResetTime:      reset,
		CanUse:         count < plan.DailyLimit,
		PlanName:       plan.PlanName,
	}, nil
}

// dayWindow returns the current calendar day key ("YYYY-MM-DD") in the
// reference timezone and the start of the next calendar day (the reset
// boundary).
func (e *Enforcer) dayWindow() (string, time.Time) {
	now := e.now().In(e.Location)
	day := now.Format("2006-01-02")
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.Location)
	return day, midnight.AddDate(0, 0, 1)
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}
