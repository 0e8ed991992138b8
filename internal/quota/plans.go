// Package quota – plan lookup implementations.
//
// The billing system (plan purchase, Stripe state) lives outside this core;
// StaticPlans is the deployment-time default that maps a user's plan name to
// a daily limit from configuration. Production wiring replaces it with a
// lookup against the subscription service.
package quota

import (
	"context"
	"strings"
)

// UserPlanResolver maps a user to a plan name. The HTTP layer supplies an
// implementation that reads the plan claim established upstream (session or
// gateway); tests supply a fixed mapping.
type UserPlanResolver func(ctx context.Context, userID string) (string, error)

// StaticPlans resolves plan limits from an in-memory table keyed by plan
// name. Unknown plans fall back to DefaultPlan.
type StaticPlans struct {
	// Limits maps plan name (lower-case) to daily limit (-1 unlimited,
	// 0 feature-unavailable).
	Limits map[string]int
	// DefaultPlan names the plan assumed when the resolver yields none.
	DefaultPlan string
	// Resolver maps userID to plan name; nil means every user is on
	// DefaultPlan.
	Resolver UserPlanResolver
}

// PlanLimit implements PlanLookup.
func (p *StaticPlans) PlanLimit(ctx context.Context, userID string) (PlanLimit, error) {
	name := p.DefaultPlan
	if p.Resolver != nil {
		resolved, err := p.Resolver(ctx, userID)
		if err != nil {
			return PlanLimit{}, err
		}
		if resolved != "" {
			name = resolved
		}
	}
	name = strings.ToLower(strings.TrimSpace(name))

	limit, ok := p.Limits[name]
	if !ok {
		limit = p.Limits[strings.ToLower(p.DefaultPlan)]
	}
	return PlanLimit{DailyLimit: limit, PlanName: name}, nil
}
