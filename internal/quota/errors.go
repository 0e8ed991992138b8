// Package quota – error values.
//
// QuotaExceeded and PlanRestricted are deliberately distinct so the UI can
// offer "wait for reset" versus "upgrade plan" respectively.
package quota

import "errors"

var (
	// ErrQuotaExceeded indicates the user's daily invocation budget is spent.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrPlanRestricted indicates the user's plan does not include
	// AI-mediated actions at all (daily limit 0).
	ErrPlanRestricted = errors.New("feature not available on this plan")
)
