// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants give clients a stable, machine-readable error
// taxonomy alongside human-readable messages. Generic codes mirror common
// HTTP status semantics; dispatcher-specific codes cover outcomes that a
// status alone cannot convey (an exhausted quota and a plan without action
// access both deny the request, but the client remedies differ).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "quota_exceeded",
//	  "message": "quota exceeded, resets 2026-08-30T00:00:00Z"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Dispatcher-specific:
	ErrCodeQuotaExceeded    = "quota_exceeded"
	ErrCodePlanRestricted   = "plan_restricted"
	ErrCodeNoMatch          = "no_match"
	ErrCodeAmbiguous        = "ambiguous_intent"
	ErrCodeContextExpired   = "context_expired"
	ErrCodeParameterInvalid = "parameter_invalid"
	ErrCodeSpokeFailed      = "spoke_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
