// Hub HTTP handlers.
//
// This file exposes the dispatcher endpoints:
//   - POST /hub/messages     (submit a message or structured action request)
//   - GET  /hub/actions      (catalog of registered actions)
//   - GET  /hub/invocations  (invocation history, paginated)
//
// Handlers are transport-thin: they validate input, call the executor, and
// translate the outcome (or the hub error taxonomy) into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/domain"
	"github.com/taskmind/go-hub-backend/internal/hub"
	"github.com/taskmind/go-hub-backend/internal/http/middleware"
	"github.com/taskmind/go-hub-backend/internal/quota"
	"github.com/taskmind/go-hub-backend/internal/repo"
	"github.com/taskmind/go-hub-backend/internal/spoke"
	"github.com/taskmind/go-hub-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// Dispatcher defines the executor operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type Dispatcher interface {
	// HandleMessage resolves a free-text message on a thread and drives the
	// invocation lifecycle.
	HandleMessage(ctx context.Context, user spoke.UserContext, threadID, message string) (*hub.Outcome, error)
	// Submit dispatches a pre-structured action request, skipping resolution.
	Submit(ctx context.Context, user spoke.UserContext, threadID, spokeName, actionType string, params map[string]any) (*hub.Outcome, error)
}

// QuotaReader reports a user's quota state without consuming a slot.
type QuotaReader interface {
	Peek(ctx context.Context, userID string) (*quota.Status, error)
}

// ActionLister enumerates the registered action catalog.
type ActionLister interface {
	ListActions() []catalog.ActionDefinition
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the dispatcher, quota display, and
// invocation history. Transport concerns stay here; orchestration lives in
// the injected Dispatcher.
type Handlers struct {
	db      *gorm.DB
	exec    Dispatcher
	quota   QuotaReader
	actions ActionLister
	idemTTL time.Duration
}

// New constructs a Handlers instance bound to the given collaborators.
func New(db *gorm.DB, exec Dispatcher, q QuotaReader, actions ActionLister, idemTTL time.Duration) *Handlers {
	return &Handlers{db: db, exec: exec, quota: q, actions: actions, idemTTL: idemTTL}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// PostMessageRequest is the JSON payload for submitting a message or a
// structured action request. Either Message or the SpokeName/ActionType pair
// must be provided.
type PostMessageRequest struct {
	// ThreadID identifies the conversation thread.
	ThreadID string `json:"thread_id" binding:"required" example:"thread-42"`
	// Message is a free-text request to resolve against the catalog.
	Message string `json:"message,omitempty" example:"delete task id:7c9e6679"`
	// SpokeName/ActionType/Parameters submit a structured request directly.
	SpokeName  string         `json:"spoke_name,omitempty" example:"tasks"`
	ActionType string         `json:"action_type,omitempty" example:"delete_task"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// MessageResponse is the invocation envelope returned by PostMessage.
// Exactly one of Invocation/Clarification carries the outcome; Confirmation
// accompanies a pending destructive invocation, Result an executed one.
type MessageResponse struct {
	Invocation    *domain.Invocation         `json:"invocation,omitempty"`
	Result        *spoke.Result              `json:"result,omitempty"`
	Confirmation  string                     `json:"confirmation,omitempty"`
	Clarification string                     `json:"clarification,omitempty"`
	Candidates    []catalog.ActionDefinition `json:"candidates,omitempty"`
	Replay        bool                       `json:"replay,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListInvocationsResponse wraps a page of invocations.
type ListInvocationsResponse struct {
	Invocations []domain.Invocation `json:"invocations"`
	Pagination  Pagination          `json:"pagination"`
}

// ListActionsResponse wraps the registered action catalog.
type ListActionsResponse struct {
	Actions []catalog.ActionDefinition `json:"actions"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// PostMessage godoc
// @ID          postHubMessage
// @Summary     Submit a message or action request
// @Description Resolves a free-text message (or a structured spoke/action pair) and drives the invocation lifecycle: resolution, quota admission, confirmation gating for destructive actions, and execution.
// @Tags        Hub
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Safe-retry key for this submission"
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse "Plan restricted"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown action"
// @Failure     409  {object}  handlers.ErrorResponse "Context expired"
// @Failure     422  {object}  handlers.ErrorResponse "Invalid parameters"
// @Failure     429  {object}  handlers.ErrorResponse "Quota exceeded"
// @Failure     502  {object}  handlers.ErrorResponse "Spoke failure"
// @Router      /hub/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	structured := req.SpokeName != "" || req.ActionType != ""
	if strings.TrimSpace(req.Message) == "" && !structured {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message or spoke_name/action_type required")
		return
	}
	if structured && (req.SpokeName == "" || req.ActionType == "") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "spoke_name and action_type must be provided together")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	user := spoke.UserContext{UserID: uid}

	// Serve a replay instead of dispatching again.
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey {
		if rec, err := repo.GetIdempotency(ctx, h.db, uid, req.ThreadID, idemKey, time.Now().UTC()); err == nil {
			inv, gerr := repo.GetInvocation(ctx, h.db, rec.InvocationID, uid)
			if gerr == nil {
				ok(c, rec.Status, MessageResponse{Invocation: inv, Replay: true})
				return
			}
		}
	}

	var (
		out *hub.Outcome
		err error
	)
	if structured {
		out, err = h.exec.Submit(ctx, user, req.ThreadID, req.SpokeName, req.ActionType, req.Parameters)
	} else {
		out, err = h.exec.HandleMessage(ctx, user, req.ThreadID, req.Message)
	}
	if out == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	status, code, msg := classify(err)
	if code != "" {
		fail(c, status, code, msg)
		return
	}

	h.recordKey(ctx, uid, req.ThreadID, idemKey, hasKey, out, status)
	ok(c, status, MessageResponse{
		Invocation:    out.Invocation,
		Result:        out.Result,
		Confirmation:  out.Confirmation,
		Clarification: out.Clarification,
		Candidates:    out.Candidates,
	})
}

// recordKey persists the idempotency record for a successful submission,
// best effort. Denied or clarification outcomes are not recorded; retrying
// them is harmless (or desirable, once the quota resets).
func (h *Handlers) recordKey(ctx context.Context, uid, threadID, key string, hasKey bool, out *hub.Outcome, status int) {
	if !hasKey || out == nil || out.Invocation == nil {
		return
	}
	_, _ = repo.CreateIdempotency(ctx, h.db, uid, threadID, key, out.Invocation.ID, status, h.idemTTL)
}

// classify maps the hub error taxonomy onto (status, code, message). A nil
// error and the conversational outcomes (no match, ambiguity, nothing
// pending) yield an empty code: they are served as 200 with a clarification,
// not as transport errors.
func classify(err error) (int, string, string) {
	var paramErr *catalog.ParameterError
	var spokeErr *hub.SpokeError
	switch {
	case err == nil,
		errors.Is(err, hub.ErrNoMatch),
		errors.Is(err, hub.ErrAmbiguousIntent),
		errors.Is(err, hub.ErrNothingPending):
		return http.StatusOK, "", ""
	case errors.Is(err, quota.ErrPlanRestricted):
		return http.StatusForbidden, ErrCodePlanRestricted, "your plan does not include actions"
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests, ErrCodeQuotaExceeded, "daily action limit reached"
	case errors.Is(err, hub.ErrContextExpired):
		return http.StatusConflict, ErrCodeContextExpired, "the pending confirmation expired; please start over"
	case errors.Is(err, spoke.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "unknown spoke or action"
	case errors.As(err, &paramErr):
		return http.StatusUnprocessableEntity, ErrCodeParameterInvalid, paramErr.Error()
	case errors.As(err, &spokeErr):
		return http.StatusBadGateway, ErrCodeSpokeFailed, spokeErr.Error()
	default:
		return http.StatusInternalServerError, ErrCodeInternal, err.Error()
	}
}

// ListActions godoc
// @ID          listHubActions
// @Summary     List registered actions
// @Description Returns the catalog of actions currently registered across all spokes, sorted by identity.
// @Tags        Hub
// @Produce     json
//
// @Success     200  {object}  handlers.ListActionsResponse
// @Router      /hub/actions [get]
func (h *Handlers) ListActions(c *gin.Context) {
	ok(c, http.StatusOK, ListActionsResponse{Actions: h.actions.ListActions()})
}

// ListInvocations godoc
// @ID          listHubInvocations
// @Summary     List invocation history (paginated)
// @Description Returns a page of the user's invocations, newest first.
// @Tags        Hub
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       query   int     false "Page number"      minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListInvocationsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /hub/invocations [get]
func (h *Handlers) ListInvocations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	total, err := repo.CountInvocations(ctx, h.db, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	items, err := repo.ListInvocationsPage(ctx, h.db, uid, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListInvocationsResponse{
		Invocations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
