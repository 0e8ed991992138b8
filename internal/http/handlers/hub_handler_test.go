package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/domain"
	"github.com/taskmind/go-hub-backend/internal/hub"
	"github.com/taskmind/go-hub-backend/internal/http/middleware"
	"github.com/taskmind/go-hub-backend/internal/quota"
	"github.com/taskmind/go-hub-backend/internal/repo"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

// testSpoke scripts the spoke outcome and counts external calls.
type testSpoke struct {
	manifest *catalog.Manifest
	invoke   func(actionType string, params map[string]any) (*spoke.Result, error)
	calls    int
}

func (s *testSpoke) Name() string                { return s.manifest.SpokeName }
func (s *testSpoke) Manifest() *catalog.Manifest { return s.manifest }
func (s *testSpoke) Invoke(_ context.Context, actionType string, params map[string]any, _ spoke.UserContext) (*spoke.Result, error) {
	s.calls++
	if s.invoke != nil {
		return s.invoke(actionType, params)
	}
	return &spoke.Result{Summary: "done"}, nil
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	spoke  *testSpoke
}

func newTestEnv(t *testing.T, dailyLimit int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	sp := &testSpoke{
		manifest: &catalog.Manifest{
			SpokeName:   "tasks",
			DisplayName: "Tasks",
			Actions: []catalog.ActionDefinition{
				{
					ActionType:  "create_task",
					DisplayName: "Create task",
					Description: "Add a new task to your list",
					Parameters: map[string]catalog.Parameter{
						"title": {Type: catalog.TypeString, Required: true},
					},
				},
				{
					ActionType:  "delete_task",
					DisplayName: "Delete task",
					Description: "Remove a task permanently",
					Destructive: true,
					Parameters: map[string]catalog.Parameter{
						"task_id": {Type: catalog.TypeString, Required: true},
					},
				},
			},
		},
	}
	if err := sp.manifest.Validate(); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	reg := spoke.NewRegistry()
	if err := reg.Register(sp); err != nil {
		t.Fatalf("register: %v", err)
	}

	enforcer := quota.NewEnforcer(db, &quota.StaticPlans{
		Limits:      map[string]int{"test": dailyLimit},
		DefaultPlan: "test",
	}, time.UTC)
	exec := hub.NewExecutor(db, reg, hub.NewResolver(reg), enforcer, hub.NewContextStore(30*time.Minute, 10))
	h := New(db, exec, enforcer, reg, time.Hour)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			return repo.FindIdempotencyKey(ctx, db, userID, key, now)
		}))
	r.POST("/hub/messages", h.PostMessage)
	r.GET("/hub/actions", h.ListActions)
	r.GET("/hub/quota", h.GetQuota)
	r.GET("/hub/invocations", h.ListInvocations)

	return &testEnv{router: r, db: db, spoke: sp}
}

func (e *testEnv) post(t *testing.T, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/hub/messages", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(t *testing.T, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestPostMessage_StructuredExecutes(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.post(t, PostMessageRequest{
		ThreadID:   "t1",
		SpokeName:  "tasks",
		ActionType: "create_task",
		Parameters: map[string]any{"title": "buy milk"},
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decode[MessageResponse](t, w)
	if resp.Invocation == nil || resp.Invocation.Status != domain.StatusExecuted {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Result == nil || resp.Result.Summary != "done" {
		t.Fatalf("result = %+v", resp.Result)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	env := newTestEnv(t, 10)

	cases := []struct {
		name string
		body any
	}{
		{"missing thread_id", map[string]any{"message": "hi"}},
		{"no message or action", PostMessageRequest{ThreadID: "t1"}},
		{"spoke without action", PostMessageRequest{ThreadID: "t1", SpokeName: "tasks"}},
	}
	for _, tc := range cases {
		w := env.post(t, tc.body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d body=%s", tc.name, w.Code, w.Body.String())
		}
		resp := decode[ErrorResponse](t, w)
		if resp.Code != ErrCodeBadRequest {
			t.Fatalf("%s: code = %q", tc.name, resp.Code)
		}
	}
}

func TestPostMessage_ClarificationIs200(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.post(t, PostMessageRequest{ThreadID: "t1", Message: "what's the weather"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decode[MessageResponse](t, w)
	if resp.Invocation != nil || resp.Clarification == "" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestPostMessage_QuotaExceededIs429(t *testing.T) {
	env := newTestEnv(t, 1)
	body := PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task",
		Parameters: map[string]any{"title": "a"}}

	if w := env.post(t, body, nil); w.Code != http.StatusOK {
		t.Fatalf("first call: %d", w.Code)
	}
	w := env.post(t, body, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeQuotaExceeded {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPostMessage_PlanRestrictedIs403(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task",
		Parameters: map[string]any{"title": "a"}}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodePlanRestricted {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPostMessage_UnknownActionIs404(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "purge_everything"}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPostMessage_InvalidParamsIs422(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task"}, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeParameterInvalid {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPostMessage_SpokeFailureIs502(t *testing.T) {
	env := newTestEnv(t, 10)
	env.spoke.invoke = func(string, map[string]any) (*spoke.Result, error) {
		return nil, fmt.Errorf("upstream 503")
	}

	w := env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task",
		Parameters: map[string]any{"title": "a"}}, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeSpokeFailed {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPostMessage_ConfirmationFlow(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "delete_task",
		Parameters: map[string]any{"task_id": "abc"}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d body=%s", w.Code, w.Body.String())
	}
	first := decode[MessageResponse](t, w)
	if first.Invocation.Status != domain.StatusPending || first.Confirmation == "" {
		t.Fatalf("response = %+v", first)
	}
	if env.spoke.calls != 0 {
		t.Fatal("spoke invoked before confirmation")
	}

	w = env.post(t, PostMessageRequest{ThreadID: "t1", Message: "yes"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d body=%s", w.Code, w.Body.String())
	}
	second := decode[MessageResponse](t, w)
	if second.Invocation.ID != first.Invocation.ID || second.Invocation.Status != domain.StatusExecuted {
		t.Fatalf("response = %+v", second)
	}
	if env.spoke.calls != 1 {
		t.Fatalf("spoke calls = %d", env.spoke.calls)
	}
}

func TestPostMessage_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t, 10)
	body := PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task",
		Parameters: map[string]any{"title": "buy milk"}}
	headers := map[string]string{middleware.HeaderIdempotencyKey: "retry-key-1"}

	w := env.post(t, body, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("first: %d body=%s", w.Code, w.Body.String())
	}
	first := decode[MessageResponse](t, w)

	w = env.post(t, body, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("retry: %d body=%s", w.Code, w.Body.String())
	}
	second := decode[MessageResponse](t, w)
	if !second.Replay {
		t.Fatalf("retry not marked as replay: %+v", second)
	}
	if second.Invocation.ID != first.Invocation.ID {
		t.Fatalf("replay returned a different invocation: %s vs %s", second.Invocation.ID, first.Invocation.ID)
	}
	if env.spoke.calls != 1 {
		t.Fatalf("spoke calls = %d, want 1", env.spoke.calls)
	}
}

func TestPostMessage_MalformedIdempotencyKey(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.post(t, PostMessageRequest{ThreadID: "t1", Message: "hi"},
		map[string]string{middleware.HeaderIdempotencyKey: "bad key with spaces"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestListActions(t *testing.T) {
	env := newTestEnv(t, 10)

	w := env.get(t, "/hub/actions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ListActionsResponse](t, w)
	if len(resp.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(resp.Actions))
	}
	if resp.Actions[0].ActionType != "create_task" || resp.Actions[1].ActionType != "delete_task" {
		t.Fatalf("actions = %+v", resp.Actions)
	}
}

func TestGetQuota(t *testing.T) {
	env := newTestEnv(t, 5)

	w := env.get(t, "/hub/quota", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decode[QuotaResponse](t, w)
	if resp.RemainingCount != 5 || resp.DailyLimit != 5 || !resp.CanUseChat {
		t.Fatalf("quota = %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp.ResetTime); err != nil {
		t.Fatalf("reset_time = %q: %v", resp.ResetTime, err)
	}

	// Consume one slot and re-check; the read itself never consumes.
	env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task",
		Parameters: map[string]any{"title": "a"}}, nil)
	for i := 0; i < 2; i++ {
		resp = decode[QuotaResponse](t, env.get(t, "/hub/quota", nil))
		if resp.RemainingCount != 4 {
			t.Fatalf("remaining = %d, want 4", resp.RemainingCount)
		}
	}
}

func TestListInvocations_Pagination(t *testing.T) {
	env := newTestEnv(t, 100)

	for i := 0; i < 5; i++ {
		w := env.post(t, PostMessageRequest{ThreadID: "t1", SpokeName: "tasks", ActionType: "create_task",
			Parameters: map[string]any{"title": fmt.Sprintf("task %d", i)}}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("seed %d: %d", i, w.Code)
		}
	}

	w := env.get(t, "/hub/invocations?page=1&page_size=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decode[ListInvocationsResponse](t, w)
	if len(resp.Invocations) != 3 || resp.Pagination.Total != 5 {
		t.Fatalf("page 1: %d items, total %d", len(resp.Invocations), resp.Pagination.Total)
	}
	if resp.Pagination.TotalPages != 2 || !resp.Pagination.HasNext {
		t.Fatalf("pagination = %+v", resp.Pagination)
	}

	resp = decode[ListInvocationsResponse](t, env.get(t, "/hub/invocations?page=2&page_size=3", nil))
	if len(resp.Invocations) != 2 || resp.Pagination.HasNext {
		t.Fatalf("page 2: %d items, pagination %+v", len(resp.Invocations), resp.Pagination)
	}

	// Another user sees an empty history.
	resp = decode[ListInvocationsResponse](t, env.get(t, "/hub/invocations", map[string]string{"X-User-ID": "someone-else"}))
	if resp.Pagination.Total != 0 {
		t.Fatalf("foreign history leaked: %+v", resp.Pagination)
	}
}
