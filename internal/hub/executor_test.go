package hub

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/domain"
	"github.com/taskmind/go-hub-backend/internal/quota"
	"github.com/taskmind/go-hub-backend/internal/repo"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

// execSpoke lets a test script the spoke call outcome and observe invocations.
type execSpoke struct {
	manifest *catalog.Manifest
	invoke   func(actionType string, params map[string]any) (*spoke.Result, error)
	calls    int
}

func (s *execSpoke) Name() string                { return s.manifest.SpokeName }
func (s *execSpoke) Manifest() *catalog.Manifest { return s.manifest }
func (s *execSpoke) Invoke(_ context.Context, actionType string, params map[string]any, _ spoke.UserContext) (*spoke.Result, error) {
	s.calls++
	if s.invoke != nil {
		return s.invoke(actionType, params)
	}
	return &spoke.Result{Summary: "done"}, nil
}

func newHubDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("hub_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Invocation{}, &domain.UsageRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestExecutor(t *testing.T, dailyLimit int) (*Executor, *execSpoke) {
	t.Helper()

	sp := &execSpoke{
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

	db := newHubDB(t)
	enforcer := quota.NewEnforcer(db, &quota.StaticPlans{
		Limits:      map[string]int{"test": dailyLimit},
		DefaultPlan: "test",
	}, time.UTC)

	e := NewExecutor(db, reg, NewResolver(reg), enforcer, NewContextStore(30*time.Minute, 10))
	return e, sp
}

func usageCount(t *testing.T, db *gorm.DB, userID string) int {
	t.Helper()
	day := time.Now().UTC().Format("2006-01-02")
	rec, err := repo.GetUsageRecord(context.Background(), db, userID, day)
	if errors.Is(err, repo.ErrNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("GetUsageRecord: %v", err)
	}
	return rec.Count
}

func TestSubmit_NonDestructiveExecutes(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}

	out, err := e.Submit(context.Background(), user, "t1", "tasks", "create_task", map[string]any{"title": "buy milk"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Invocation.Status != domain.StatusExecuted {
		t.Fatalf("status = %q", out.Invocation.Status)
	}
	if out.Result == nil || out.Result.Summary != "done" {
		t.Fatalf("result = %+v", out.Result)
	}
	if sp.calls != 1 {
		t.Fatalf("spoke called %d times", sp.calls)
	}
	if n := usageCount(t, e.DB, "u1"); n != 1 {
		t.Fatalf("usage = %d, want 1", n)
	}
}

func TestSubmit_DestructiveParksPending(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}

	out, err := e.Submit(context.Background(), user, "t1", "tasks", "delete_task", map[string]any{"task_id": "abc"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Invocation.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", out.Invocation.Status)
	}
	if out.Confirmation == "" || !strings.Contains(out.Confirmation, "task_id=abc") {
		t.Fatalf("confirmation = %q", out.Confirmation)
	}
	if sp.calls != 0 {
		t.Fatal("spoke invoked before confirmation")
	}
	// The gate itself consumes no quota.
	if n := usageCount(t, e.DB, "u1"); n != 0 {
		t.Fatalf("usage = %d, want 0", n)
	}
}

func TestHandleMessage_ConfirmExecutesPending(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}
	ctx := context.Background()

	first, err := e.Submit(ctx, user, "t1", "tasks", "delete_task", map[string]any{"task_id": "abc"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var gotParams map[string]any
	sp.invoke = func(actionType string, params map[string]any) (*spoke.Result, error) {
		gotParams = params
		return &spoke.Result{Summary: "deleted"}, nil
	}

	out, err := e.HandleMessage(ctx, user, "t1", "yes")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if out.Invocation.ID != first.Invocation.ID || out.Invocation.Status != domain.StatusExecuted {
		t.Fatalf("invocation = %+v", out.Invocation)
	}
	if gotParams["task_id"] != "abc" {
		t.Fatalf("spoke params = %v", gotParams)
	}
	if n := usageCount(t, e.DB, "u1"); n != 1 {
		t.Fatalf("usage = %d, want 1", n)
	}
	// Confirmation consumed: a second "yes" has nothing to apply to.
	if _, err := e.HandleMessage(ctx, user, "t1", "yes"); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
}

func TestHandleMessage_CancelRejectsPending(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}
	ctx := context.Background()

	if _, err := e.Submit(ctx, user, "t1", "tasks", "delete_task", map[string]any{"task_id": "abc"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out, err := e.HandleMessage(ctx, user, "t1", "cancel")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if out.Invocation.Status != domain.StatusRejected || out.Invocation.Reason != "cancelled by user" {
		t.Fatalf("invocation = %+v", out.Invocation)
	}
	if sp.calls != 0 {
		t.Fatal("spoke invoked despite cancellation")
	}
	if n := usageCount(t, e.DB, "u1"); n != 0 {
		t.Fatalf("usage = %d, want 0", n)
	}
}

func TestHandleMessage_StrayReplyNothingPending(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}
	ctx := context.Background()

	// A bare affirmative on a thread with no pending invocation must not fall
	// through to catalog matching.
	out, err := e.HandleMessage(ctx, user, "t1", "yes")
	if !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
	if out.Clarification != "There is nothing waiting for confirmation." {
		t.Fatalf("clarification = %q", out.Clarification)
	}

	out, err = e.HandleMessage(ctx, user, "t1", "cancel")
	if !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
	if out.Clarification != "There is nothing to cancel." {
		t.Fatalf("clarification = %q", out.Clarification)
	}

	if sp.calls != 0 {
		t.Fatal("spoke invoked by a stray reply")
	}
	if n := usageCount(t, e.DB, "u1"); n != 0 {
		t.Fatalf("usage = %d, want 0", n)
	}
}

func TestExecute_QuotaDenialRejects(t *testing.T) {
	e, _ := newTestExecutor(t, 1)
	user := spoke.UserContext{UserID: "u1"}
	ctx := context.Background()

	if _, err := e.Submit(ctx, user, "t1", "tasks", "create_task", map[string]any{"title": "a"}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	out, err := e.Submit(ctx, user, "t1", "tasks", "create_task", map[string]any{"title": "b"})
	if !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if out.Invocation.Status != domain.StatusRejected {
		t.Fatalf("status = %q", out.Invocation.Status)
	}
	if !strings.HasPrefix(out.Invocation.Reason, "quota exceeded") {
		t.Fatalf("reason = %q", out.Invocation.Reason)
	}
}

func TestExecute_PlanRestrictedRejects(t *testing.T) {
	e, sp := newTestExecutor(t, 0)
	user := spoke.UserContext{UserID: "u1"}

	out, err := e.Submit(context.Background(), user, "t1", "tasks", "create_task", map[string]any{"title": "a"})
	if !errors.Is(err, quota.ErrPlanRestricted) {
		t.Fatalf("expected ErrPlanRestricted, got %v", err)
	}
	if out.Invocation.Status != domain.StatusRejected {
		t.Fatalf("status = %q", out.Invocation.Status)
	}
	if sp.calls != 0 {
		t.Fatal("spoke invoked on restricted plan")
	}
}

func TestSubmit_UnknownActionFailsClosed(t *testing.T) {
	e, _ := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}

	out, err := e.Submit(context.Background(), user, "t1", "tasks", "purge_everything", nil)
	if !errors.Is(err, spoke.ErrNotFound) {
		t.Fatalf("expected spoke.ErrNotFound, got %v", err)
	}
	if out.Invocation.Status != domain.StatusRejected {
		t.Fatalf("status = %q", out.Invocation.Status)
	}
	if n := usageCount(t, e.DB, "u1"); n != 0 {
		t.Fatalf("usage = %d, want 0", n)
	}
}

func TestSubmit_ParameterValidationRejects(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}

	out, err := e.Submit(context.Background(), user, "t1", "tasks", "create_task", map[string]any{})
	var perr *catalog.ParameterError
	if !errors.As(err, &perr) || perr.Field != "title" {
		t.Fatalf("expected ParameterError on title, got %v", err)
	}
	if out.Invocation.Status != domain.StatusRejected {
		t.Fatalf("status = %q", out.Invocation.Status)
	}
	if sp.calls != 0 {
		t.Fatal("spoke invoked with invalid parameters")
	}
	if n := usageCount(t, e.DB, "u1"); n != 0 {
		t.Fatalf("usage = %d, want 0", n)
	}
}

func TestHandleMessage_ExpiredContextNeverExecutes(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	e.Contexts.now = func() time.Time { return base }

	first, err := e.Submit(ctx, user, "t1", "tasks", "delete_task", map[string]any{"task_id": "abc"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	e.Contexts.now = func() time.Time { return base.Add(time.Hour) }
	out, err := e.HandleMessage(ctx, user, "t1", "yes")
	if !errors.Is(err, ErrContextExpired) {
		t.Fatalf("expected ErrContextExpired, got %v", err)
	}
	if out.Invocation.ID != first.Invocation.ID || out.Invocation.Status != domain.StatusRejected {
		t.Fatalf("invocation = %+v", out.Invocation)
	}
	if sp.calls != 0 {
		t.Fatal("stale parameters were executed")
	}
}

func TestExecute_SpokeFailureMarksFailed(t *testing.T) {
	e, sp := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}
	sp.invoke = func(string, map[string]any) (*spoke.Result, error) {
		return nil, errors.New("upstream 503")
	}

	out, err := e.Submit(context.Background(), user, "t1", "tasks", "create_task", map[string]any{"title": "a"})
	var serr *SpokeError
	if !errors.As(err, &serr) || serr.SpokeName != "tasks" {
		t.Fatalf("expected SpokeError, got %v", err)
	}
	if out.Invocation.Status != domain.StatusFailed || out.Invocation.Reason != "upstream 503" {
		t.Fatalf("invocation = %+v", out.Invocation)
	}
	// The slot was committed before the call and stands.
	if n := usageCount(t, e.DB, "u1"); n != 1 {
		t.Fatalf("usage = %d, want 1", n)
	}
}

func TestHandleMessage_NoMatchAndAmbiguous(t *testing.T) {
	e, _ := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}
	ctx := context.Background()

	out, err := e.HandleMessage(ctx, user, "t1", "what's the weather")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if out.Invocation != nil || out.Clarification == "" {
		t.Fatalf("outcome = %+v", out)
	}

	out, err = e.HandleMessage(ctx, user, "t1", "task")
	if !errors.Is(err, ErrAmbiguousIntent) {
		t.Fatalf("expected ErrAmbiguousIntent, got %v", err)
	}
	if len(out.Candidates) != 2 || out.Invocation != nil {
		t.Fatalf("outcome = %+v", out)
	}
	if n := usageCount(t, e.DB, "u1"); n != 0 {
		t.Fatalf("clarifications consumed quota: %d", n)
	}
}

func TestHandleMessage_FreeFormResolvesAndExecutes(t *testing.T) {
	e, _ := newTestExecutor(t, 10)
	user := spoke.UserContext{UserID: "u1"}

	out, err := e.HandleMessage(context.Background(), user, "t1", `create task "call the bank"`)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if out.Invocation.Status != domain.StatusExecuted || out.Invocation.ActionType != "create_task" {
		t.Fatalf("invocation = %+v", out.Invocation)
	}
}
