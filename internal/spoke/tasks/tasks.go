// Package tasks implements the task-store spoke: the one integration whose
// records the hub itself persists. Actions cover the task lifecycle the chat
// surface exposes (create, list, complete, delete); the wider task-management
// product owns any richer task schema.
package tasks

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/repo"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

//go:embed manifest.json
var manifestJSON []byte

// Spoke is the tasks integration, backed by the hub's own GORM store.
type Spoke struct {
	db       *gorm.DB
	manifest *catalog.Manifest
}

// New parses the embedded manifest and returns the spoke. A manifest error
// here is a build defect and is fatal at startup.
func New(db *gorm.DB) (*Spoke, error) {
	m, err := catalog.ParseManifest(manifestJSON)
	if err != nil {
		return nil, err
	}
	return &Spoke{db: db, manifest: m}, nil
}

// Name implements spoke.Spoke.
func (s *Spoke) Name() string { return "tasks" }

// Manifest implements spoke.Spoke.
func (s *Spoke) Manifest() *catalog.Manifest { return s.manifest }

// Invoke implements spoke.Spoke. Parameters arrive validated and
// type-normalized by the executor.
func (s *Spoke) Invoke(ctx context.Context, actionType string, params map[string]any, user spoke.UserContext) (*spoke.Result, error) {
	switch actionType {
	case "create_task":
		title, _ := params["title"].(string)
		notes, _ := params["notes"].(string)
		var dueAt *time.Time
		if t, ok := params["due_at"].(time.Time); ok {
			dueAt = &t
		}
		task, err := repo.CreateTask(ctx, s.db, user.UserID, title, notes, dueAt)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: fmt.Sprintf("Created task %q.", task.Title), Data: task}, nil

	case "list_tasks":
		includeDone, _ := params["include_done"].(bool)
		items, err := repo.ListTasks(ctx, s.db, user.UserID, includeDone)
		if err != nil {
			return nil, err
		}
		return &spoke.Result{Summary: fmt.Sprintf("You have %d task(s).", len(items)), Data: items}, nil

	case "complete_task":
		id, _ := params["task_id"].(string)
		if err := repo.CompleteTask(ctx, s.db, id, user.UserID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("task %s not found", id)
			}
			return nil, err
		}
		return &spoke.Result{Summary: "Task completed."}, nil

	case "delete_task":
		id, _ := params["task_id"].(string)
		if err := repo.DeleteTask(ctx, s.db, id, user.UserID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("task %s not found", id)
			}
			return nil, err
		}
		return &spoke.Result{Summary: "Task deleted."}, nil
	}
	return nil, fmt.Errorf("tasks: unknown action %q", actionType)
}
