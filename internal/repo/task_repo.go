// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Task model
// used by the "tasks" spoke.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskmind/go-hub-backend/internal/domain"
)

// CreateTask inserts a new Task row owned by userID.
func CreateTask(ctx context.Context, db *gorm.DB, userID, title, notes string, dueAt *time.Time) (*domain.Task, error) {
	t := &domain.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Notes:     notes,
		DueAt:     dueAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns the user's tasks, most recent first. When includeDone is
// false, completed tasks are filtered out.
func ListTasks(ctx context.Context, db *gorm.DB, userID string, includeDone bool) ([]domain.Task, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeDone {
		q = q.Where("done = ?", false)
	}
	var out []domain.Task
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

// GetTask fetches a task by ID ensuring it belongs to the user, or ErrNotFound.
func GetTask(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Task, error) {
	var t domain.Task
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks a task done, enforcing ownership. Zero rows affected is
// reported as ErrNotFound.
func CompleteTask(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("done", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask soft-deletes a task, enforcing ownership. Zero rows affected is
// reported as ErrNotFound.
func DeleteTask(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
