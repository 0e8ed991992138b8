// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Invocation
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Status-machine rules live in the
// executor; the repository only guards transitions structurally (an update
// names the expected current status so a lost race surfaces as ErrNotFound
// instead of overwriting a terminal state).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskmind/go-hub-backend/internal/domain"
)

// CreateInvocation inserts a new Invocation row in the given status with an
// optional terminal reason. The ID is a randomly generated UUID and
// RequestedAt is set to UTC now.
func CreateInvocation(ctx context.Context, db *gorm.DB, userID, threadID, spokeName, actionType, params, status, reason string) (*domain.Invocation, error) {
	inv := &domain.Invocation{
		ID:          uuid.NewString(),
		UserID:      userID,
		ThreadID:    threadID,
		SpokeName:   spokeName,
		ActionType:  actionType,
		Parameters:  params,
		Status:      status,
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvocation fetches a single invocation by ID and owner, or ErrNotFound.
func GetInvocation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Invocation, error) {
	var inv domain.Invocation
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// TransitionInvocation moves an invocation from one status to another,
// recording an optional reason. The update is conditional on the current
// status; zero rows affected means the invocation is missing or was already
// moved by a concurrent request, reported as ErrNotFound.
func TransitionInvocation(ctx context.Context, db *gorm.DB, id, from, to, reason string) error {
	res := db.WithContext(ctx).
		Model(&domain.Invocation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountInvocations returns the total number of invocations owned by userID.
func CountInvocations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Invocation{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListInvocationsPage returns a paginated slice of invocations for userID,
// most recent first. The caller computes offset and limit.
func ListInvocationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Invocation, error) {
	var out []domain.Invocation
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
