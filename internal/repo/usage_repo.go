// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the UsageRecord
// model, the durable per-user, per-day admission ledger.
//
// The critical operation is IncrementIfBelow: a single conditional UPDATE
// against the usage row. Check-then-increment as two steps would be a race
// that admits over-quota execution under concurrent requests from the same
// user (two chat tabs); the conditional UPDATE makes admission atomic at the
// database, so N concurrent attempts with K slots left yield exactly K
// admissions.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskmind/go-hub-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// EnsureUsageRecord lazily creates the (userID, usageDate) row with a zero
// count, recording the plan limit in force. An existing row is left intact
// (insert-or-ignore), so concurrent first-of-day requests cannot clobber
// each other.
func EnsureUsageRecord(ctx context.Context, db *gorm.DB, userID, usageDate string, planLimit int) error {
	rec := &domain.UsageRecord{
		UserID:    userID,
		UsageDate: usageDate,
		Count:     0,
		PlanLimit: planLimit,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
}

// IncrementIfBelow atomically increments the day's count when it is still
// below limit. It reports whether the increment was applied; false means the
// limit is exhausted (or the row is missing, which callers prevent via
// EnsureUsageRecord).
func IncrementIfBelow(ctx context.Context, db *gorm.DB, userID, usageDate string, limit int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.UsageRecord{}).
		Where("user_id = ? AND usage_date = ? AND count < ?", userID, usageDate, limit).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Increment unconditionally increments the day's count. Used for unlimited
// plans where usage is still recorded for audit.
func Increment(ctx context.Context, db *gorm.DB, userID, usageDate string) error {
	return db.WithContext(ctx).
		Model(&domain.UsageRecord{}).
		Where("user_id = ? AND usage_date = ?", userID, usageDate).
		UpdateColumn("count", gorm.Expr("count + 1")).Error
}

// GetUsageRecord fetches the day's row, or ErrNotFound when the user has not
// invoked anything yet that day. Strictly read-only.
func GetUsageRecord(ctx context.Context, db *gorm.DB, userID, usageDate string) (*domain.UsageRecord, error) {
	var rec domain.UsageRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND usage_date = ?", userID, usageDate).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
