// Package domain defines the persistence models for action invocations,
// daily usage records, and task records. These types are mapped with GORM
// and form the core data layer of the action hub backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Invocation statuses. An invocation moves Pending → Confirmed → Executed,
// or terminates early as Rejected/Failed. A destructive action must pass
// through Confirmed before it may be Executed.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusExecuted  = "executed"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// Invocation represents one user-triggered attempt to execute a spoke action.
// It is created per request and tracked through its status lifecycle.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the requesting user; indexed for history queries.
//   - ThreadID: conversation thread the request arrived on.
//   - SpokeName / ActionType: identity of the resolved ActionDefinition.
//   - Parameters: JSON-encoded parameter map as validated at submission.
//   - Status: one of the Status* constants above.
//   - Reason: terminal detail (quota denial, spoke error, cancellation, ...).
//   - RequestedAt: submission time (UTC).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Invocation struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_invocations,priority:1"`
	ThreadID    string         `json:"thread_id"   gorm:"type:varchar(64);not null;index"`
	SpokeName   string         `json:"spoke_name"  gorm:"type:varchar(64);not null"`
	ActionType  string         `json:"action_type" gorm:"type:varchar(64);not null"`
	Parameters  string         `json:"parameters"  gorm:"type:text;not null;default:'{}'"`
	Status      string         `json:"status"      gorm:"type:varchar(16);not null;check:status IN ('pending','confirmed','executed','rejected','failed')"`
	Reason      string         `json:"reason,omitempty" gorm:"type:varchar(255)"`
	RequestedAt time.Time      `json:"requested_at"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index:idx_user_invocations,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Invocation.
func (Invocation) TableName() string { return "invocations" }

// Terminal reports whether the invocation has reached a final status.
func (i Invocation) Terminal() bool {
	switch i.Status {
	case StatusExecuted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// UsageRecord tracks admitted invocations for one user on one calendar day
// (in the configured reference timezone). One row per user per day, created
// lazily on the first invocation of the day and mutated atomically on each
// admitted invocation. Rows are never deleted within the retention policy;
// they back audit and billing disputes.
//
// Fields:
//   - UserID / UsageDate: composite primary key; UsageDate is "YYYY-MM-DD".
//   - Count: number of admitted invocations for the day.
//   - PlanLimit: the daily limit in force when the row was created.
type UsageRecord struct {
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);primaryKey"`
	UsageDate string    `json:"usage_date" gorm:"type:char(10);primaryKey"`
	Count     int       `json:"count"      gorm:"not null;default:0"`
	PlanLimit int       `json:"plan_limit" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UsageRecord.
func (UsageRecord) TableName() string { return "usage_records" }

// Task is the task record owned by the "tasks" spoke. The wider
// task-management product stores richer business fields elsewhere; the hub
// owns only what its actions touch.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner; indexed for listing.
//   - Title: short task title.
//   - Notes: optional free-form detail.
//   - DueAt: optional due date.
//   - Done: completion flag.
//   - DeletedAt: soft deletion marker (delete_task is reversible at the
//     storage layer even though it is surfaced as destructive).
type Task struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(64);not null;index:idx_user_tasks"`
	Title     string         `json:"title"   gorm:"type:varchar(255);not null"`
	Notes     string         `json:"notes,omitempty" gorm:"type:text"`
	DueAt     *time.Time     `json:"due_at,omitempty"`
	Done      bool           `json:"done"    gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for Task.
func (Task) TableName() string { return "tasks" }
