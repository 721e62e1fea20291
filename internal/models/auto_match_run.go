package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AutoMatchRun records the outcome of one auto-match batch.
type AutoMatchRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Actor       string         `json:"actor"`
	Limit       int            `gorm:"column:batch_limit" json:"limit"`
	Scanned     int            `json:"scanned"`
	Committed   int            `json:"committed"`
	Skipped     int            `json:"skipped"`
	Status      string         `gorm:"index" json:"status"`
	Details     datatypes.JSON `json:"details"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// All lists the persisted models, in migration order.
func All() []interface{} {
	return []interface{}{
		&Transaction{},
		&LedgerEntry{},
		&AuditRecord{},
		&AutoMatchRun{},
	}
}
