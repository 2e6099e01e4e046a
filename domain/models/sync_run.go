package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRun status values
const (
	SyncRunPending   = "pending"
	SyncRunRunning   = "running"
	SyncRunCompleted = "completed"
	SyncRunFailed    = "failed"
)

// Asset outcome values recorded per processed asset
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// SyncRun is one orchestrated run against a source, with the batch
// summary the orchestrator reports when it finishes.
type SyncRun struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Source        string     `gorm:"type:varchar(64);not null;index" json:"source"`
	Status        string     `gorm:"type:varchar(16);default:pending;index" json:"status"`
	AssetLimit    int        `json:"asset_limit,omitempty"`
	CreatedCount  int        `json:"created_count"`
	AttachedCount int        `json:"attached_count"`
	SkippedCount  int        `json:"skipped_count"`
	FailedCount   int        `json:"failed_count"`
	Outcomes      JSONMap    `gorm:"type:jsonb" json:"outcomes,omitempty"`
	LastError     *string    `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an ID when none is set
func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName overrides the table name
func (SyncRun) TableName() string {
	return "sync_runs"
}
