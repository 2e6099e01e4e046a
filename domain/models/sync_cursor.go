package models

import "time"

// SyncCursor records the resume point for one source. The cursor value
// is opaque to everything except the owning connector.
type SyncCursor struct {
	Source       string    `gorm:"type:varchar(64);primaryKey" json:"source"`
	Cursor       string    `gorm:"type:text" json:"cursor"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (SyncCursor) TableName() string {
	return "sync_cursors"
}
