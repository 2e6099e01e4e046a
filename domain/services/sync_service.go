package services

import (
	"context"

	"github.com/google/uuid"

	"photovault/domain/models"
)

// ReindexReport summarizes a full search-index rebuild.
type ReindexReport struct {
	Records       int             `json:"records"`
	EntriesBefore int64           `json:"entries_before"`
	EntriesAfter  int64           `json:"entries_after"`
	PerRecord     []ReindexRecord `json:"per_record,omitempty"`
}

// ReindexRecord is one record's before/after entry counts.
type ReindexRecord struct {
	UUID   uuid.UUID `json:"uuid"`
	Before int64     `json:"before"`
	After  int64     `json:"after"`
}

// SyncService triggers and inspects sync runs.
type SyncService interface {
	// TriggerSync queues a run for the source and pokes the worker.
	// limit of 0 means unbounded.
	TriggerSync(ctx context.Context, source string, limit int) (*models.SyncRun, error)
	ListRuns(ctx context.Context, page, limit int) ([]models.SyncRun, int64, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error)

	// Reindex rebuilds every record's search entries.
	Reindex(ctx context.Context) (*ReindexReport, error)
}
