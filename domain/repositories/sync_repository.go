package repositories

import (
	"context"

	"github.com/google/uuid"

	"photovault/domain/models"
)

// SyncRepository persists sync cursors and run history.
type SyncRepository interface {
	// GetCursor returns the cursor for a source, or (nil, nil) when the
	// source has never completed a batch.
	GetCursor(ctx context.Context, source string) (*models.SyncCursor, error)
	SaveCursor(ctx context.Context, cursor *models.SyncCursor) error
	ListCursors(ctx context.Context) ([]models.SyncCursor, error)

	CreateRun(ctx context.Context, run *models.SyncRun) error
	UpdateRun(ctx context.Context, run *models.SyncRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error)
	ListRuns(ctx context.Context, page, limit int) ([]models.SyncRun, int64, error)

	// GetPendingRuns returns queued runs oldest first.
	GetPendingRuns(ctx context.Context) ([]models.SyncRun, error)
}
