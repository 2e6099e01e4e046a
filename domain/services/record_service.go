package services

import (
	"context"

	"github.com/google/uuid"

	"photovault/domain/models"
)

// RecordService exposes canonical-record reads and deletion.
type RecordService interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*models.PhotoRecord, error)
	ListRecords(ctx context.Context, page, limit int) ([]models.PhotoRecord, int64, error)
	GetVersions(ctx context.Context, id uuid.UUID) ([]models.Version, error)
	DeleteRecord(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.VaultStats, error)
}

// SearchService answers category/text/date queries over the index.
type SearchService interface {
	Search(ctx context.Context, query models.SearchQuery, page, limit int) ([]models.PhotoRecord, int64, error)
}
