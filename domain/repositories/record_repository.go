package repositories

import (
	"context"

	"github.com/google/uuid"

	"photovault/domain/models"
)

// RecordRepository is the persistence contract for canonical records,
// their versions and their search entries.
type RecordRepository interface {
	// FindByFingerprint returns the record owning the fingerprint, or
	// (nil, nil) when no record has it.
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.PhotoRecord, error)

	// ReserveFingerprint atomically creates a record row for the
	// fingerprint. It returns (record, true) when this call created the
	// row and (nil, false) when another record already owns it.
	ReserveFingerprint(ctx context.Context, fingerprint string) (*models.PhotoRecord, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.PhotoRecord, error)
	List(ctx context.Context, page, limit int) ([]models.PhotoRecord, int64, error)
	ListPage(ctx context.Context, offset, limit int) ([]models.PhotoRecord, error)

	// UpdateRecord persists merged fields onto an existing record.
	UpdateRecord(ctx context.Context, record *models.PhotoRecord) error

	// DeleteRecord removes a record; versions and search entries go
	// with it.
	DeleteRecord(ctx context.Context, id uuid.UUID) error

	// FindBySourceID locates a record that already carries the given
	// source-native asset id in its provenance map.
	FindBySourceID(ctx context.Context, source, nativeID string) (*models.PhotoRecord, error)

	// UpsertVersion writes a version keyed by (photo_uuid, tag),
	// replacing any prior row for the same key.
	UpsertVersion(ctx context.Context, version *models.Version) error
	GetVersions(ctx context.Context, photoUUID uuid.UUID) ([]models.Version, error)

	// ReplaceSearchEntries swaps the full entry set of a record in one
	// transaction.
	ReplaceSearchEntries(ctx context.Context, photoUUID uuid.UUID, entries []models.SearchEntry) error
	CountSearchEntries(ctx context.Context, photoUUID uuid.UUID) (int64, error)

	Search(ctx context.Context, query models.SearchQuery, page, limit int) ([]models.PhotoRecord, int64, error)
	Stats(ctx context.Context) (*models.VaultStats, error)
}
