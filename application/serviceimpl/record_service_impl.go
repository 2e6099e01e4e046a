package serviceimpl

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/domain/services"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

type recordServiceImpl struct {
	records  repositories.RecordRepository
	syncRepo repositories.SyncRepository
}

// NewRecordService creates the record service.
func NewRecordService(records repositories.RecordRepository, syncRepo repositories.SyncRepository) services.RecordService {
	return &recordServiceImpl{records: records, syncRepo: syncRepo}
}

func (s *recordServiceImpl) GetRecord(ctx context.Context, id uuid.UUID) (*models.PhotoRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "load record", err)
	}
	if record == nil {
		return nil, errs.New(errs.ErrNotFound, "record not found")
	}
	return record, nil
}

func (s *recordServiceImpl) ListRecords(ctx context.Context, page, limit int) ([]models.PhotoRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	records, total, err := s.records.List(ctx, page, limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrDatabase, "list records", err)
	}
	return records, total, nil
}

func (s *recordServiceImpl) GetVersions(ctx context.Context, id uuid.UUID) ([]models.Version, error) {
	versions, err := s.records.GetVersions(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "load versions", err)
	}
	return versions, nil
}

func (s *recordServiceImpl) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if err := s.records.DeleteRecord(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.New(errs.ErrNotFound, "record not found")
		}
		return errs.Wrap(errs.ErrDatabase, "delete record", err)
	}
	logger.API("record_deleted", "record deleted with versions and entries", map[string]interface{}{
		"uuid": id.String(),
	})
	return nil
}

func (s *recordServiceImpl) Stats(ctx context.Context) (*models.VaultStats, error) {
	stats, err := s.records.Stats(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "collect stats", err)
	}
	cursors, err := s.syncRepo.ListCursors(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "collect cursors", err)
	}
	for _, c := range cursors {
		stats.Cursors[c.Source] = c.Cursor
	}
	return stats, nil
}
