package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photovault/domain/models"
	"photovault/domain/repositories"
)

type recordRepositoryImpl struct {
	db *gorm.DB
}

// NewRecordRepository creates the GORM-backed record repository.
func NewRecordRepository(db *gorm.DB) repositories.RecordRepository {
	return &recordRepositoryImpl{db: db}
}

func (r *recordRepositoryImpl) FindByFingerprint(ctx context.Context, fingerprint string) (*models.PhotoRecord, error) {
	var record models.PhotoRecord
	err := r.db.WithContext(ctx).Where("master_fingerprint = ?", fingerprint).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepositoryImpl) ReserveFingerprint(ctx context.Context, fingerprint string) (*models.PhotoRecord, bool, error) {
	record := &models.PhotoRecord{
		UUID:              uuid.New(),
		MasterFingerprint: fingerprint,
	}
	// insert-if-absent on the fingerprint unique index; losing the
	// race affects zero rows
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "master_fingerprint"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return record, true, nil
}

func (r *recordRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.PhotoRecord, error) {
	var record models.PhotoRecord
	err := r.db.WithContext(ctx).Preload("Versions").Where("uuid = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepositoryImpl) List(ctx context.Context, page, limit int) ([]models.PhotoRecord, int64, error) {
	var records []models.PhotoRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.PhotoRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

func (r *recordRepositoryImpl) ListPage(ctx context.Context, offset, limit int) ([]models.PhotoRecord, error) {
	var records []models.PhotoRecord
	err := r.db.WithContext(ctx).
		Order("uuid").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *recordRepositoryImpl) UpdateRecord(ctx context.Context, record *models.PhotoRecord) error {
	return r.db.WithContext(ctx).
		Omit("Versions", "SearchEntries").
		Save(record).Error
}

func (r *recordRepositoryImpl) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("uuid = ?", id).Delete(&models.PhotoRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *recordRepositoryImpl) FindBySourceID(ctx context.Context, source, nativeID string) (*models.PhotoRecord, error) {
	var record models.PhotoRecord
	err := r.db.WithContext(ctx).Where("sources ->> ? = ?", source, nativeID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepositoryImpl) UpsertVersion(ctx context.Context, version *models.Version) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "photo_uuid"}, {Name: "tag"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"storage_path", "byte_size", "width", "height", "digest", "status", "upload_error", "updated_at",
		}),
	}).Create(version).Error
}

func (r *recordRepositoryImpl) GetVersions(ctx context.Context, photoUUID uuid.UUID) ([]models.Version, error) {
	var versions []models.Version
	err := r.db.WithContext(ctx).
		Where("photo_uuid = ?", photoUUID).
		Order("tag").
		Find(&versions).Error
	return versions, err
}

func (r *recordRepositoryImpl) ReplaceSearchEntries(ctx context.Context, photoUUID uuid.UUID, entries []models.SearchEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_uuid = ?", photoUUID).Delete(&models.SearchEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}

func (r *recordRepositoryImpl) CountSearchEntries(ctx context.Context, photoUUID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SearchEntry{}).
		Where("photo_uuid = ?", photoUUID).
		Count(&count).Error
	return count, err
}

func (r *recordRepositoryImpl) Search(ctx context.Context, query models.SearchQuery, page, limit int) ([]models.PhotoRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PhotoRecord{})

	// OR within a category (value IN), AND across categories (one
	// EXISTS per category)
	for key, values := range query.Categories {
		if len(values) == 0 {
			continue
		}
		q = q.Where(
			"EXISTS (SELECT 1 FROM search_entries se WHERE se.photo_uuid = photo_records.uuid AND se.key = ? AND se.value IN ?)",
			key, values,
		)
	}
	if query.Text != "" {
		pattern := "%" + query.Text + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	if query.From != nil {
		q = q.Where("taken_at >= ?", *query.From)
	}
	if query.To != nil {
		q = q.Where("taken_at <= ?", *query.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.PhotoRecord
	err := q.Order("taken_at DESC NULLS LAST, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

func (r *recordRepositoryImpl) Stats(ctx context.Context) (*models.VaultStats, error) {
	stats := &models.VaultStats{Cursors: map[string]string{}}
	if err := r.db.WithContext(ctx).Model(&models.PhotoRecord{}).Count(&stats.Records).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Version{}).Count(&stats.Versions).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.SearchEntry{}).Count(&stats.SearchEntries).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
