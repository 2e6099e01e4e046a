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

type syncRepositoryImpl struct {
	db *gorm.DB
}

// NewSyncRepository creates the GORM-backed sync-state repository.
func NewSyncRepository(db *gorm.DB) repositories.SyncRepository {
	return &syncRepositoryImpl{db: db}
}

func (r *syncRepositoryImpl) GetCursor(ctx context.Context, source string) (*models.SyncCursor, error) {
	var cursor models.SyncCursor
	err := r.db.WithContext(ctx).Where("source = ?", source).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (r *syncRepositoryImpl) SaveCursor(ctx context.Context, cursor *models.SyncCursor) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor", "last_synced_at", "updated_at"}),
	}).Create(cursor).Error
}

func (r *syncRepositoryImpl) ListCursors(ctx context.Context) ([]models.SyncCursor, error) {
	var cursors []models.SyncCursor
	err := r.db.WithContext(ctx).Order("source").Find(&cursors).Error
	return cursors, err
}

func (r *syncRepositoryImpl) CreateRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRepositoryImpl) UpdateRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *syncRepositoryImpl) GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *syncRepositoryImpl) ListRuns(ctx context.Context, page, limit int) ([]models.SyncRun, int64, error) {
	var runs []models.SyncRun
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.SyncRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&runs).Error
	return runs, total, err
}

func (r *syncRepositoryImpl) GetPendingRuns(ctx context.Context) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SyncRunPending).
		Order("created_at ASC").
		Find(&runs).Error
	return runs, err
}
