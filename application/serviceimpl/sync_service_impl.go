package serviceimpl

import (
	"context"

	"github.com/google/uuid"

	"photovault/application/pipeline"
	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/domain/services"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// WorkerTrigger pokes the background worker after a run is queued.
type WorkerTrigger interface {
	Trigger()
}

type syncServiceImpl struct {
	syncRepo     repositories.SyncRepository
	records      repositories.RecordRepository
	projector    *pipeline.Projector
	worker       WorkerTrigger
	knownSources map[string]bool
}

// NewSyncService creates the sync service. knownSources lists the
// configured connector names a trigger may target.
func NewSyncService(syncRepo repositories.SyncRepository, records repositories.RecordRepository, projector *pipeline.Projector, worker WorkerTrigger, knownSources []string) services.SyncService {
	known := map[string]bool{}
	for _, s := range knownSources {
		known[s] = true
	}
	return &syncServiceImpl{
		syncRepo:     syncRepo,
		records:      records,
		projector:    projector,
		worker:       worker,
		knownSources: known,
	}
}

func (s *syncServiceImpl) TriggerSync(ctx context.Context, source string, limit int) (*models.SyncRun, error) {
	if !s.knownSources[source] {
		return nil, errs.New(errs.ErrInvalid, "unknown or disabled source: "+source)
	}
	run := &models.SyncRun{
		Source:     source,
		Status:     models.SyncRunPending,
		AssetLimit: limit,
	}
	if err := s.syncRepo.CreateRun(ctx, run); err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "queue sync run", err)
	}
	s.worker.Trigger()
	logger.Sync("run_queued", "sync run queued", map[string]interface{}{
		"source": source,
		"run_id": run.ID.String(),
	})
	return run, nil
}

func (s *syncServiceImpl) ListRuns(ctx context.Context, page, limit int) ([]models.SyncRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	runs, total, err := s.syncRepo.ListRuns(ctx, page, limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrDatabase, "list sync runs", err)
	}
	return runs, total, nil
}

func (s *syncServiceImpl) GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	run, err := s.syncRepo.GetRun(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "load sync run", err)
	}
	if run == nil {
		return nil, errs.New(errs.ErrNotFound, "sync run not found")
	}
	return run, nil
}

// Reindex walks every record in pages and re-projects its search
// entries, reporting before/after counts.
func (s *syncServiceImpl) Reindex(ctx context.Context) (*services.ReindexReport, error) {
	const pageSize = 200
	report := &services.ReindexReport{}

	offset := 0
	for {
		records, err := s.records.ListPage(ctx, offset, pageSize)
		if err != nil {
			return nil, errs.Wrap(errs.ErrDatabase, "page records", err)
		}
		if len(records) == 0 {
			break
		}
		for i := range records {
			record := &records[i]
			before, err := s.records.CountSearchEntries(ctx, record.UUID)
			if err != nil {
				return nil, errs.Wrap(errs.ErrDatabase, "count entries", err)
			}
			if err := s.projector.Project(ctx, record); err != nil {
				return nil, err
			}
			after, err := s.records.CountSearchEntries(ctx, record.UUID)
			if err != nil {
				return nil, errs.Wrap(errs.ErrDatabase, "count entries", err)
			}
			report.Records++
			report.EntriesBefore += before
			report.EntriesAfter += after
			report.PerRecord = append(report.PerRecord, services.ReindexRecord{
				UUID:   record.UUID,
				Before: before,
				After:  after,
			})
		}
		offset += len(records)
	}

	logger.Index("reindex", "search index rebuilt", map[string]interface{}{
		"records":        report.Records,
		"entries_before": report.EntriesBefore,
		"entries_after":  report.EntriesAfter,
	})
	return report, nil
}
