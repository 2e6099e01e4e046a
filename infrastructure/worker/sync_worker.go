// Package worker hosts the sync orchestrator: the only sequential
// actor, owning batch boundaries and cursor advancement.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"photovault/application/pipeline"
	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/infrastructure/sources"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// Orchestrator states
const (
	StateIdle       = "idle"
	StateFetching   = "fetching"
	StateProcessing = "processing"
	StateCommitting = "committing"
)

// AssetProcessor runs the per-asset pipeline.
type AssetProcessor interface {
	Process(ctx context.Context, asset pipeline.Asset) pipeline.Result
}

// Options bound the worker's batch size and concurrency.
type Options struct {
	BatchSize     int
	MaxConcurrent int
	FetchRetries  int
}

// SyncWorker drains pending sync runs. Within a batch, assets are
// processed by a bounded pool; batches and cursor commits are strictly
// sequential.
type SyncWorker struct {
	syncRepo   repositories.SyncRepository
	processor  AssetProcessor
	connectors map[string]sources.Connector
	opts       Options

	mu        sync.Mutex
	isRunning bool
	state     string
	stopCh    chan struct{}
	triggerCh chan struct{}
	wg        sync.WaitGroup
}

// NewSyncWorker creates the worker.
func NewSyncWorker(syncRepo repositories.SyncRepository, processor AssetProcessor, connectors map[string]sources.Connector, opts Options) *SyncWorker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.FetchRetries <= 0 {
		opts.FetchRetries = 5
	}
	return &SyncWorker{
		syncRepo:   syncRepo,
		processor:  processor,
		connectors: connectors,
		opts:       opts,
		state:      StateIdle,
		stopCh:     make(chan struct{}),
		triggerCh:  make(chan struct{}, 1),
	}
}

// Start launches the background loop.
func (w *SyncWorker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop()
	logger.Worker("started", "sync worker started", map[string]interface{}{
		"batch_size":     w.opts.BatchSize,
		"max_concurrent": w.opts.MaxConcurrent,
	})
}

// Stop shuts the worker down. In-flight work is abandoned without
// advancing any cursor; an interrupted batch re-runs from the same
// cursor next time.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	logger.Worker("stopped", "sync worker stopped", nil)
}

// Trigger pokes the worker to look for pending runs. Non-blocking.
func (w *SyncWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// State reports the orchestrator's current phase.
func (w *SyncWorker) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *SyncWorker) setState(state string) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

func (w *SyncWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case <-w.triggerCh:
			w.drainPending()
		}
	}
}

func (w *SyncWorker) drainPending() {
	ctx := context.Background()
	runs, err := w.syncRepo.GetPendingRuns(ctx)
	if err != nil {
		logger.WorkerError("pending", "could not load pending runs", err, nil)
		return
	}
	for i := range runs {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.ExecuteRun(ctx, &runs[i])
	}
}

// RunOnce creates a run for the source and executes it synchronously.
// Used by the CLI and as the backing for API triggers that want the
// result inline.
func (w *SyncWorker) RunOnce(ctx context.Context, source string, limit int) (*models.SyncRun, error) {
	run := &models.SyncRun{Source: source, Status: models.SyncRunPending, AssetLimit: limit}
	if err := w.syncRepo.CreateRun(ctx, run); err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "create sync run", err)
	}
	w.ExecuteRun(ctx, run)
	return run, nil
}

// ExecuteRun processes one run to completion: fetch batches from the
// source's cursor, pipeline every asset, and advance the cursor only
// after each fully attempted batch.
func (w *SyncWorker) ExecuteRun(ctx context.Context, run *models.SyncRun) {
	started := time.Now()
	run.Status = models.SyncRunRunning
	run.StartedAt = &started
	if err := w.syncRepo.UpdateRun(ctx, run); err != nil {
		logger.WorkerError("run_update", "could not mark run running", err, nil)
	}

	connector, ok := w.connectors[run.Source]
	if !ok {
		w.failRun(ctx, run, errs.New(errs.ErrInvalid, fmt.Sprintf("unknown source %q", run.Source)))
		return
	}

	cursor := ""
	if saved, err := w.syncRepo.GetCursor(ctx, run.Source); err != nil {
		w.failRun(ctx, run, errs.Wrap(errs.ErrDatabase, "load cursor", err))
		return
	} else if saved != nil {
		cursor = saved.Cursor
	}

	outcomes := models.JSONMap{}
	processed := 0

	for {
		select {
		case <-w.stopCh:
			w.failRun(ctx, run, errs.New(errs.ErrInternal, "interrupted by shutdown"))
			return
		default:
		}

		if run.AssetLimit > 0 && processed >= run.AssetLimit {
			break
		}
		batchLimit := w.opts.BatchSize
		if run.AssetLimit > 0 && run.AssetLimit-processed < batchLimit {
			batchLimit = run.AssetLimit - processed
		}

		w.setState(StateFetching)
		batch, err := w.fetchBatch(ctx, connector, cursor, batchLimit)
		if err != nil {
			w.setState(StateIdle)
			w.failRun(ctx, run, err)
			return
		}

		w.setState(StateProcessing)
		results := w.processBatch(ctx, run.Source, batch.Assets)
		for i, result := range results {
			asset := batch.Assets[i]
			switch result.Status {
			case models.OutcomeOK:
				if result.Resolution == pipeline.ResolutionCreated {
					run.CreatedCount++
				} else {
					run.AttachedCount++
				}
			case models.OutcomeSkipped:
				run.SkippedCount++
				outcomes[asset.SourceID] = "skipped: " + result.Reason
			case models.OutcomeFailed:
				run.FailedCount++
				outcomes[asset.SourceID] = "failed: " + result.Reason
			}
		}
		processed += len(batch.Assets)

		// the batch was fully attempted; only now does the cursor move
		w.setState(StateCommitting)
		if err := w.syncRepo.SaveCursor(ctx, &models.SyncCursor{
			Source:       run.Source,
			Cursor:       batch.NextCursor,
			LastSyncedAt: time.Now(),
		}); err != nil {
			w.setState(StateIdle)
			w.failRun(ctx, run, errs.Wrap(errs.ErrCursorPersist, "persist cursor", err))
			return
		}
		cursor = batch.NextCursor

		logger.Sync("batch_committed", "batch processed and cursor advanced", map[string]interface{}{
			"source":  run.Source,
			"assets":  len(batch.Assets),
			"cursor":  cursor,
			"created": run.CreatedCount,
			"failed":  run.FailedCount,
		})

		if !batch.HasMore || (run.AssetLimit > 0 && processed >= run.AssetLimit) {
			break
		}
	}

	w.setState(StateIdle)
	finished := time.Now()
	run.Status = models.SyncRunCompleted
	run.FinishedAt = &finished
	run.Outcomes = outcomes
	if err := w.syncRepo.UpdateRun(ctx, run); err != nil {
		logger.WorkerError("run_update", "could not mark run completed", err, nil)
	}
	logger.Sync("run_completed", "sync run completed", map[string]interface{}{
		"source":   run.Source,
		"created":  run.CreatedCount,
		"attached": run.AttachedCount,
		"skipped":  run.SkippedCount,
		"failed":   run.FailedCount,
		"duration": finished.Sub(started).String(),
	})
}

// fetchBatch retries transient source failures with backoff and
// jitter before giving up on the run.
func (w *SyncWorker) fetchBatch(ctx context.Context, connector sources.Connector, cursor string, limit int) (*sources.Batch, error) {
	var batch *sources.Batch
	backoff := retry.WithMaxRetries(uint64(w.opts.FetchRetries-1), retry.WithJitter(300*time.Millisecond, retry.NewExponential(500*time.Millisecond)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := connector.Fetch(ctx, cursor, limit)
		if err != nil {
			logger.SourceError("fetch_retry", "source fetch failed", err, map[string]interface{}{
				"source": connector.Name(),
				"cursor": cursor,
			})
			return retry.RetryableError(err)
		}
		batch = b
		return nil
	})
	if err != nil {
		// connectors code their own failures; keep that code instead of
		// wrapping it a second time
		if errs.Is(err, errs.ErrSourceFetch) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrSourceFetch, "fetch batch", err)
	}
	return batch, nil
}

// processBatch runs the pipeline for each asset on a bounded pool and
// returns per-asset results in input order. Asset failures are
// isolated; nothing here aborts the batch.
func (w *SyncWorker) processBatch(ctx context.Context, source string, assets []sources.RawAsset) []pipeline.Result {
	results := make([]pipeline.Result, len(assets))
	sem := make(chan struct{}, w.opts.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range assets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results[i] = pipeline.Result{
						Status: models.OutcomeFailed,
						Reason: fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			raw := assets[i]
			results[i] = w.processor.Process(ctx, pipeline.Asset{
				Source:     source,
				SourceID:   raw.SourceID,
				Name:       raw.Name,
				Metadata:   raw.Metadata,
				Sidecar:    raw.Sidecar,
				Overlay:    raw.Overlay,
				Renditions: raw.Renditions,
			})
		}(i)
	}
	wg.Wait()
	return results
}

func (w *SyncWorker) failRun(ctx context.Context, run *models.SyncRun, cause error) {
	finished := time.Now()
	msg := cause.Error()
	run.Status = models.SyncRunFailed
	run.LastError = &msg
	run.FinishedAt = &finished
	if err := w.syncRepo.UpdateRun(ctx, run); err != nil {
		logger.WorkerError("run_update", "could not mark run failed", err, nil)
	}
	logger.SyncError("run_failed", "sync run failed", cause, map[string]interface{}{
		"source": run.Source,
	})
}
