package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"photovault/pkg/logger"
)

// SyncScheduler enqueues periodic sync runs per source.
type SyncScheduler struct {
	scheduler *gocron.Scheduler
}

// NewSyncScheduler creates a stopped scheduler.
func NewSyncScheduler() *SyncScheduler {
	return &SyncScheduler{scheduler: gocron.NewScheduler(time.UTC)}
}

// ScheduleSource registers a cron job that enqueues a run for the
// source. A scheduled trigger behaves exactly like a manual one.
func (s *SyncScheduler) ScheduleSource(cronExpr, source string, enqueue func(source string)) error {
	_, err := s.scheduler.Cron(cronExpr).Do(func() {
		logger.Scheduler("tick", "scheduled sync trigger", map[string]interface{}{"source": source})
		enqueue(source)
	})
	if err != nil {
		return err
	}
	logger.Scheduler("registered", "source sync scheduled", map[string]interface{}{
		"source": source,
		"cron":   cronExpr,
	})
	return nil
}

// Start begins running jobs asynchronously.
func (s *SyncScheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop halts the scheduler and waits for running jobs.
func (s *SyncScheduler) Stop() {
	s.scheduler.Stop()
}
