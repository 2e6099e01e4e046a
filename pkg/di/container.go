// Package di wires the application together in explicit phases:
// config, infrastructure, repositories, pipeline, services, worker,
// scheduler.
package di

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"photovault/application/pipeline"
	"photovault/application/serviceimpl"
	"photovault/domain/repositories"
	"photovault/domain/services"
	"photovault/infrastructure/objectstore"
	"photovault/infrastructure/postgres"
	"photovault/infrastructure/rediscache"
	"photovault/infrastructure/sources"
	"photovault/infrastructure/worker"
	"photovault/pkg/config"
	"photovault/pkg/logger"
	"photovault/pkg/scheduler"
)

// Container holds every wired component.
type Container struct {
	Config *config.Config

	DB          *gorm.DB
	RedisClient *redis.Client

	RecordRepo repositories.RecordRepository
	SyncRepo   repositories.SyncRepository

	Connectors map[string]sources.Connector
	Pipeline   *pipeline.AssetPipeline

	RecordService services.RecordService
	SearchService services.SearchService
	SyncService   services.SyncService

	Worker    *worker.SyncWorker
	Scheduler *scheduler.SyncScheduler
}

// NewContainer initializes all components in dependency order.
func NewContainer(ctx context.Context) (*Container, error) {
	c := &Container{}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogDir, cfg.App.Env != "production"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Startup("config", "configuration loaded", map[string]interface{}{"env": cfg.App.Env})

	// infrastructure
	db, err := postgres.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	c.DB = db

	var cache pipeline.FingerprintCache
	if cfg.Redis.Enabled {
		c.RedisClient = rediscache.NewClient(cfg.Redis)
		cache = rediscache.NewFingerprintCache(c.RedisClient, cfg.Redis.TTL)
	}

	store := objectstore.NewS3Client(cfg.ObjectStore)

	// repositories
	c.RecordRepo = postgres.NewRecordRepository(db)
	c.SyncRepo = postgres.NewSyncRepository(db)

	// sources
	c.Connectors = map[string]sources.Connector{}
	if cfg.Local.Enabled {
		c.Connectors[sources.SourceLocal] = sources.NewLocalConnector(cfg.Local.RootDir)
	}
	if cfg.CloudDrive.Enabled {
		drive, err := sources.NewCloudDriveConnector(ctx, cfg.CloudDrive)
		if err != nil {
			return nil, err
		}
		c.Connectors[sources.SourceCloudDrive] = drive
	}
	if cfg.AIGen.Enabled {
		c.Connectors[sources.SourceAIGen] = sources.NewAIGenConnector(cfg.AIGen)
	}
	logger.Startup("sources", "connectors configured", map[string]interface{}{
		"count": len(c.Connectors),
	})

	// pipeline
	deduper := pipeline.NewDeduper(c.RecordRepo, cache)
	uploader := pipeline.NewUploader(store, c.RecordRepo, cfg.ObjectStore.PartSize, cfg.Sync.UploadRetries)
	projector := pipeline.NewProjector(c.RecordRepo)
	c.Pipeline = pipeline.NewAssetPipeline(c.RecordRepo, deduper, uploader, projector)

	// worker
	c.Worker = worker.NewSyncWorker(c.SyncRepo, c.Pipeline, c.Connectors, worker.Options{
		BatchSize:     cfg.Sync.BatchSize,
		MaxConcurrent: cfg.Sync.MaxConcurrent,
		FetchRetries:  cfg.Sync.FetchRetries,
	})

	// services
	sourceNames := make([]string, 0, len(c.Connectors))
	for name := range c.Connectors {
		sourceNames = append(sourceNames, name)
	}
	c.RecordService = serviceimpl.NewRecordService(c.RecordRepo, c.SyncRepo)
	c.SearchService = serviceimpl.NewSearchService(c.RecordRepo)
	c.SyncService = serviceimpl.NewSyncService(c.SyncRepo, c.RecordRepo, projector, c.Worker, sourceNames)

	// scheduler
	c.Scheduler = scheduler.NewSyncScheduler()
	if cfg.Sync.ScheduleSyncs {
		for name := range c.Connectors {
			source := name
			if err := c.Scheduler.ScheduleSource(cfg.Sync.CronExpression, source, func(src string) {
				if _, err := c.SyncService.TriggerSync(context.Background(), src, 0); err != nil {
					logger.SchedulerError("enqueue", "scheduled trigger failed", err, map[string]interface{}{"source": src})
				}
			}); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// Cleanup releases held resources in reverse order.
func (c *Container) Cleanup() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Worker != nil {
		c.Worker.Stop()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Startup("shutdown", "container cleaned up", nil)
	logger.Default().Close()
}
