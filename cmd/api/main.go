package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"photovault/interfaces/api/handlers"
	"photovault/interfaces/api/middleware"
	"photovault/interfaces/api/routes"
	"photovault/pkg/di"
	"photovault/pkg/logger"
)

func main() {
	ctx := context.Background()

	container, err := di.NewContainer(ctx)
	if err != nil {
		logger.StartupError("init", "failed to initialize application", err, nil)
		os.Exit(1)
	}
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:      "photovault",
		ErrorHandler: middleware.ErrorHandler,
	})

	routes.Setup(app,
		handlers.NewRecordHandler(container.RecordService),
		handlers.NewSearchHandler(container.SearchService),
		handlers.NewSyncHandler(container.SyncService),
	)

	container.Worker.Start()
	container.Worker.Trigger()
	if container.Config.Sync.ScheduleSyncs {
		container.Scheduler.Start()
	}

	go func() {
		addr := ":" + container.Config.App.Port
		logger.Startup("listen", "api server listening", map[string]interface{}{"addr": addr})
		if err := app.Listen(addr); err != nil {
			logger.StartupError("listen", "server stopped", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Startup("shutdown", "shutting down", nil)
	if err := app.Shutdown(); err != nil {
		logger.StartupError("shutdown", "server shutdown failed", err, nil)
	}
}
