package routes

import (
	"github.com/gofiber/fiber/v2"

	"photovault/interfaces/api/handlers"
	"photovault/interfaces/api/middleware"
	"photovault/pkg/utils"
)

// Setup registers middleware and all routes on the app.
func Setup(app *fiber.App, record *handlers.RecordHandler, search *handlers.SearchHandler, sync *handlers.SyncHandler) {
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	records := v1.Group("/records")
	records.Get("/", record.List)
	records.Get("/:id", record.Get)
	records.Get("/:id/versions", record.Versions)
	records.Delete("/:id", record.Delete)

	v1.Get("/search", search.Search)
	v1.Get("/stats", record.Stats)

	syncGroup := v1.Group("/sync")
	syncGroup.Get("/runs", sync.ListRuns)
	syncGroup.Get("/runs/:id", sync.GetRun)
	syncGroup.Post("/:source", sync.Trigger)

	v1.Post("/maintenance/reindex", sync.Reindex)
}
