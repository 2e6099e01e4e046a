package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"photovault/domain/services"
	"photovault/pkg/errs"
	"photovault/pkg/utils"
)

// SyncHandler triggers and inspects sync runs and maintenance tasks.
type SyncHandler struct {
	sync services.SyncService
}

// NewSyncHandler creates the handler.
func NewSyncHandler(sync services.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Trigger queues a run for the named source.
func (h *SyncHandler) Trigger(c *fiber.Ctx) error {
	source := c.Params("source")
	limit := c.QueryInt("limit", 0)

	run, err := h.sync.TriggerSync(c.Context(), source, limit)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    run,
	})
}

// ListRuns returns run history, newest first.
func (h *SyncHandler) ListRuns(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	runs, total, err := h.sync.ListRuns(c.Context(), page, limit)
	if err != nil {
		return err
	}
	return utils.PaginatedResponse(c, runs, total, page, limit)
}

// GetRun returns one run with its batch summary.
func (h *SyncHandler) GetRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errs.New(errs.ErrInvalid, "invalid run id")
	}
	run, err := h.sync.GetRun(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, run)
}

// Reindex rebuilds every record's search entries.
func (h *SyncHandler) Reindex(c *fiber.Ctx) error {
	report, err := h.sync.Reindex(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, report)
}
