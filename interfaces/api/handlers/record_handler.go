package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"photovault/domain/services"
	"photovault/pkg/errs"
	"photovault/pkg/utils"
)

// RecordHandler serves canonical-record reads and deletion.
type RecordHandler struct {
	records services.RecordService
}

// NewRecordHandler creates the handler.
func NewRecordHandler(records services.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// List returns a page of records.
func (h *RecordHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	records, total, err := h.records.ListRecords(c.Context(), page, limit)
	if err != nil {
		return err
	}
	return utils.PaginatedResponse(c, records, total, page, limit)
}

// Get returns one record with its versions.
func (h *RecordHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errs.New(errs.ErrInvalid, "invalid record id")
	}
	record, err := h.records.GetRecord(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, record)
}

// Versions lists a record's stored versions.
func (h *RecordHandler) Versions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errs.New(errs.ErrInvalid, "invalid record id")
	}
	versions, err := h.records.GetVersions(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, versions)
}

// Delete removes a record; versions and search entries cascade.
func (h *RecordHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errs.New(errs.ErrInvalid, "invalid record id")
	}
	if err := h.records.DeleteRecord(c.Context(), id); err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.Map{"deleted": id})
}

// Stats reports store-wide counts and per-source cursors.
func (h *RecordHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.records.Stats(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, stats)
}
