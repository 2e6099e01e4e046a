package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"photovault/domain/models"
	"photovault/domain/services"
	"photovault/pkg/errs"
	"photovault/pkg/utils"
)

// SearchHandler serves category/text/date queries.
type SearchHandler struct {
	search services.SearchService
}

// NewSearchHandler creates the handler.
func NewSearchHandler(search services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

var categoryParams = []string{
	models.EntryKeyPlace,
	models.EntryKeyLabel,
	models.EntryKeyKeyword,
	models.EntryKeyPerson,
	models.EntryKeyAlbum,
	models.EntryKeyLibrary,
}

// Search handles GET /api/v1/search. Category params repeat for OR
// semantics; distinct categories AND together.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	query := models.SearchQuery{
		Categories: map[string][]string{},
		Text:       c.Query("q"),
	}

	args := c.Context().QueryArgs()
	for _, key := range categoryParams {
		for _, raw := range args.PeekMulti(key) {
			if value := string(raw); value != "" {
				query.Categories[key] = append(query.Categories[key], value)
			}
		}
	}

	var err error
	if query.From, err = parseDate(c.Query("from")); err != nil {
		return errs.New(errs.ErrInvalid, "invalid from date")
	}
	if query.To, err = parseDate(c.Query("to")); err != nil {
		return errs.New(errs.ErrInvalid, "invalid to date")
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	records, total, err := h.search.Search(c.Context(), query, page, limit)
	if err != nil {
		return err
	}
	return utils.PaginatedResponse(c, records, total, page, limit)
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
