package serviceimpl

import (
	"context"

	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/domain/services"
	"photovault/pkg/errs"
)

// categories the search surface accepts
var searchCategories = map[string]bool{
	models.EntryKeyPlace:   true,
	models.EntryKeyLabel:   true,
	models.EntryKeyKeyword: true,
	models.EntryKeyPerson:  true,
	models.EntryKeyAlbum:   true,
	models.EntryKeyLibrary: true,
}

type searchServiceImpl struct {
	records repositories.RecordRepository
}

// NewSearchService creates the search service.
func NewSearchService(records repositories.RecordRepository) services.SearchService {
	return &searchServiceImpl{records: records}
}

func (s *searchServiceImpl) Search(ctx context.Context, query models.SearchQuery, page, limit int) ([]models.PhotoRecord, int64, error) {
	if query.IsEmpty() {
		return nil, 0, errs.New(errs.ErrInvalid, "search requires at least one predicate")
	}
	for key := range query.Categories {
		if !searchCategories[key] {
			return nil, 0, errs.New(errs.ErrInvalid, "unknown search category: "+key)
		}
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, 0, errs.New(errs.ErrInvalid, "date range is inverted")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	records, total, err := s.records.Search(ctx, query, page, limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrDatabase, "search records", err)
	}
	return records, total, nil
}
