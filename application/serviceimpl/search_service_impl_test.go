package serviceimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photovault/domain/models"
	"photovault/pkg/errs"
)

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := NewSearchService(&stubRecordRepo{})

	_, _, err := svc.Search(context.Background(), models.SearchQuery{Categories: map[string][]string{}}, 1, 50)

	require.Error(t, err)
	assert.Equal(t, errs.ErrInvalid, errs.CodeOf(err))
}

func TestSearchRejectsUnknownCategory(t *testing.T) {
	svc := NewSearchService(&stubRecordRepo{})

	query := models.SearchQuery{Categories: map[string][]string{"color": {"red"}}}
	_, _, err := svc.Search(context.Background(), query, 1, 50)

	require.Error(t, err)
	assert.Equal(t, errs.ErrInvalid, errs.CodeOf(err))
}

func TestSearchRejectsInvertedDateRange(t *testing.T) {
	svc := NewSearchService(&stubRecordRepo{})

	from := time.Now()
	to := from.Add(-time.Hour)
	_, _, err := svc.Search(context.Background(), models.SearchQuery{From: &from, To: &to}, 1, 50)

	require.Error(t, err)
	assert.Equal(t, errs.ErrInvalid, errs.CodeOf(err))
}

func TestSearchDelegatesValidQuery(t *testing.T) {
	repo := &stubRecordRepo{searchRecords: []models.PhotoRecord{{}}}
	svc := NewSearchService(repo)

	query := models.SearchQuery{Categories: map[string][]string{models.EntryKeyPlace: {"Paris"}}}
	records, total, err := svc.Search(context.Background(), query, 1, 50)

	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(1), total)
	require.NotNil(t, repo.searchQuery)
	assert.Equal(t, query.Categories, repo.searchQuery.Categories)
}
