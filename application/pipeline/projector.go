package pipeline

import (
	"context"

	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// Projector derives the denormalized search entries of a record and
// swaps them into the index.
type Projector struct {
	records repositories.RecordRepository
}

// NewProjector creates a Projector.
func NewProjector(records repositories.RecordRepository) *Projector {
	return &Projector{records: records}
}

// BuildEntries decomposes a record into its (key, value) search tuples.
// Duplicates collapse; empty values are dropped. Pure function of the
// record.
func BuildEntries(record *models.PhotoRecord) []models.SearchEntry {
	seen := map[string]bool{}
	var entries []models.SearchEntry

	add := func(key, value string) {
		if value == "" {
			return
		}
		dedupeKey := key + "\x00" + value
		if seen[dedupeKey] {
			return
		}
		seen[dedupeKey] = true
		entries = append(entries, models.SearchEntry{
			PhotoUUID: record.UUID,
			Key:       key,
			Value:     value,
		})
	}

	if record.PlaceName != nil {
		add(models.EntryKeyPlace, *record.PlaceName)
	}
	for _, level := range record.PlaceHierarchy {
		add(models.EntryKeyPlace, level)
	}
	for _, label := range record.Labels {
		add(models.EntryKeyLabel, label)
	}
	for _, keyword := range record.Keywords {
		add(models.EntryKeyKeyword, keyword)
	}
	for _, person := range record.Persons {
		add(models.EntryKeyPerson, person)
	}
	for _, album := range record.Albums {
		add(models.EntryKeyAlbum, album)
	}
	if record.Library != nil {
		add(models.EntryKeyLibrary, *record.Library)
	}
	if record.Title != nil {
		add(models.EntryKeyTitle, *record.Title)
	}
	if record.Description != nil {
		add(models.EntryKeyDescription, *record.Description)
	}
	return entries
}

// Project replaces the record's entry set with a fresh projection.
// Idempotent; projecting an unchanged record is a no-op at the index
// level.
func (p *Projector) Project(ctx context.Context, record *models.PhotoRecord) error {
	entries := BuildEntries(record)
	if err := p.records.ReplaceSearchEntries(ctx, record.UUID, entries); err != nil {
		return errs.Wrap(errs.ErrIndexProjection, "replace search entries", err)
	}
	logger.Index("projected", "search entries replaced", map[string]interface{}{
		"uuid":    record.UUID.String(),
		"entries": len(entries),
	})
	return nil
}
