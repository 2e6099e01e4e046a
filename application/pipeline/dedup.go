// Package pipeline implements the per-asset ingestion pipeline:
// fingerprint dedup, metadata merge, rendition upload and search-index
// projection.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/google/uuid"

	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// Resolution of a fingerprint against the record store
type Resolution string

const (
	ResolutionCreated  Resolution = "created"
	ResolutionAttached Resolution = "attached"
)

// FingerprintCache is a best-effort fingerprint→uuid lookaside. A miss
// or an unavailable cache always falls through to the database.
type FingerprintCache interface {
	Get(ctx context.Context, fingerprint string) (uuid.UUID, bool)
	Set(ctx context.Context, fingerprint string, id uuid.UUID)
}

// Fingerprint computes the content hash of a rendition stream.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Deduper resolves fingerprints to canonical records, creating one when
// the fingerprint is unseen.
type Deduper struct {
	records repositories.RecordRepository
	cache   FingerprintCache
}

// NewDeduper creates a Deduper; cache may be nil.
func NewDeduper(records repositories.RecordRepository, cache FingerprintCache) *Deduper {
	return &Deduper{records: records, cache: cache}
}

// Resolve returns the record owning the fingerprint and whether this
// call created it. Creation goes through an atomic reservation; a
// concurrent loser retries the lookup, so two sightings of the same
// content always converge on one record.
func (d *Deduper) Resolve(ctx context.Context, fingerprint string) (*models.PhotoRecord, Resolution, error) {
	if d.cache != nil {
		if id, ok := d.cache.Get(ctx, fingerprint); ok {
			record, err := d.records.GetByID(ctx, id)
			if err == nil && record != nil {
				return record, ResolutionAttached, nil
			}
			// stale cache entry, fall through to the database
		}
	}

	record, err := d.records.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrDatabase, "fingerprint lookup failed", err)
	}
	if record != nil {
		d.cacheSet(ctx, fingerprint, record.UUID)
		return record, ResolutionAttached, nil
	}

	record, created, err := d.records.ReserveFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrDatabase, "fingerprint reservation failed", err)
	}
	if created {
		d.cacheSet(ctx, fingerprint, record.UUID)
		return record, ResolutionCreated, nil
	}

	// lost the reservation race; the winner's row must exist now
	record, err = d.records.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrDatabase, "post-race fingerprint lookup failed", err)
	}
	if record == nil {
		return nil, "", errs.New(errs.ErrDedupConflict, "fingerprint reserved concurrently but owner not found")
	}
	logger.DB("dedup_race", "lost fingerprint reservation race, attached to winner", map[string]interface{}{
		"fingerprint": fingerprint,
		"uuid":        record.UUID.String(),
	})
	d.cacheSet(ctx, fingerprint, record.UUID)
	return record, ResolutionAttached, nil
}

func (d *Deduper) cacheSet(ctx context.Context, fingerprint string, id uuid.UUID) {
	if d.cache != nil {
		d.cache.Set(ctx, fingerprint, id)
	}
}
