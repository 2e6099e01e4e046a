package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"photovault/application/metadata"
	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/pkg/errs"
)

// Asset is the pipeline's view of one fetched source asset.
type Asset struct {
	Source   string
	SourceID string
	Name     string
	// Metadata is the source's raw metadata blob.
	Metadata map[string]interface{}
	// Sidecar is an explicit per-asset override, highest priority.
	Sidecar map[string]interface{}
	// Overlay is the batch-wide metadata layer.
	Overlay map[string]interface{}
	// Renditions to store; the original rendition is mandatory and
	// supplies the fingerprint.
	Renditions []Rendition
}

// Result is the per-asset outcome the orchestrator aggregates.
type Result struct {
	Status     string
	Reason     string
	Resolution Resolution
	RecordUUID uuid.UUID
}

// AssetPipeline runs Normalize → Dedup → Merge → Upload → Project for
// one asset.
type AssetPipeline struct {
	records   repositories.RecordRepository
	deduper   *Deduper
	uploader  *Uploader
	projector *Projector
}

// NewAssetPipeline wires the pipeline stages.
func NewAssetPipeline(records repositories.RecordRepository, deduper *Deduper, uploader *Uploader, projector *Projector) *AssetPipeline {
	return &AssetPipeline{
		records:   records,
		deduper:   deduper,
		uploader:  uploader,
		projector: projector,
	}
}

// Process runs the full per-asset pipeline. Failures are captured in
// the Result rather than returned, so one asset never aborts its
// batch; the orchestrator only inspects the outcome.
func (p *AssetPipeline) Process(ctx context.Context, asset Asset) Result {
	original := findOriginal(asset.Renditions)
	if original == nil {
		return Result{Status: models.OutcomeSkipped, Reason: "no original rendition"}
	}

	// provenance first: a record that already lists this native asset
	// supplies its stored fingerprint, so a re-sync does not re-read the
	// bytes just to rediscover an identity we already know. The deduper
	// still arbitrates by fingerprint either way.
	believed, err := p.records.FindBySourceID(ctx, asset.Source, asset.SourceID)
	if err != nil {
		return Result{Status: models.OutcomeFailed, Reason: fmt.Sprintf("provenance lookup: %v", err)}
	}

	var fingerprint string
	if believed != nil {
		fingerprint = believed.MasterFingerprint
	} else {
		reader, err := original.Open()
		if err != nil {
			return Result{Status: models.OutcomeFailed, Reason: fmt.Sprintf("open original: %v", err)}
		}
		fingerprint, err = Fingerprint(reader)
		reader.Close()
		if err != nil {
			return Result{Status: models.OutcomeFailed, Reason: fmt.Sprintf("fingerprint: %v", err)}
		}
	}

	// normalize; unusable metadata skips the asset, it does not fail it
	meta := metadata.Normalize(asset.Metadata, asset.Source)
	if asset.Metadata != nil && meta.SourceKind == metadata.KindUnknown && metadataEmpty(meta) && asset.Sidecar == nil && asset.Overlay == nil {
		return Result{Status: models.OutcomeSkipped, Reason: string(errs.ErrNormalization) + ": unrecognized metadata format"}
	}

	record, resolution, err := p.deduper.Resolve(ctx, fingerprint)
	if err != nil {
		return Result{Status: models.OutcomeFailed, Reason: err.Error()}
	}

	metadata.Merge(record, meta, asset.Sidecar, asset.Overlay)

	// provenance: remember which native asset this source contributed
	if record.Sources == nil {
		record.Sources = models.JSONMap{}
	}
	record.Sources[asset.Source] = asset.SourceID

	if err := p.records.UpdateRecord(ctx, record); err != nil {
		return Result{Status: models.OutcomeFailed, Reason: fmt.Sprintf("persist record: %v", err), Resolution: resolution, RecordUUID: record.UUID}
	}

	// upload every rendition; a failed tag is recorded on its Version
	// row and reported, siblings still go through
	var uploadFailures []string
	for _, rendition := range asset.Renditions {
		if _, err := p.uploader.Upload(ctx, record, rendition); err != nil {
			uploadFailures = append(uploadFailures, fmt.Sprintf("%s: %v", rendition.Tag, err))
		}
	}

	if err := p.projector.Project(ctx, record); err != nil {
		return Result{Status: models.OutcomeFailed, Reason: err.Error(), Resolution: resolution, RecordUUID: record.UUID}
	}

	if len(uploadFailures) > 0 {
		return Result{
			Status:     models.OutcomeFailed,
			Reason:     "upload: " + strings.Join(uploadFailures, "; "),
			Resolution: resolution,
			RecordUUID: record.UUID,
		}
	}
	return Result{Status: models.OutcomeOK, Resolution: resolution, RecordUUID: record.UUID}
}

func findOriginal(renditions []Rendition) *Rendition {
	for i := range renditions {
		if renditions[i].Tag == models.VersionOriginal {
			return &renditions[i]
		}
	}
	return nil
}

func metadataEmpty(m *models.NormalizedMetadata) bool {
	return m.Title == nil && m.Description == nil && m.TakenAt == nil &&
		m.Latitude == nil && m.Longitude == nil && m.Width == nil && m.Height == nil &&
		m.CameraMake == nil && m.CameraModel == nil && len(m.Extra) == 0
}
