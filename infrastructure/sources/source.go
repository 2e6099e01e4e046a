// Package sources contains the connectors that pull assets from the
// configured upstreams behind one cursor-based contract.
package sources

import (
	"context"

	"photovault/application/pipeline"
)

// Source names. Each doubles as the normalizer format hint.
const (
	SourceLocal      = "local"
	SourceCloudDrive = "clouddrive"
	SourceAIGen      = "aigen"
)

// RawAsset is one asset as fetched from a source, before any pipeline
// stage has touched it.
type RawAsset struct {
	SourceID   string
	Name       string
	Metadata   map[string]interface{}
	Sidecar    map[string]interface{}
	Overlay    map[string]interface{}
	Renditions []pipeline.Rendition
}

// Batch is one page of assets plus the cursor that resumes after it.
type Batch struct {
	Assets     []RawAsset
	NextCursor string
	HasMore    bool
}

// Connector pulls asset batches from one source. The cursor is opaque
// to callers: pass back exactly what the previous Fetch returned. An
// empty cursor starts from the beginning.
type Connector interface {
	Name() string
	Fetch(ctx context.Context, cursor string, limit int) (*Batch, error)
}
