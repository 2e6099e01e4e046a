package sources

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"photovault/application/pipeline"
	"photovault/domain/models"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// overlayFileName is the per-directory batch overlay applied to every
// asset in that directory.
const overlayFileName = "_overlay.json"

var mediaExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".heic": "image/heic",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
}

// LocalConnector scans a photo-library export directory. Media files
// are paired with "<file>.json" raw-metadata sidecars and optional
// "<file>.override.json" explicit overrides. The cursor is the last
// processed path relative to the root; files sort lexicographically so
// the scan is resumable.
type LocalConnector struct {
	root string
}

// NewLocalConnector creates a connector over the export root.
func NewLocalConnector(root string) *LocalConnector {
	return &LocalConnector{root: root}
}

func (c *LocalConnector) Name() string {
	return SourceLocal
}

func (c *LocalConnector) Fetch(ctx context.Context, cursor string, limit int) (*Batch, error) {
	paths, err := c.scan()
	if err != nil {
		return nil, errs.Wrap(errs.ErrSourceFetch, "scan library directory", err)
	}

	start := sort.SearchStrings(paths, cursor)
	if cursor != "" && start < len(paths) && paths[start] == cursor {
		start++
	}

	if limit <= 0 {
		limit = len(paths)
	}
	end := start + limit
	if end > len(paths) {
		end = len(paths)
	}

	batch := &Batch{NextCursor: cursor}
	overlays := map[string]map[string]interface{}{}
	for _, rel := range paths[start:end] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := filepath.Dir(rel)
		overlay, ok := overlays[dir]
		if !ok {
			overlay = c.loadJSON(filepath.Join(dir, overlayFileName))
			overlays[dir] = overlay
		}
		batch.Assets = append(batch.Assets, c.buildAsset(rel, overlay))
		batch.NextCursor = rel
	}
	batch.HasMore = end < len(paths)

	logger.Source("local_fetch", "scanned local library batch", map[string]interface{}{
		"assets":   len(batch.Assets),
		"cursor":   cursor,
		"has_more": batch.HasMore,
	})
	return batch, nil
}

// scan returns all media paths under the root, relative and sorted.
func (c *LocalConnector) scan() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := mediaExtensions[ext]; !ok {
			return nil
		}
		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (c *LocalConnector) buildAsset(rel string, overlay map[string]interface{}) RawAsset {
	full := filepath.Join(c.root, filepath.FromSlash(rel))
	ext := strings.ToLower(filepath.Ext(rel))

	return RawAsset{
		SourceID: rel,
		Name:     filepath.Base(rel),
		Metadata: c.loadJSON(rel + ".json"),
		Sidecar:  c.loadJSON(rel + ".override.json"),
		Overlay:  overlay,
		Renditions: []pipeline.Rendition{{
			Tag:         models.VersionOriginal,
			Ext:         ext,
			ContentType: mediaExtensions[ext],
			Open: func() (io.ReadCloser, error) {
				return os.Open(full)
			},
		}},
	}
}

// loadJSON reads an optional JSON file; a missing or malformed file
// yields nil.
func (c *LocalConnector) loadJSON(rel string) map[string]interface{} {
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		logger.SourceError("local_sidecar", "malformed sidecar ignored", err, map[string]interface{}{"path": rel})
		return nil
	}
	return m
}
