package metadata

import (
	"time"

	"photovault/domain/models"
)

// Canonical field keys recognized by the merge engine. Anything else an
// incoming layer carries lands in the record's freeform map.
var canonicalKeys = map[string]bool{
	"title":           true,
	"description":     true,
	"library":         true,
	"place":           true,
	"place_hierarchy": true,
	"keywords":        true,
	"labels":          true,
	"persons":         true,
	"albums":          true,
	"taken_at":        true,
	"tz_offset_sec":   true,
	"latitude":        true,
	"longitude":       true,
	"width":           true,
	"height":          true,
	"duration_sec":    true,
	"favorite":        true,
	"hidden":          true,
}

// Merge applies the asset's metadata layers onto a record, in priority
// order: per-asset sidecar override, then the batch-wide overlay, then
// the normalized source metadata. For each canonical field the first
// layer defining a non-null value wins. Sidecar and overlay values
// replace what the record already holds; normalized values only fill
// fields the record has not set yet, so re-merging an asset onto an
// existing record preserves earlier results unless an explicit
// override outranks them. Unrecognized keys go to the freeform map and
// never overwrite a key set by a higher-priority layer.
func Merge(record *models.PhotoRecord, normalized *models.NormalizedMetadata, sidecar, overlay map[string]interface{}) {
	if record.Extra == nil {
		record.Extra = models.JSONMap{}
	}

	st := &mergeState{
		record:       record,
		setCanonical: map[string]bool{},
		setFreeform:  map[string]bool{},
	}

	st.applyLayer(sidecar, true)
	st.applyLayer(overlay, true)
	canonical, freeform := normalizedLayers(normalized)
	st.applyLayer(canonical, false)
	st.applyFreeform(freeform, false)
}

type mergeState struct {
	record       *models.PhotoRecord
	setCanonical map[string]bool
	setFreeform  map[string]bool
}

func (st *mergeState) applyLayer(layer map[string]interface{}, overwrite bool) {
	if layer == nil {
		return
	}
	freeform := map[string]interface{}{}
	for key, value := range layer {
		if value == nil {
			continue
		}
		if canonicalKeys[key] {
			st.applyCanonical(key, value, overwrite)
		} else {
			freeform[key] = value
		}
	}
	st.applyFreeform(freeform, overwrite)
}

func (st *mergeState) applyCanonical(key string, value interface{}, overwrite bool) {
	if st.setCanonical[key] {
		return
	}
	if set := st.setField(key, value, overwrite); set {
		st.setCanonical[key] = true
	}
}

func (st *mergeState) applyFreeform(layer map[string]interface{}, overwrite bool) {
	for key, value := range layer {
		if value == nil || st.setFreeform[key] {
			continue
		}
		if _, exists := st.record.Extra[key]; exists && !overwrite {
			continue
		}
		st.record.Extra[key] = value
		st.setFreeform[key] = true
	}
}

// setField writes one canonical field; when overwrite is false a field
// the record already holds is left alone. Returns whether the incoming
// value now occupies the field (either written or already equal in
// rank, blocking lower layers).
func (st *mergeState) setField(key string, value interface{}, overwrite bool) bool {
	r := st.record
	switch key {
	case "title":
		if v := toStringPtr(value); v != nil && (overwrite || r.Title == nil) {
			r.Title = v
			return true
		}
	case "description":
		if v := toStringPtr(value); v != nil && (overwrite || r.Description == nil) {
			r.Description = v
			return true
		}
	case "library":
		if v := toStringPtr(value); v != nil && (overwrite || r.Library == nil) {
			r.Library = v
			return true
		}
	case "place":
		if v := toStringPtr(value); v != nil && (overwrite || r.PlaceName == nil) {
			r.PlaceName = v
			return true
		}
	case "place_hierarchy":
		if v := toStringSlice(value); len(v) > 0 && (overwrite || len(r.PlaceHierarchy) == 0) {
			r.PlaceHierarchy = v
			return true
		}
	case "keywords":
		if v := toStringSlice(value); len(v) > 0 && (overwrite || len(r.Keywords) == 0) {
			r.Keywords = v
			return true
		}
	case "labels":
		if v := toStringSlice(value); len(v) > 0 && (overwrite || len(r.Labels) == 0) {
			r.Labels = v
			return true
		}
	case "persons":
		if v := toStringSlice(value); len(v) > 0 && (overwrite || len(r.Persons) == 0) {
			r.Persons = v
			return true
		}
	case "albums":
		if v := toStringSlice(value); len(v) > 0 && (overwrite || len(r.Albums) == 0) {
			r.Albums = v
			return true
		}
	case "taken_at":
		if v := toTimePtr(value); v != nil && (overwrite || r.TakenAt == nil) {
			r.TakenAt = v
			return true
		}
	case "tz_offset_sec":
		if v := toIntPtr(value); v != nil && (overwrite || r.TzOffsetSec == nil) {
			r.TzOffsetSec = v
			return true
		}
	case "latitude":
		if v := toFloatPtr(value); v != nil && (overwrite || r.Latitude == nil) {
			r.Latitude = v
			return true
		}
	case "longitude":
		if v := toFloatPtr(value); v != nil && (overwrite || r.Longitude == nil) {
			r.Longitude = v
			return true
		}
	case "width":
		if v := toIntPtr(value); v != nil && (overwrite || r.Width == nil) {
			r.Width = v
			return true
		}
	case "height":
		if v := toIntPtr(value); v != nil && (overwrite || r.Height == nil) {
			r.Height = v
			return true
		}
	case "duration_sec":
		if v := toFloatPtr(value); v != nil && (overwrite || r.DurationSec == nil) {
			r.DurationSec = v
			return true
		}
	case "favorite":
		if v := toBoolPtr(value); v != nil && overwrite {
			r.Favorite = *v
			return true
		}
	case "hidden":
		if v := toBoolPtr(value); v != nil && overwrite {
			r.Hidden = *v
			return true
		}
	}
	return false
}

// normalizedLayers flattens NormalizedMetadata into a canonical layer
// and a freeform layer. Camera and exposure settings have no dedicated
// record columns so they travel as freeform keys.
func normalizedLayers(meta *models.NormalizedMetadata) (map[string]interface{}, map[string]interface{}) {
	canonical := map[string]interface{}{}
	freeform := map[string]interface{}{}
	if meta == nil {
		return canonical, freeform
	}

	putStr := func(m map[string]interface{}, key string, v *string) {
		if v != nil {
			m[key] = *v
		}
	}
	putInt := func(m map[string]interface{}, key string, v *int) {
		if v != nil {
			m[key] = *v
		}
	}
	putFloat := func(m map[string]interface{}, key string, v *float64) {
		if v != nil {
			m[key] = *v
		}
	}

	putStr(canonical, "title", meta.Title)
	putStr(canonical, "description", meta.Description)
	putStr(canonical, "place", meta.PlaceName)
	putFloat(canonical, "latitude", meta.Latitude)
	putFloat(canonical, "longitude", meta.Longitude)
	putInt(canonical, "width", meta.Width)
	putInt(canonical, "height", meta.Height)
	putInt(canonical, "tz_offset_sec", meta.TzOffsetSec)
	putFloat(canonical, "duration_sec", meta.DurationSec)
	if meta.TakenAt != nil {
		canonical["taken_at"] = *meta.TakenAt
	}

	putStr(freeform, "camera_make", meta.CameraMake)
	putStr(freeform, "camera_model", meta.CameraModel)
	putStr(freeform, "lens", meta.LensModel)
	putInt(freeform, "iso", meta.ISO)
	putFloat(freeform, "aperture", meta.Aperture)
	putStr(freeform, "shutter_speed", meta.ShutterSpeed)
	putFloat(freeform, "focal_length", meta.FocalLength)
	putFloat(freeform, "exposure_bias", meta.ExposureBias)
	putFloat(freeform, "altitude", meta.Altitude)
	putFloat(freeform, "accuracy", meta.Accuracy)
	putInt(freeform, "orientation", meta.Orientation)
	putFloat(freeform, "fps", meta.FPS)
	putStr(freeform, "codec", meta.Codec)

	for key, value := range meta.Extra {
		if _, taken := freeform[key]; !taken {
			freeform[key] = value
		}
	}
	return canonical, freeform
}

func toTimePtr(value interface{}) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	case float64:
		t := time.UnixMilli(int64(v)).UTC()
		return &t
	case int64:
		t := time.UnixMilli(v).UTC()
		return &t
	}
	return nil
}
