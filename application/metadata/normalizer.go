// Package metadata normalizes per-source raw metadata into the
// canonical shape and merges overlapping descriptions of one asset.
package metadata

import (
	"fmt"
	"strings"
	"time"

	"photovault/domain/models"
)

// Source kinds recognized by the format sniffer
const (
	KindLocal      = "local"
	KindCloudDrive = "clouddrive"
	KindAIGen      = "aigen"
	KindUnknown    = "unknown"
)

// Normalize converts a raw metadata blob into NormalizedMetadata.
// When hint is empty the format is detected from structural signature
// keys. Normalize never fails; missing fields stay nil and the raw
// blob is preserved for diagnostics.
func Normalize(raw map[string]interface{}, hint string) *models.NormalizedMetadata {
	if raw == nil {
		return &models.NormalizedMetadata{SourceKind: KindUnknown}
	}

	kind := hint
	if kind == "" {
		kind = detectFormat(raw)
	}

	var meta *models.NormalizedMetadata
	switch kind {
	case KindCloudDrive:
		meta = parseCloudDrive(raw)
	case KindLocal:
		meta = parseLocal(raw)
	case KindAIGen:
		meta = parseAIGen(raw)
	default:
		meta = parseGeneric(raw)
		kind = KindUnknown
	}

	meta.SourceKind = kind
	meta.Raw = raw
	return meta
}

// detectFormat sniffs the source from signature keys: the cloud photo
// service nests camera settings under imageMediaMetadata, the local
// library export pairs an asset object with a location object carrying
// an accuracy field, and the AI image service wraps everything in a
// generation object.
func detectFormat(raw map[string]interface{}) string {
	if _, ok := raw["imageMediaMetadata"]; ok {
		return KindCloudDrive
	}
	if _, ok := raw["videoMediaMetadata"]; ok {
		return KindCloudDrive
	}
	if _, ok := raw["generation"]; ok {
		return KindAIGen
	}
	if _, hasAsset := raw["asset"]; hasAsset {
		if loc, ok := raw["location"].(map[string]interface{}); ok {
			if _, hasAcc := loc["accuracy"]; hasAcc {
				return KindLocal
			}
		}
		return KindLocal
	}
	return KindUnknown
}

// parseCloudDrive handles the cloud photo service's file resource:
// camera settings nested under imageMediaMetadata, durations under
// videoMediaMetadata, RFC3339 createdTime.
func parseCloudDrive(raw map[string]interface{}) *models.NormalizedMetadata {
	meta := &models.NormalizedMetadata{Extra: map[string]interface{}{}}

	meta.Title = toStringPtr(raw["name"])
	meta.Description = toStringPtr(raw["description"])

	if img, ok := raw["imageMediaMetadata"].(map[string]interface{}); ok {
		meta.CameraMake = toStringPtr(img["cameraMake"])
		meta.CameraModel = toStringPtr(img["cameraModel"])
		meta.LensModel = toStringPtr(img["lens"])
		meta.ISO = toIntPtr(img["isoSpeed"])
		meta.Aperture = toFloatPtr(img["aperture"])
		meta.FocalLength = toFloatPtr(img["focalLength"])
		meta.ExposureBias = toFloatPtr(img["exposureBias"])
		meta.Width = toIntPtr(img["width"])
		meta.Height = toIntPtr(img["height"])
		meta.Orientation = toIntPtr(img["rotation"])

		if exp := toFloatPtr(img["exposureTime"]); exp != nil {
			meta.ShutterSpeed = formatShutter(*exp)
		}
		if loc, ok := img["location"].(map[string]interface{}); ok {
			meta.Latitude = toFloatPtr(loc["latitude"])
			meta.Longitude = toFloatPtr(loc["longitude"])
			meta.Altitude = toFloatPtr(loc["altitude"])
		}
		// EXIF-style "2021:06:15 14:03:22" capture time
		if s, ok := img["time"].(string); ok {
			if t, err := time.Parse("2006:01:02 15:04:05", s); err == nil {
				meta.TakenAt = &t
			}
		}
	}

	if vid, ok := raw["videoMediaMetadata"].(map[string]interface{}); ok {
		if meta.Width == nil {
			meta.Width = toIntPtr(vid["width"])
		}
		if meta.Height == nil {
			meta.Height = toIntPtr(vid["height"])
		}
		if ms := toFloatPtr(vid["durationMillis"]); ms != nil {
			d := *ms / 1000
			meta.DurationSec = &d
		}
	}

	if meta.TakenAt == nil {
		if s, ok := raw["createdTime"].(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				meta.TakenAt = &t
			}
		}
	}
	return meta
}

// parseLocal handles the local library export sidecar: nested asset and
// location objects, epoch-millis timestamps, GPS accuracy.
func parseLocal(raw map[string]interface{}) *models.NormalizedMetadata {
	meta := &models.NormalizedMetadata{Extra: map[string]interface{}{}}

	if asset, ok := raw["asset"].(map[string]interface{}); ok {
		meta.Title = toStringPtr(asset["title"])
		if meta.Title == nil {
			meta.Title = toStringPtr(asset["name"])
		}
		meta.Description = toStringPtr(asset["description"])
		meta.CameraMake = toStringPtr(asset["camera_make"])
		meta.CameraModel = toStringPtr(asset["camera_model"])
		meta.LensModel = toStringPtr(asset["lens"])
		meta.ISO = toIntPtr(asset["iso"])
		meta.Aperture = toFloatPtr(asset["aperture"])
		meta.ShutterSpeed = toStringPtr(asset["shutter_speed"])
		meta.FocalLength = toFloatPtr(asset["focal_length"])
		meta.ExposureBias = toFloatPtr(asset["exposure_bias"])
		meta.Width = toIntPtr(asset["width"])
		meta.Height = toIntPtr(asset["height"])
		meta.Orientation = toIntPtr(asset["orientation"])
		meta.FPS = toFloatPtr(asset["fps"])
		meta.Codec = toStringPtr(asset["codec"])

		if ms := toFloatPtr(asset["duration_ms"]); ms != nil {
			d := *ms / 1000
			meta.DurationSec = &d
		}
		// timestamps are epoch milliseconds with a separate offset
		if ms := toFloatPtr(asset["taken_at"]); ms != nil {
			t := time.UnixMilli(int64(*ms)).UTC()
			meta.TakenAt = &t
		}
		meta.TzOffsetSec = toIntPtr(asset["tz_offset_sec"])
	}

	if loc, ok := raw["location"].(map[string]interface{}); ok {
		meta.Latitude = toFloatPtr(loc["latitude"])
		meta.Longitude = toFloatPtr(loc["longitude"])
		meta.Altitude = toFloatPtr(loc["altitude"])
		meta.Accuracy = toFloatPtr(loc["accuracy"])
		meta.PlaceName = toStringPtr(loc["place"])
	}
	return meta
}

// parseAIGen handles the AI image service payload: everything nested
// under a generation object; prompt and sampling settings are kept as
// freeform fields.
func parseAIGen(raw map[string]interface{}) *models.NormalizedMetadata {
	meta := &models.NormalizedMetadata{Extra: map[string]interface{}{}}

	gen, ok := raw["generation"].(map[string]interface{})
	if !ok {
		return meta
	}

	meta.Title = toStringPtr(gen["title"])
	meta.Width = toIntPtr(gen["width"])
	meta.Height = toIntPtr(gen["height"])
	if s, ok := gen["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			meta.TakenAt = &t
		}
	}
	for _, key := range []string{"prompt", "negative_prompt", "model", "seed", "sampler", "steps", "cfg_scale"} {
		if v, ok := gen[key]; ok {
			meta.Extra[key] = v
		}
	}
	return meta
}

// parseGeneric best-effort parses common top-level keys and keeps
// everything else as freeform.
func parseGeneric(raw map[string]interface{}) *models.NormalizedMetadata {
	meta := &models.NormalizedMetadata{Extra: map[string]interface{}{}}

	known := map[string]bool{}
	mark := func(keys ...string) {
		for _, k := range keys {
			known[k] = true
		}
	}

	meta.Title = toStringPtr(firstOf(raw, "title", "name"))
	meta.Description = toStringPtr(raw["description"])
	meta.Latitude = toFloatPtr(raw["latitude"])
	meta.Longitude = toFloatPtr(raw["longitude"])
	meta.Width = toIntPtr(raw["width"])
	meta.Height = toIntPtr(raw["height"])
	meta.CameraMake = toStringPtr(raw["camera_make"])
	meta.CameraModel = toStringPtr(raw["camera_model"])
	if s, ok := raw["taken_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			meta.TakenAt = &t
		}
	}
	mark("title", "name", "description", "latitude", "longitude", "width", "height", "camera_make", "camera_model", "taken_at")

	for k, v := range raw {
		if !known[k] {
			meta.Extra[k] = v
		}
	}
	return meta
}

func firstOf(raw map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func formatShutter(seconds float64) *string {
	var s string
	if seconds > 0 && seconds < 1 {
		s = fmt.Sprintf("1/%.0f", 1/seconds)
	} else {
		s = fmt.Sprintf("%gs", seconds)
	}
	return &s
}

// Coercion helpers. JSON numbers arrive as float64; sidecars written by
// other tooling sometimes quote numerics.

func toStringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return &s
	}
	return nil
}

func toFloatPtr(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return &f
		}
	}
	return nil
}

func toIntPtr(v interface{}) *int {
	if f := toFloatPtr(v); f != nil {
		i := int(*f)
		return &i
	}
	return nil
}

func toBoolPtr(v interface{}) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}

func toStringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
