package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photovault/domain/models"
)

func TestNormalizeDetectsCloudDrive(t *testing.T) {
	raw := map[string]interface{}{
		"name":        "IMG_2041.jpg",
		"createdTime": "2023-08-11T09:30:00Z",
		"imageMediaMetadata": map[string]interface{}{
			"cameraMake":   "Canon",
			"cameraModel":  "EOS R5",
			"lens":         "RF 24-70mm",
			"isoSpeed":     float64(200),
			"aperture":     2.8,
			"exposureTime": 0.004,
			"focalLength":  50.0,
			"width":        float64(8192),
			"height":       float64(5464),
			"time":         "2023:08:11 11:30:00",
			"location": map[string]interface{}{
				"latitude":  48.8584,
				"longitude": 2.2945,
				"altitude":  35.0,
			},
		},
	}

	meta := Normalize(raw, "")

	assert.Equal(t, KindCloudDrive, meta.SourceKind)
	require.NotNil(t, meta.CameraMake)
	assert.Equal(t, "Canon", *meta.CameraMake)
	require.NotNil(t, meta.ISO)
	assert.Equal(t, 200, *meta.ISO)
	require.NotNil(t, meta.ShutterSpeed)
	assert.Equal(t, "1/250", *meta.ShutterSpeed)
	require.NotNil(t, meta.Width)
	assert.Equal(t, 8192, *meta.Width)
	require.NotNil(t, meta.Latitude)
	assert.InDelta(t, 48.8584, *meta.Latitude, 0.0001)
	require.NotNil(t, meta.TakenAt)
	assert.Equal(t, 2023, meta.TakenAt.Year())
	assert.Equal(t, 11, meta.TakenAt.Hour())
	assert.Equal(t, raw, meta.Raw)
}

func TestNormalizeDetectsLocal(t *testing.T) {
	raw := map[string]interface{}{
		"asset": map[string]interface{}{
			"title":         "Beach day",
			"camera_make":   "Apple",
			"camera_model":  "iPhone 14 Pro",
			"iso":           float64(64),
			"width":         float64(4032),
			"height":        float64(3024),
			"taken_at":      float64(1691744400000),
			"tz_offset_sec": float64(7200),
		},
		"location": map[string]interface{}{
			"latitude":  43.2965,
			"longitude": 5.3698,
			"accuracy":  12.5,
			"place":     "Marseille",
		},
	}

	meta := Normalize(raw, "")

	assert.Equal(t, KindLocal, meta.SourceKind)
	require.NotNil(t, meta.Title)
	assert.Equal(t, "Beach day", *meta.Title)
	require.NotNil(t, meta.TakenAt)
	assert.Equal(t, time.UnixMilli(1691744400000).UTC(), *meta.TakenAt)
	require.NotNil(t, meta.TzOffsetSec)
	assert.Equal(t, 7200, *meta.TzOffsetSec)
	require.NotNil(t, meta.Accuracy)
	assert.InDelta(t, 12.5, *meta.Accuracy, 0.001)
	require.NotNil(t, meta.PlaceName)
	assert.Equal(t, "Marseille", *meta.PlaceName)
}

func TestNormalizeDetectsAIGen(t *testing.T) {
	raw := map[string]interface{}{
		"generation": map[string]interface{}{
			"id":         "gen-001",
			"prompt":     "a watercolor lighthouse",
			"model":      "sdxl-1.0",
			"seed":       float64(42),
			"width":      float64(1024),
			"height":     float64(1024),
			"created_at": "2024-02-20T18:00:00Z",
		},
	}

	meta := Normalize(raw, "")

	assert.Equal(t, KindAIGen, meta.SourceKind)
	require.NotNil(t, meta.Width)
	assert.Equal(t, 1024, *meta.Width)
	assert.Equal(t, "a watercolor lighthouse", meta.Extra["prompt"])
	assert.Equal(t, "sdxl-1.0", meta.Extra["model"])
	require.NotNil(t, meta.TakenAt)
}

func TestNormalizeHintSkipsDetection(t *testing.T) {
	raw := map[string]interface{}{
		"asset": map[string]interface{}{"title": "x"},
	}

	meta := Normalize(raw, KindUnknown)
	assert.Equal(t, KindUnknown, meta.SourceKind)
	assert.Nil(t, meta.Title)
	assert.Contains(t, meta.Extra, "asset")
}

func TestNormalizeNeverFails(t *testing.T) {
	assert.NotNil(t, Normalize(nil, ""))

	meta := Normalize(map[string]interface{}{"mystery": true, "width": float64(640)}, "")
	assert.Equal(t, KindUnknown, meta.SourceKind)
	require.NotNil(t, meta.Width)
	assert.Equal(t, 640, *meta.Width)
	assert.Equal(t, true, meta.Extra["mystery"])
}

func TestGroupsOmitsEmptyCategories(t *testing.T) {
	iso := 100
	make := "Nikon"
	meta := &models.NormalizedMetadata{CameraMake: &make, ISO: &iso}

	groups := meta.Groups()

	assert.Contains(t, groups, models.GroupCamera)
	assert.Contains(t, groups, models.GroupExposure)
	assert.NotContains(t, groups, models.GroupVideo)
	assert.Equal(t, "Nikon", groups[models.GroupCamera]["make"])
	assert.Equal(t, "100", groups[models.GroupExposure]["iso"])
}

func TestCompareSkipsFieldsAbsentFromBoth(t *testing.T) {
	makeA, makeB := "Canon", "Nikon"
	width := 4000
	a := &models.NormalizedMetadata{CameraMake: &makeA, Width: &width}
	b := &models.NormalizedMetadata{CameraMake: &makeB, Width: &width}

	report := models.Compare(a, b)

	byField := map[string]models.FieldMatch{}
	for _, row := range report {
		byField[row.Field] = row
	}

	require.Contains(t, byField, "make")
	assert.False(t, byField["make"].Match)
	require.Contains(t, byField, "width")
	assert.True(t, byField["width"].Match)
	assert.NotContains(t, byField, "iso")
}

func TestCompareReportsFieldsInSortedOrder(t *testing.T) {
	mk, model, lens := "Canon", "EOS R5", "RF 24-70mm"
	a := &models.NormalizedMetadata{CameraMake: &mk, CameraModel: &model, LensModel: &lens}
	b := &models.NormalizedMetadata{CameraMake: &mk, CameraModel: &model, LensModel: &lens}

	var fields []string
	for _, row := range models.Compare(a, b) {
		fields = append(fields, row.Field)
	}

	// row order is part of the report contract: sorted within a group
	assert.Equal(t, []string{"lens", "make", "model"}, fields)
}
