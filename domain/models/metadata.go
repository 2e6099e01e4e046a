package models

import (
	"fmt"
	"sort"
	"time"
)

// Metadata category names used for grouping and comparison
const (
	GroupCamera   = "camera"
	GroupExposure = "exposure"
	GroupLocation = "location"
	GroupDatetime = "datetime"
	GroupImage    = "image"
	GroupVideo    = "video"
)

// NormalizedMetadata is the canonical per-asset metadata shape produced
// by the normalizer. It is never persisted directly; the merge engine
// consumes it. Absent fields stay nil.
type NormalizedMetadata struct {
	SourceKind string

	// camera
	CameraMake  *string
	CameraModel *string
	LensModel   *string

	// exposure
	ISO          *int
	Aperture     *float64
	ShutterSpeed *string
	FocalLength  *float64
	ExposureBias *float64

	// location
	Latitude  *float64
	Longitude *float64
	Altitude  *float64
	Accuracy  *float64
	PlaceName *string

	// datetime
	TakenAt     *time.Time
	TzOffsetSec *int

	// image
	Width       *int
	Height      *int
	Orientation *int

	// video
	DurationSec *float64
	FPS         *float64
	Codec       *string

	Title       *string
	Description *string

	// Extra holds recognized-but-noncanonical and unrecognized keys.
	Extra map[string]interface{}

	// Raw keeps the source blob for diagnostics.
	Raw map[string]interface{}
}

// Groups projects the metadata into category buckets of printable
// field/value pairs. Read-only; absent fields are omitted.
func (m *NormalizedMetadata) Groups() map[string]map[string]string {
	groups := map[string]map[string]string{
		GroupCamera:   {},
		GroupExposure: {},
		GroupLocation: {},
		GroupDatetime: {},
		GroupImage:    {},
		GroupVideo:    {},
	}

	put := func(group, field string, v interface{}) {
		groups[group][field] = fmt.Sprintf("%v", v)
	}

	if m.CameraMake != nil {
		put(GroupCamera, "make", *m.CameraMake)
	}
	if m.CameraModel != nil {
		put(GroupCamera, "model", *m.CameraModel)
	}
	if m.LensModel != nil {
		put(GroupCamera, "lens", *m.LensModel)
	}
	if m.ISO != nil {
		put(GroupExposure, "iso", *m.ISO)
	}
	if m.Aperture != nil {
		put(GroupExposure, "aperture", *m.Aperture)
	}
	if m.ShutterSpeed != nil {
		put(GroupExposure, "shutter_speed", *m.ShutterSpeed)
	}
	if m.FocalLength != nil {
		put(GroupExposure, "focal_length", *m.FocalLength)
	}
	if m.ExposureBias != nil {
		put(GroupExposure, "exposure_bias", *m.ExposureBias)
	}
	if m.Latitude != nil {
		put(GroupLocation, "latitude", *m.Latitude)
	}
	if m.Longitude != nil {
		put(GroupLocation, "longitude", *m.Longitude)
	}
	if m.Altitude != nil {
		put(GroupLocation, "altitude", *m.Altitude)
	}
	if m.Accuracy != nil {
		put(GroupLocation, "accuracy", *m.Accuracy)
	}
	if m.PlaceName != nil {
		put(GroupLocation, "place", *m.PlaceName)
	}
	if m.TakenAt != nil {
		put(GroupDatetime, "taken_at", m.TakenAt.Format(time.RFC3339))
	}
	if m.TzOffsetSec != nil {
		put(GroupDatetime, "tz_offset_sec", *m.TzOffsetSec)
	}
	if m.Width != nil {
		put(GroupImage, "width", *m.Width)
	}
	if m.Height != nil {
		put(GroupImage, "height", *m.Height)
	}
	if m.Orientation != nil {
		put(GroupImage, "orientation", *m.Orientation)
	}
	if m.DurationSec != nil {
		put(GroupVideo, "duration_sec", *m.DurationSec)
	}
	if m.FPS != nil {
		put(GroupVideo, "fps", *m.FPS)
	}
	if m.Codec != nil {
		put(GroupVideo, "codec", *m.Codec)
	}

	for group, fields := range groups {
		if len(fields) == 0 {
			delete(groups, group)
		}
	}
	return groups
}

// FieldMatch is one row of a metadata comparison report
type FieldMatch struct {
	Group string `json:"group"`
	Field string `json:"field"`
	A     string `json:"a"`
	B     string `json:"b"`
	Match bool   `json:"match"`
}

// Compare produces per-field match pairs between two metadata values.
// Fields absent from both sides are skipped. Used for diagnostics only.
func Compare(a, b *NormalizedMetadata) []FieldMatch {
	ga := a.Groups()
	gb := b.Groups()

	groupOrder := []string{GroupCamera, GroupExposure, GroupLocation, GroupDatetime, GroupImage, GroupVideo}

	var report []FieldMatch
	for _, group := range groupOrder {
		seen := map[string]bool{}
		for f := range ga[group] {
			seen[f] = true
		}
		for f := range gb[group] {
			seen[f] = true
		}
		fields := make([]string, 0, len(seen))
		for f := range seen {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			va := ga[group][f]
			vb := gb[group][f]
			report = append(report, FieldMatch{
				Group: group,
				Field: f,
				A:     va,
				B:     vb,
				Match: va == vb,
			})
		}
	}
	return report
}
