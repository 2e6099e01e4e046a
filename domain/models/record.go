package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// JSONMap stores arbitrary key/value metadata as a jsonb column
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	return json.Unmarshal(data, m)
}

// PhotoRecord is the canonical record for one unique asset. There is
// exactly one row per master fingerprint; the UUID never changes once
// assigned.
type PhotoRecord struct {
	UUID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"uuid"`
	MasterFingerprint string         `gorm:"type:varchar(128);uniqueIndex:idx_records_fingerprint;not null" json:"master_fingerprint"`
	Title             *string        `gorm:"type:text" json:"title,omitempty"`
	Description       *string        `gorm:"type:text" json:"description,omitempty"`
	Library           *string        `gorm:"type:varchar(255);index" json:"library,omitempty"`
	PlaceName         *string        `gorm:"type:varchar(512)" json:"place_name,omitempty"`
	PlaceHierarchy    pq.StringArray `gorm:"type:text[]" json:"place_hierarchy,omitempty"`
	Keywords          pq.StringArray `gorm:"type:text[]" json:"keywords,omitempty"`
	Labels            pq.StringArray `gorm:"type:text[]" json:"labels,omitempty"`
	Persons           pq.StringArray `gorm:"type:text[]" json:"persons,omitempty"`
	Albums            pq.StringArray `gorm:"type:text[]" json:"albums,omitempty"`
	TakenAt           *time.Time     `gorm:"index" json:"taken_at,omitempty"`
	TzOffsetSec       *int           `json:"tz_offset_sec,omitempty"`
	Latitude          *float64       `json:"latitude,omitempty"`
	Longitude         *float64       `json:"longitude,omitempty"`
	Width             *int           `json:"width,omitempty"`
	Height            *int           `json:"height,omitempty"`
	DurationSec       *float64       `json:"duration_sec,omitempty"`
	Favorite          bool           `gorm:"default:false" json:"favorite"`
	Hidden            bool           `gorm:"default:false" json:"hidden"`
	Extra             JSONMap        `gorm:"type:jsonb" json:"extra,omitempty"`
	Sources           JSONMap        `gorm:"type:jsonb" json:"sources,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	Versions      []Version     `gorm:"foreignKey:PhotoUUID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	SearchEntries []SearchEntry `gorm:"foreignKey:PhotoUUID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when none is set
func (r *PhotoRecord) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	return nil
}

// TableName overrides the table name
func (PhotoRecord) TableName() string {
	return "photo_records"
}
