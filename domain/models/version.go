package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionTag identifies a rendition of a record
type VersionTag string

const (
	VersionOriginal  VersionTag = "original"
	VersionEdited    VersionTag = "edited"
	VersionThumbnail VersionTag = "thumbnail"
	VersionLive      VersionTag = "live"
)

// Version upload status
const (
	VersionStatusStored = "stored"
	VersionStatusFailed = "failed"
)

// Version is one stored rendition of a record. A record holds at most
// one version per tag; re-uploads replace the existing row.
type Version struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PhotoUUID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_versions_photo_tag" json:"photo_uuid"`
	Tag         VersionTag `gorm:"type:varchar(32);not null;uniqueIndex:idx_versions_photo_tag" json:"tag"`
	StoragePath string     `gorm:"type:varchar(1024)" json:"storage_path"`
	ByteSize    int64      `json:"byte_size"`
	Width       *int       `json:"width,omitempty"`
	Height      *int       `json:"height,omitempty"`
	Digest      string     `gorm:"type:varchar(256)" json:"digest"`
	Status      string     `gorm:"type:varchar(16);default:stored" json:"status"`
	UploadError *string    `gorm:"type:text" json:"upload_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an ID when none is set
func (v *Version) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// TableName overrides the table name
func (Version) TableName() string {
	return "versions"
}
