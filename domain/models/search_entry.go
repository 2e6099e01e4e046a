package models

import (
	"time"

	"github.com/google/uuid"
)

// Search entry keys
const (
	EntryKeyPlace       = "place"
	EntryKeyLabel       = "label"
	EntryKeyKeyword     = "keyword"
	EntryKeyPerson      = "person"
	EntryKeyAlbum       = "album"
	EntryKeyLibrary     = "library"
	EntryKeyTitle       = "title"
	EntryKeyDescription = "description"
)

// SearchEntry is one (key, value) tuple projected from a record for
// lookup. The full entry set of a record is replaced atomically on
// re-projection.
type SearchEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PhotoUUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entries_photo_key_value;index" json:"photo_uuid"`
	Key       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_entries_photo_key_value;index:idx_entries_key_value" json:"key"`
	Value     string    `gorm:"type:varchar(1024);not null;uniqueIndex:idx_entries_photo_key_value;index:idx_entries_key_value" json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name
func (SearchEntry) TableName() string {
	return "search_entries"
}
