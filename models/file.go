package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// File is the metadata row for one stored object. The path is unique across
// every record, soft-deleted ones included; records are addressed externally
// by UUID, never by the numeric id.
type File struct {
	ID           uint           `gorm:"primaryKey" json:"-"`
	UUID         uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	OwnerID      *uuid.UUID     `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	Path         string         `gorm:"uniqueIndex;not null" json:"path"`
	Name         string         `gorm:"not null" json:"name"`
	MimeType     *string        `json:"mime_type,omitempty"`
	Extension    *string        `json:"extension,omitempty"`
	Size         int64          `json:"size"`
	IsPublic     bool           `gorm:"index" json:"is_public"`
	URL          *string        `json:"url,omitempty"`
	URLExpiresAt *time.Time     `json:"url_expires_at,omitempty"`
	Tags         datatypes.JSON `json:"tags,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	return nil
}

func (f *File) BeforeSave(tx *gorm.DB) error {
	f.Path = strings.Trim(f.Path, "/ ")
	return nil
}

// IsImage reports whether the mime type belongs to an image.
func (f *File) IsImage() bool {
	return f.MimeType != nil && strings.HasPrefix(*f.MimeType, "image/")
}
