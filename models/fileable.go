package models

import (
	"time"

	"gorm.io/datatypes"
)

// Fileable links a File to an arbitrary owning entity. The owner side is a
// (type tag, id) pair resolved through the owner-type registry, so one file
// can hang off many owners and one owner can carry many files.
type Fileable struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	FileID       uint   `gorm:"uniqueIndex:idx_fileables_link;not null" json:"-"`
	FileableType string `gorm:"uniqueIndex:idx_fileables_link;not null" json:"fileable_type"`
	FileableID   string `gorm:"uniqueIndex:idx_fileables_link;not null" json:"fileable_id"`

	Description datatypes.JSON `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	File File `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

func (Fileable) TableName() string {
	return "fileables"
}
