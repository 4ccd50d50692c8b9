package models

import (
	"time"

	"gorm.io/gorm"
)

// MediaObject records an object uploaded to blob storage on behalf of a user.
type MediaObject struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Kind        string    `gorm:"size:16;not null" json:"type"`
	Bucket      string    `gorm:"size:64;not null" json:"bucket"`
	Path        string    `gorm:"size:512;not null;uniqueIndex" json:"filename"`
	URL         string    `gorm:"size:1024;not null" json:"url"`
	ContentType string    `gorm:"size:64" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *MediaObject) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
