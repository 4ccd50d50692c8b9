package models

import (
	"time"

	"gorm.io/gorm"
)

// Habit is a catalog entry challenges pick from.
type Habit struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Icon        string    `gorm:"size:64" json:"icon"`
	Description string    `gorm:"size:500" json:"description"`
	Category    string    `gorm:"size:32;index" json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = newID()
	}
	return nil
}
