package models

import (
	"time"

	"gorm.io/gorm"
)

// HitchLog records one reminder per sender, target, habit, challenge and day.
type HitchLog struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChallengeID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_hitch_day" json:"challenge_id"`
	HabitID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_hitch_day" json:"habit_id"`
	SenderID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_hitch_day" json:"sender_id"`
	TargetID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_hitch_day;index" json:"target_id"`
	HitchDate   string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_hitch_day" json:"hitch_date"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *HitchLog) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = newID()
	}
	return nil
}
