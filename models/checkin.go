package models

import (
	"time"

	"gorm.io/gorm"
)

// Check-in statuses.
const (
	CheckinPending   = "pending"
	CheckinCompleted = "completed"
	CheckinVerified  = "verified"
	CheckinRejected  = "rejected"
)

// Checkin is one user's evidence of completing one habit in one challenge on one calendar day.
// The composite unique index is the final arbiter against concurrent duplicates.
type Checkin struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChallengeID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_checkin_day" json:"challenge_id"`
	HabitID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_checkin_day" json:"habit_id"`
	UserID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_checkin_day;index" json:"user_id"`
	CheckinDate   string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_checkin_day;index" json:"checkin_date"`
	Status        string    `gorm:"size:16;not null;default:completed" json:"status"`
	PhotoURL      string    `gorm:"size:1024" json:"photo_url,omitempty"`
	VideoURL      string    `gorm:"size:1024" json:"video_url,omitempty"`
	Caption       string    `gorm:"size:500" json:"caption,omitempty"`
	IsOnTime      bool      `gorm:"not null" json:"is_on_time"`
	StreakCount   int       `gorm:"not null" json:"streak_count"`
	PointsAwarded int       `gorm:"default:0" json:"points_awarded"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c *Checkin) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// PointsLedgerEntry is an append-only record of every points increment, kept for auditing profile totals.
type PointsLedgerEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ChallengeID string    `gorm:"type:varchar(36);not null;index" json:"challenge_id"`
	HabitID     string    `gorm:"type:varchar(36);index:idx_ledger_day" json:"habit_id"`
	CheckinID   string    `gorm:"type:varchar(36);index" json:"checkin_id"`
	CheckinDate string    `gorm:"type:varchar(10);index:idx_ledger_day" json:"checkin_date"`
	Points      int       `json:"points"`
	Reason      string    `gorm:"size:32" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName pins the ledger table name.
func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}
