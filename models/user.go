package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile is the app-side profile keyed by the identity provider's user id.
// Aggregate counters mirror the sum of the user's membership rows and are written only by the check-in engine.
type UserProfile struct {
	ID                       string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email                    string     `gorm:"size:255;index" json:"email"`
	FullName                 string     `gorm:"size:100" json:"full_name"`
	DisplayName              string     `gorm:"size:50;index" json:"display_name"`
	AvatarURL                string     `gorm:"size:1024" json:"avatar_url"`
	Bio                      string     `gorm:"size:500" json:"bio"`
	PushToken                string     `gorm:"size:255" json:"-"`
	AccountType              string     `gorm:"size:16;default:b2c" json:"account_type"`
	CurrentStreak            int        `gorm:"default:0" json:"current_streak"`
	LongestStreak            int        `gorm:"default:0" json:"longest_streak"`
	TotalCheckIns            int        `gorm:"default:0" json:"total_check_ins"`
	TotalChallengesCompleted int        `gorm:"default:0" json:"total_challenges_completed"`
	Points                   int        `gorm:"default:0" json:"points"`
	LastSeenAt               *time.Time `json:"last_seen_at"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *UserProfile) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// PublicProfile is the subset of a profile other users may see.
type PublicProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	FullName    string `json:"full_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// Public strips private fields.
func (u UserProfile) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		FullName:    u.FullName,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
	}
}
