package models

import (
	"time"

	"gorm.io/gorm"
)

// Challenge status values.
const (
	ChallengePending   = "pending"
	ChallengeActive    = "active"
	ChallengeCompleted = "completed"
	ChallengeFailed    = "failed"
	ChallengeArchived  = "archived"
)

// Challenge type values.
const (
	ChallengeIndividual = "individual"
	ChallengeGroup      = "group"
)

// Check-in evidence kinds a challenge can require.
const (
	CheckinTypePhoto   = "photo"
	CheckinTypeVideo   = "video"
	CheckinTypeCaption = "caption"
	CheckinTypeAny     = "any"
)

var challengeTransitions = map[string][]string{
	ChallengePending:   {ChallengeActive, ChallengeArchived},
	ChallengeActive:    {ChallengeCompleted, ChallengeFailed, ChallengeArchived},
	ChallengeCompleted: {ChallengeArchived},
	ChallengeFailed:    {ChallengeArchived},
}

// CanTransitionChallenge reports whether a challenge may move from one status to another.
// Re-setting the current status is allowed.
func CanTransitionChallenge(from, to string) bool {
	if from == to {
		return IsChallengeStatus(to)
	}
	for _, next := range challengeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsChallengeStatus reports whether s is a known challenge status.
func IsChallengeStatus(s string) bool {
	switch s {
	case ChallengePending, ChallengeActive, ChallengeCompleted, ChallengeFailed, ChallengeArchived:
		return true
	}
	return false
}

// Challenge is a time-boxed group commitment to up to four habits.
type Challenge struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	Type            string    `gorm:"size:16;not null;default:group" json:"type"`
	Status          string    `gorm:"size:16;not null;default:pending;index" json:"status"`
	StartDate       string    `gorm:"type:varchar(10);not null" json:"start_date"`
	EndDate         string    `gorm:"type:varchar(10);not null;index" json:"end_date"`
	CheckinType     string    `gorm:"size:16;not null;default:any" json:"checkin_type"`
	RequireEvidence bool      `gorm:"not null" json:"require_evidence"`
	IsPublic        bool      `gorm:"default:false" json:"is_public"`
	InviteCode      string    `gorm:"type:varchar(6);uniqueIndex" json:"invite_code,omitempty"`
	MaxMembers      int       `gorm:"default:10" json:"max_members"`
	MemberCount     int       `gorm:"default:0" json:"member_count"`
	CreatedBy       string    `gorm:"type:varchar(36);index;not null" json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// ChallengeHabit links a habit to a challenge with optional display overrides.
type ChallengeHabit struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChallengeID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_challenge_habit" json:"challenge_id"`
	HabitID           string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_challenge_habit" json:"habit_id"`
	DisplayOrder      int       `gorm:"default:0" json:"display_order"`
	CustomName        string    `gorm:"size:100" json:"custom_name,omitempty"`
	CustomIcon        string    `gorm:"size:64" json:"custom_icon,omitempty"`
	CustomDescription string    `gorm:"size:500" json:"custom_description,omitempty"`
	TotalCheckins     int       `gorm:"default:0" json:"total_checkins"`
	CreatedAt         time.Time `json:"created_at"`
	Habit             Habit     `gorm:"foreignKey:HabitID" json:"habit"`
}

func (h *ChallengeHabit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = newID()
	}
	return nil
}

// DisplayName prefers the challenge-level override.
func (h ChallengeHabit) DisplayName() string {
	if h.CustomName != "" {
		return h.CustomName
	}
	return h.Habit.Name
}

// DisplayIcon prefers the challenge-level override.
func (h ChallengeHabit) DisplayIcon() string {
	if h.CustomIcon != "" {
		return h.CustomIcon
	}
	return h.Habit.Icon
}
