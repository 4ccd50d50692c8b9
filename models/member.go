package models

import (
	"time"

	"gorm.io/gorm"
)

// Member roles.
const (
	RoleCreator = "creator"
	RoleAdmin   = "admin"
	RoleMember  = "member"
)

// Member statuses.
const (
	MemberPending = "pending"
	MemberActive  = "active"
	MemberLeft    = "left"
	MemberKicked  = "kicked"
)

var memberTransitions = map[string][]string{
	MemberPending: {MemberActive},
	MemberActive:  {MemberLeft, MemberKicked},
	MemberLeft:    {MemberActive},
}

// CanTransitionMember reports whether a membership may move between statuses.
func CanTransitionMember(from, to string) bool {
	for _, next := range memberTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ChallengeMember is the per-user state inside one challenge: role, streak, points and hitch allowance.
type ChallengeMember struct {
	ID            string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChallengeID   string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_challenge_member" json:"challenge_id"`
	UserID        string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_challenge_member;index" json:"user_id"`
	Role          string      `gorm:"size:16;not null;default:member" json:"role"`
	Status        string      `gorm:"size:16;not null;default:active" json:"status"`
	CurrentStreak int         `gorm:"default:0" json:"current_streak"`
	LongestStreak int         `gorm:"default:0" json:"longest_streak"`
	TotalCheckins int         `gorm:"default:0" json:"total_checkins"`
	PointsEarned  int         `gorm:"default:0" json:"points_earned"`
	HitchCount    int         `gorm:"not null" json:"hitch_count"`
	JoinedAt      time.Time   `json:"joined_at"`
	LeftAt        *time.Time  `json:"left_at,omitempty"`
	LastCheckinAt *time.Time  `json:"last_checkin_at,omitempty"`
	User          UserProfile `gorm:"foreignKey:UserID" json:"-"`
}

func (m *ChallengeMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return nil
}

// IsActive reports whether the member currently participates.
func (m ChallengeMember) IsActive() bool {
	return m.Status == MemberActive
}
