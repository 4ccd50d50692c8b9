package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotifyFriendRequest      NotificationType = "friend_request"
	NotifyFriendAccepted     NotificationType = "friend_accepted"
	NotifyChallengeInvite    NotificationType = "challenge_invite"
	NotifyChallengeStarted   NotificationType = "challenge_started"
	NotifyChallengeCompleted NotificationType = "challenge_completed"
	NotifyHitchReminder      NotificationType = "hitch_reminder"
	NotifyStreakMilestone    NotificationType = "streak_milestone"
	NotifyMemberJoined       NotificationType = "member_joined"
	NotifyMemberLeft         NotificationType = "member_left"
)

// Valid reports whether t is one of the known kinds.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyFriendRequest, NotifyFriendAccepted, NotifyChallengeInvite, NotifyChallengeStarted,
		NotifyChallengeCompleted, NotifyHitchReminder, NotifyStreakMilestone, NotifyMemberJoined, NotifyMemberLeft:
		return true
	}
	return false
}

// JSONMap stores a JSON object in a text column.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("JSONMap: unsupported column type")
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// Notification is a durable per-user message; push delivery is attempted separately.
type Notification struct {
	ID        string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string           `gorm:"type:varchar(36);not null;index:idx_notification_user" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	Body      string           `gorm:"size:500;not null" json:"body"`
	Data      JSONMap          `gorm:"type:text" json:"data"`
	ActionURL string           `gorm:"size:1024" json:"action_url,omitempty"`
	IsRead    bool             `gorm:"default:false;index:idx_notification_user" json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.Data == nil {
		n.Data = JSONMap{}
	}
	return nil
}
