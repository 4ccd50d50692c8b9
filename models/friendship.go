package models

import (
	"time"

	"gorm.io/gorm"
)

// Friendship statuses.
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	FriendRejected = "rejected"
	FriendBlocked  = "blocked"
)

var friendTransitions = map[string][]string{
	FriendPending:  {FriendAccepted, FriendRejected, FriendBlocked},
	FriendRejected: {FriendPending},
}

// CanTransitionFriendship reports whether a friendship row may move between statuses.
func CanTransitionFriendship(from, to string) bool {
	for _, next := range friendTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Friendship is the single row kept per unordered user pair.
type Friendship struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RequesterID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_friend_pair" json:"requester_id"`
	AddresseeID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_friend_pair;index" json:"addressee_id"`
	PairKey     string    `gorm:"type:varchar(80);not null;uniqueIndex" json:"-"`
	Status      string    `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	f.PairKey = FriendPairKey(f.RequesterID, f.AddresseeID)
	return nil
}

// FriendPairKey is the same for both directions of a pair, so only one row per pair can exist.
func FriendPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// Other returns the id of the pair member that is not userID.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
