package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/darezone/api/models"
)

// MembershipGuard answers whether a user may act inside a challenge. It always reads current state.
type MembershipGuard struct {
	db *gorm.DB
}

// NewMembershipGuard creates a guard.
func NewMembershipGuard(db *gorm.DB) *MembershipGuard {
	return &MembershipGuard{db: db}
}

// Verify returns the caller's membership row in any status, or ErrNotMember.
func (g *MembershipGuard) Verify(ctx context.Context, challengeID, userID string) (*models.ChallengeMember, error) {
	return findMember(g.db.WithContext(ctx), challengeID, userID)
}

// RequireActive is Verify plus an active-status check.
func (g *MembershipGuard) RequireActive(ctx context.Context, challengeID, userID string) (*models.ChallengeMember, error) {
	m, err := g.Verify(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, ErrNotActiveMember
	}
	return m, nil
}

// RequireRole is RequireActive plus a role check.
func (g *MembershipGuard) RequireRole(ctx context.Context, challengeID, userID string, roles ...string) (*models.ChallengeMember, error) {
	m, err := g.RequireActive(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if m.Role == r {
			return m, nil
		}
	}
	return nil, ErrInsufficientRole
}

func findMember(tx *gorm.DB, challengeID, userID string) (*models.ChallengeMember, error) {
	var m models.ChallengeMember
	err := tx.Where("challenge_id = ? AND user_id = ?", challengeID, userID).First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &m, nil
}

func findChallenge(tx *gorm.DB, challengeID string) (*models.Challenge, error) {
	var c models.Challenge
	if err := tx.First(&c, "id = ?", challengeID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	return &c, nil
}
