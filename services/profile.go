package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

// ProfileService fetches or lazily creates the caller's profile.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService creates a resolver.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// Resolve returns the profile for id, creating it from the identity on first access.
func (s *ProfileService) Resolve(ctx context.Context, id utils.Identity) (*models.UserProfile, error) {
	tx := s.db.WithContext(ctx)
	var p models.UserProfile
	err := tx.First(&p, "id = ?", id.ID).Error
	if err == nil {
		s.touch(tx, &p)
		return &p, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	now := time.Now().UTC()
	p = models.UserProfile{
		ID:          id.ID,
		Email:       id.Email,
		FullName:    utils.SanitizeText(metaString(id.Metadata, "full_name", "name")),
		DisplayName: utils.SanitizeText(defaultDisplayName(id)),
		AvatarURL:   metaString(id.Metadata, "avatar_url"),
		AccountType: "b2c",
		LastSeenAt:  &now,
	}
	if err := tx.Create(&p).Error; err != nil {
		// a concurrent first request created it
		if isDuplicateKey(err) {
			if err := tx.First(&p, "id = ?", id.ID).Error; err == nil {
				return &p, nil
			}
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	logger().Sugar().Infof("created profile for user %s", p.ID)
	return &p, nil
}

// Get loads a profile by id.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// touch bumps last_seen_at at most once per hour.
func (s *ProfileService) touch(tx *gorm.DB, p *models.UserProfile) {
	now := time.Now().UTC()
	if p.LastSeenAt != nil && now.Sub(*p.LastSeenAt) < time.Hour {
		return
	}
	if err := tx.Model(&models.UserProfile{}).Where("id = ?", p.ID).UpdateColumn("last_seen_at", now).Error; err != nil {
		logger().Sugar().Warnf("update last_seen_at for %s: %v", p.ID, err)
		return
	}
	p.LastSeenAt = &now
}

func defaultDisplayName(id utils.Identity) string {
	if name := metaString(id.Metadata, "display_name", "full_name", "name"); name != "" {
		return truncateRunes(name, 50)
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return truncateRunes(id.Email[:at], 50)
	}
	return "user"
}

func metaString(meta map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := meta[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
