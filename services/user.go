package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

// UserService serves profile reads, edits and search.
type UserService struct {
	db      *gorm.DB
	stats   *StatsService
	friends *FriendService
}

// NewUserService creates the service.
func NewUserService(db *gorm.DB, stats *StatsService, friends *FriendService) *UserService {
	return &UserService{db: db, stats: stats, friends: friends}
}

// UpdateProfileInput holds optional profile fields; nil means unchanged.
type UpdateProfileInput struct {
	FullName    *string
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}

// UserStats is the caller's own stats page.
type UserStats struct {
	ProfileTotals
	ActiveChallenges int `json:"active_challenges"`
	FriendCount      int `json:"friend_count"`
}

// UserSearchResult is a profile match plus the friendship status with the caller.
type UserSearchResult struct {
	models.PublicProfile
	FriendshipStatus string `json:"friendship_status"`
}

// PublicUser is another user's profile as visible to the caller.
type PublicUser struct {
	models.PublicProfile
	Stats            ProfileTotals `json:"stats"`
	FriendshipStatus string        `json:"friendship_status"`
}

// Me returns the caller's full profile.
func (s *UserService) Me(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// UpdateMe edits the caller's profile fields.
func (s *UserService) UpdateMe(ctx context.Context, userID string, in UpdateProfileInput) (*models.UserProfile, error) {
	updates := map[string]interface{}{}
	if in.FullName != nil {
		v := utils.SanitizeText(*in.FullName)
		if v == "" || len([]rune(v)) > 100 {
			return nil, badRequest(40061, "full_name must be 1-100 characters")
		}
		updates["full_name"] = v
	}
	if in.DisplayName != nil {
		v := utils.SanitizeText(*in.DisplayName)
		if v == "" || len([]rune(v)) > 50 {
			return nil, badRequest(40062, "display_name must be 1-50 characters")
		}
		updates["display_name"] = v
	}
	if in.Bio != nil {
		v := utils.SanitizeText(*in.Bio)
		if len([]rune(v)) > 500 {
			return nil, badRequest(40063, "bio must be at most 500 characters")
		}
		updates["bio"] = v
	}
	if in.AvatarURL != nil {
		v := strings.TrimSpace(*in.AvatarURL)
		if len(v) > 1024 {
			return nil, badRequest(40064, "avatar_url is too long")
		}
		updates["avatar_url"] = v
	}
	if len(updates) == 0 {
		return nil, ErrEmptyUpdate
	}
	p, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Me(ctx, userID)
}

// Stats returns profile counters, running challenge count and friend count.
func (s *UserService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	totals, err := s.stats.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)
	var active, friends int64
	if err := tx.Table("challenge_members AS m").Joins("JOIN challenges c ON c.id = m.challenge_id").
		Where("m.user_id = ? AND m.status = ? AND c.status IN ?", userID, models.MemberActive,
			[]string{models.ChallengePending, models.ChallengeActive}).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("count active challenges: %w", err)
	}
	if err := tx.Model(&models.Friendship{}).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, models.FriendAccepted).
		Count(&friends).Error; err != nil {
		return nil, fmt.Errorf("count friends: %w", err)
	}
	return &UserStats{ProfileTotals: totals, ActiveChallenges: int(active), FriendCount: int(friends)}, nil
}

// Search matches display name or email case-insensitively, excluding the caller.
func (s *UserService) Search(ctx context.Context, userID, query string, limit int) ([]UserSearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, ErrSearchQueryTooShort
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var profiles []models.UserProfile
	if err := s.db.WithContext(ctx).
		Where("id <> ? AND (LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?)", userID, pattern, pattern).
		Order("display_name ASC").Limit(limit).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out := make([]UserSearchResult, 0, len(profiles))
	for _, p := range profiles {
		status, err := s.friends.Status(ctx, userID, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserSearchResult{PublicProfile: p.Public(), FriendshipStatus: status})
	}
	return out, nil
}

// Public returns another user's profile. Only friends and co-members of an active challenge may see it.
func (s *UserService) Public(ctx context.Context, viewerID, targetID string) (*PublicUser, error) {
	target, err := s.Me(ctx, targetID)
	if err != nil {
		return nil, err
	}
	totals, err := s.stats.Profile(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if viewerID == targetID {
		return &PublicUser{PublicProfile: target.Public(), Stats: totals, FriendshipStatus: "self"}, nil
	}

	status, err := s.friends.Status(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	if status != models.FriendAccepted {
		shared, err := s.shareActiveChallenge(ctx, viewerID, targetID)
		if err != nil {
			return nil, err
		}
		if !shared {
			return nil, ErrProfileHidden
		}
	}
	return &PublicUser{PublicProfile: target.Public(), Stats: totals, FriendshipStatus: status}, nil
}

func (s *UserService) shareActiveChallenge(ctx context.Context, a, b string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("challenge_members AS m1").
		Joins("JOIN challenge_members m2 ON m2.challenge_id = m1.challenge_id").
		Joins("JOIN challenges c ON c.id = m1.challenge_id").
		Where("m1.user_id = ? AND m2.user_id = ? AND m1.status = ? AND m2.status = ? AND c.status = ?",
			a, b, models.MemberActive, models.MemberActive, models.ChallengeActive).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check shared challenge: %w", err)
	}
	return n > 0, nil
}
