package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/darezone/api/models"
)

// Friend request responses.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
	ActionBlock  = "block"
)

// FriendService manages the friendship graph. One row exists per unordered pair.
type FriendService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewFriendService creates the service.
func NewFriendService(db *gorm.DB, notifier Notifier) *FriendService {
	return &FriendService{db: db, notifier: notifier}
}

// FriendView is a friendship seen from one side.
type FriendView struct {
	FriendshipID     string               `json:"friendship_id"`
	Status           string               `json:"status"`
	Direction        string               `json:"direction"`
	Friend           models.PublicProfile `json:"friend"`
	ActiveChallenges int                  `json:"active_challenges"`
	Since            time.Time            `json:"since"`
}

// FriendRequests splits pending requests by direction.
type FriendRequests struct {
	Received      []FriendView `json:"received"`
	Sent          []FriendView `json:"sent"`
	ReceivedCount int          `json:"received_count"`
	SentCount     int          `json:"sent_count"`
}

func pairQuery(tx *gorm.DB, a, b string) *gorm.DB {
	return tx.Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)", a, b, b, a)
}

func findPair(tx *gorm.DB, a, b string) (*models.Friendship, error) {
	var f models.Friendship
	if err := pairQuery(tx, a, b).First(&f).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load friendship: %w", err)
	}
	return &f, nil
}

// Request sends a friend request from userID to addresseeID. A rejected pair is re-opened.
func (s *FriendService) Request(ctx context.Context, userID, addresseeID string) (*models.Friendship, error) {
	if userID == addresseeID {
		return nil, ErrSelfFriend
	}
	tx := s.db.WithContext(ctx)
	var target models.UserProfile
	if err := tx.Select("id").First(&target, "id = ?", addresseeID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load addressee: %w", err)
	}

	existing, err := findPair(tx, userID, addresseeID)
	if err != nil {
		return nil, err
	}
	var f *models.Friendship
	if existing != nil {
		switch existing.Status {
		case models.FriendAccepted:
			return nil, ErrAlreadyFriends
		case models.FriendPending:
			if existing.RequesterID == userID {
				return nil, ErrFriendRequestSent
			}
			return nil, ErrFriendRequestPending
		case models.FriendBlocked:
			return nil, ErrFriendBlocked
		}
		if !models.CanTransitionFriendship(existing.Status, models.FriendPending) {
			return nil, ErrInvalidTransition
		}
		if err := tx.Model(existing).Updates(map[string]interface{}{
			"requester_id": userID,
			"addressee_id": addresseeID,
			"status":       models.FriendPending,
		}).Error; err != nil {
			return nil, fmt.Errorf("reopen friendship: %w", err)
		}
		existing.RequesterID, existing.AddresseeID, existing.Status = userID, addresseeID, models.FriendPending
		f = existing
	} else {
		f = &models.Friendship{RequesterID: userID, AddresseeID: addresseeID, Status: models.FriendPending}
		if err := tx.Create(f).Error; err != nil {
			if isDuplicateKey(err) {
				// lost a race with a request for the same pair
				if other, ferr := findPair(tx, userID, addresseeID); ferr == nil && other != nil {
					if other.Status == models.FriendAccepted {
						return nil, ErrAlreadyFriends
					}
					if other.RequesterID != userID {
						return nil, ErrFriendRequestPending
					}
				}
				return nil, ErrFriendRequestSent
			}
			return nil, fmt.Errorf("create friendship: %w", err)
		}
	}

	var me models.UserProfile
	name := "Someone"
	if err := tx.Select("id", "display_name").First(&me, "id = ?", userID).Error; err == nil && me.DisplayName != "" {
		name = me.DisplayName
	}
	s.notifier.Notify(ctx, NotificationInput{
		UserID: addresseeID,
		Type:   models.NotifyFriendRequest,
		Title:  "New friend request",
		Body:   fmt.Sprintf("%s wants to be your friend", name),
		Data:   map[string]interface{}{"friendship_id": f.ID, "user_id": userID},
	})
	return f, nil
}

// Respond accepts, rejects or blocks a pending request addressed to userID.
func (s *FriendService) Respond(ctx context.Context, userID, friendshipID, action string) (*models.Friendship, error) {
	var next string
	switch action {
	case ActionAccept:
		next = models.FriendAccepted
	case ActionReject:
		next = models.FriendRejected
	case ActionBlock:
		next = models.FriendBlocked
	default:
		return nil, badRequest(40053, "action must be accept, reject or block")
	}
	tx := s.db.WithContext(ctx)
	var f models.Friendship
	if err := tx.First(&f, "id = ?", friendshipID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("load friendship: %w", err)
	}
	if f.AddresseeID != userID {
		return nil, ErrNotAddressee
	}
	if f.Status != models.FriendPending || !models.CanTransitionFriendship(f.Status, next) {
		return nil, ErrRequestNotPending
	}
	if err := tx.Model(&f).Update("status", next).Error; err != nil {
		return nil, fmt.Errorf("update friendship: %w", err)
	}
	f.Status = next

	if next == models.FriendAccepted {
		var me models.UserProfile
		name := "Someone"
		if err := tx.Select("id", "display_name").First(&me, "id = ?", userID).Error; err == nil && me.DisplayName != "" {
			name = me.DisplayName
		}
		s.notifier.Notify(ctx, NotificationInput{
			UserID: f.RequesterID,
			Type:   models.NotifyFriendAccepted,
			Title:  "Friend request accepted",
			Body:   fmt.Sprintf("%s accepted your friend request", name),
			Data:   map[string]interface{}{"friendship_id": f.ID, "user_id": userID},
		})
	}
	return &f, nil
}

// List returns the caller's friendships filtered by status (accepted, pending or all).
func (s *FriendService) List(ctx context.Context, userID, status string) ([]FriendView, error) {
	statuses := []string{models.FriendAccepted}
	switch status {
	case "", models.FriendAccepted:
	case models.FriendPending:
		statuses = []string{models.FriendPending}
	case "all":
		statuses = []string{models.FriendAccepted, models.FriendPending}
	default:
		return nil, badRequest(40054, "status must be accepted, pending or all")
	}
	q := s.db.WithContext(ctx).Where("(requester_id = ? OR addressee_id = ?) AND status IN ?", userID, userID, statuses)
	var rows []models.Friendship
	if err := q.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	return s.views(ctx, userID, rows)
}

// Requests returns pending requests received and sent by the caller.
func (s *FriendService) Requests(ctx context.Context, userID string) (*FriendRequests, error) {
	var rows []models.Friendship
	if err := s.db.WithContext(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, models.FriendPending).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	views, err := s.views(ctx, userID, rows)
	if err != nil {
		return nil, err
	}
	out := &FriendRequests{Received: []FriendView{}, Sent: []FriendView{}}
	for _, v := range views {
		if v.Direction == "received" {
			out.Received = append(out.Received, v)
		} else {
			out.Sent = append(out.Sent, v)
		}
	}
	out.ReceivedCount, out.SentCount = len(out.Received), len(out.Sent)
	return out, nil
}

func (s *FriendService) views(ctx context.Context, userID string, rows []models.Friendship) ([]FriendView, error) {
	out := make([]FriendView, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.Other(userID))
	}
	tx := s.db.WithContext(ctx)
	var profiles []models.UserProfile
	if err := tx.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("load friend profiles: %w", err)
	}
	byID := make(map[string]models.UserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	var counts []struct {
		UserID string
		N      int
	}
	if err := tx.Table("challenge_members AS m").Joins("JOIN challenges c ON c.id = m.challenge_id").
		Select("m.user_id AS user_id, COUNT(*) AS n").
		Where("m.user_id IN ? AND m.status = ? AND c.status = ?", ids, models.MemberActive, models.ChallengeActive).
		Group("m.user_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count friend challenges: %w", err)
	}
	active := make(map[string]int, len(counts))
	for _, c := range counts {
		active[c.UserID] = c.N
	}

	for _, f := range rows {
		other := f.Other(userID)
		dir := "sent"
		if f.AddresseeID == userID {
			dir = "received"
		}
		p, ok := byID[other]
		if !ok {
			p = models.UserProfile{ID: other}
		}
		out = append(out, FriendView{
			FriendshipID:     f.ID,
			Status:           f.Status,
			Direction:        dir,
			Friend:           p.Public(),
			ActiveChallenges: active[other],
			Since:            f.UpdatedAt,
		})
	}
	return out, nil
}

// Remove deletes the friendship row between the caller and otherID in either direction.
func (s *FriendService) Remove(ctx context.Context, userID, otherID string) error {
	if userID == otherID {
		return ErrSelfUnfriend
	}
	res := pairQuery(s.db.WithContext(ctx), userID, otherID).Delete(&models.Friendship{})
	if res.Error != nil {
		return fmt.Errorf("delete friendship: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFriendshipNotFound
	}
	return nil
}

// Status returns the friendship status between a and b, or "none".
func (s *FriendService) Status(ctx context.Context, a, b string) (string, error) {
	f, err := findPair(s.db.WithContext(ctx), a, b)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "none", nil
	}
	return f.Status, nil
}
