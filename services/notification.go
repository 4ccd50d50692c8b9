package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

// NotificationInput describes one notification to record.
type NotificationInput struct {
	UserID    string
	Type      models.NotificationType
	Title     string
	Body      string
	Data      map[string]interface{}
	ActionURL string
	ExpiresAt *time.Time
}

// NotificationService stores notifications durably and attempts push delivery best-effort.
type NotificationService struct {
	db          *gorm.DB
	pusher      Pusher
	pushTimeout time.Duration
	// spawn runs push delivery; tests replace it to run inline.
	spawn func(func())
}

// NewNotificationService creates a dispatcher. pusher may be nil to disable push.
func NewNotificationService(db *gorm.DB, pusher Pusher, pushTimeout time.Duration) *NotificationService {
	if pushTimeout <= 0 {
		pushTimeout = 10 * time.Second
	}
	return &NotificationService{
		db:          db,
		pusher:      pusher,
		pushTimeout: pushTimeout,
		spawn:       func(f func()) { go f() },
	}
}

// Dispatch inserts the notification and schedules a push. Push failures never surface.
func (s *NotificationService) Dispatch(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q", in.Type)
	}
	n := models.Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     truncateRunes(in.Title, 200),
		Body:      truncateRunes(in.Body, 500),
		Data:      models.JSONMap(in.Data),
		ActionURL: in.ActionURL,
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.schedulePush(n)
	return &n, nil
}

// Notify is Dispatch with errors logged and swallowed.
func (s *NotificationService) Notify(ctx context.Context, in NotificationInput) {
	if _, err := s.Dispatch(ctx, in); err != nil {
		logger().Warn("notification dispatch failed",
			zap.String("user_id", in.UserID), zap.String("type", string(in.Type)), zap.Error(err))
	}
}

func (s *NotificationService) schedulePush(n models.Notification) {
	if s.pusher == nil {
		return
	}
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()

		var p models.UserProfile
		if err := s.db.WithContext(ctx).Select("id", "push_token").First(&p, "id = ?", n.UserID).Error; err != nil {
			utils.PushDeliveriesTotal.WithLabelValues("skipped").Inc()
			return
		}
		if !utils.IsExpoPushToken(p.PushToken) {
			utils.PushDeliveriesTotal.WithLabelValues("skipped").Inc()
			return
		}
		data := map[string]interface{}{"notification_id": n.ID, "type": string(n.Type)}
		for k, v := range n.Data {
			data[k] = v
		}
		if err := s.pusher.Send(ctx, p.PushToken, n.Title, n.Body, data); err != nil {
			logger().Warn("push delivery failed", zap.String("user_id", n.UserID), zap.Error(err))
		}
	})
}

// NotificationPage is a page of notifications plus the unread total.
type NotificationPage struct {
	Items       []models.Notification `json:"items"`
	Total       int64                 `json:"total"`
	UnreadCount int64                 `json:"unread_count"`
	Page        int                   `json:"page"`
	Limit       int                   `json:"limit"`
}

func (s *NotificationService) visible(ctx context.Context, userID string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC())
}

// List returns the caller's non-expired notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, q PageQuery) (*NotificationPage, error) {
	q = q.Normalize(20)
	query := s.visible(ctx, userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	items := []models.Notification{}
	if err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, Total: total, UnreadCount: unread, Page: q.Page, Limit: q.Limit}, nil
}

// UnreadCount counts unread non-expired notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := s.visible(ctx, userID).Where("is_read = ?", false).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks the given ids read; ids owned by other users are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	ids = utils.UniqueStrings(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", userID, ids, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkAllRead marks every unread notification read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// RegisterPushToken stores the device token on the caller's profile.
func (s *NotificationService) RegisterPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if !utils.IsExpoPushToken(token) {
		return ErrInvalidPushToken
	}
	return s.setPushToken(ctx, userID, token)
}

// UnregisterPushToken clears the caller's device token.
func (s *NotificationService) UnregisterPushToken(ctx context.Context, userID string) error {
	return s.setPushToken(ctx, userID, "")
}

func (s *NotificationService) setPushToken(ctx context.Context, userID, token string) error {
	res := s.db.WithContext(ctx).Model(&models.UserProfile{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"push_token": token, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update push token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
