package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/models"
)

type pushCall struct {
	token, title, body string
	data               map[string]interface{}
}

type fakePusher struct {
	mu    sync.Mutex
	calls []pushCall
	err   error
}

func (p *fakePusher) Send(_ context.Context, token, title, body string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{token, title, body, data})
	return p.err
}

func newNotifications(t *testing.T, pusher Pusher) *NotificationService {
	svc := NewNotificationService(newTestDB(t), pusher, time.Second)
	svc.spawn = func(f func()) { f() }
	return svc
}

const validToken = "ExponentPushToken[abc123]"

func TestDispatchStoresAndPushes(t *testing.T) {
	pusher := &fakePusher{}
	svc := newNotifications(t, pusher)
	ctx := context.Background()
	require.NoError(t, svc.db.Create(&models.UserProfile{ID: "u1", DisplayName: "Ana"}).Error)
	require.NoError(t, svc.RegisterPushToken(ctx, "u1", validToken))

	n, err := svc.Dispatch(ctx, NotificationInput{
		UserID: "u1",
		Type:   models.NotifyHitchReminder,
		Title:  "Reminder",
		Body:   "Go run",
		Data:   map[string]interface{}{"challenge_id": "c1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)

	require.Len(t, pusher.calls, 1)
	call := pusher.calls[0]
	assert.Equal(t, validToken, call.token)
	assert.Equal(t, "Reminder", call.title)
	assert.Equal(t, n.ID, call.data["notification_id"])
	assert.Equal(t, "hitch_reminder", call.data["type"])
	assert.Equal(t, "c1", call.data["challenge_id"])

	_, err = svc.Dispatch(ctx, NotificationInput{UserID: "u1", Type: "bogus", Title: "x", Body: "y"})
	assert.Error(t, err)
}

func TestPushFailuresAndBadTokensAreSwallowed(t *testing.T) {
	pusher := &fakePusher{err: errors.New("expo down")}
	svc := newNotifications(t, pusher)
	ctx := context.Background()
	require.NoError(t, svc.db.Create(&models.UserProfile{ID: "u1", PushToken: "not-a-token"}).Error)
	require.NoError(t, svc.db.Create(&models.UserProfile{ID: "u2", PushToken: validToken}).Error)

	svc.Notify(ctx, NotificationInput{UserID: "u1", Type: models.NotifyFriendRequest, Title: "t", Body: "b"})
	assert.Empty(t, pusher.calls)

	svc.Notify(ctx, NotificationInput{UserID: "u2", Type: models.NotifyFriendRequest, Title: "t", Body: "b"})
	assert.Len(t, pusher.calls, 1)

	var n int64
	svc.db.Model(&models.Notification{}).Count(&n)
	assert.EqualValues(t, 2, n)
}

func TestNotificationInbox(t *testing.T) {
	svc := newNotifications(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.db.Create(&models.UserProfile{ID: "u1"}).Error)

	past := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		n, err := svc.Dispatch(ctx, NotificationInput{UserID: "u1", Type: models.NotifyMemberJoined, Title: "t", Body: "b"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := svc.Dispatch(ctx, NotificationInput{UserID: "u1", Type: models.NotifyMemberJoined, Title: "old", Body: "b", ExpiresAt: &past})
	require.NoError(t, err)
	other, err := svc.Dispatch(ctx, NotificationInput{UserID: "u2", Type: models.NotifyMemberJoined, Title: "t", Body: "b"})
	require.NoError(t, err)

	page, err := svc.List(ctx, "u1", false, PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.EqualValues(t, 3, page.UnreadCount)

	marked, err := svc.MarkRead(ctx, "u1", []string{ids[0], ids[0], other.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	unread, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	page, err = svc.List(ctx, "u1", true, PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	assert.ErrorIs(t, svc.Delete(ctx, "u1", other.ID), ErrNotificationNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", ids[1]))

	all, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, all)
}

func TestPushTokenRegistration(t *testing.T) {
	svc := newNotifications(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.db.Create(&models.UserProfile{ID: "u1"}).Error)

	assert.ErrorIs(t, svc.RegisterPushToken(ctx, "u1", "abc"), ErrInvalidPushToken)
	require.NoError(t, svc.RegisterPushToken(ctx, "u1", " "+validToken+" "))

	var p models.UserProfile
	require.NoError(t, svc.db.First(&p, "id = ?", "u1").Error)
	assert.Equal(t, validToken, p.PushToken)

	require.NoError(t, svc.UnregisterPushToken(ctx, "u1"))
	require.NoError(t, svc.db.First(&p, "id = ?", "u1").Error)
	assert.Empty(t, p.PushToken)

	assert.ErrorIs(t, svc.RegisterPushToken(ctx, "ghost", validToken), ErrUserNotFound)
}
