package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/darezone/api/models"
)

func TestFriendRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")

	_, err := f.friends.Request(ctx, "a", "a")
	assert.ErrorIs(t, err, ErrSelfFriend)
	_, err = f.friends.Request(ctx, "a", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	req, err := f.friends.Request(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.FriendPending, req.Status)
	require.Len(t, f.notifier.byType(models.NotifyFriendRequest), 1)

	_, err = f.friends.Request(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrFriendRequestSent)
	_, err = f.friends.Request(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrFriendRequestPending)

	reqs, err := f.friends.Requests(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, reqs.ReceivedCount)
	assert.Equal(t, 0, reqs.SentCount)
	assert.Equal(t, "Ana", reqs.Received[0].Friend.DisplayName)

	_, err = f.friends.Respond(ctx, "a", req.ID, ActionAccept)
	assert.ErrorIs(t, err, ErrNotAddressee)
	_, err = f.friends.Respond(ctx, "b", req.ID, "maybe")
	assert.Equal(t, KindBadRequest, KindOf(err))

	got, err := f.friends.Respond(ctx, "b", req.ID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.FriendAccepted, got.Status)
	accepted := f.notifier.byType(models.NotifyFriendAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "a", accepted[0].UserID)

	_, err = f.friends.Respond(ctx, "b", req.ID, ActionReject)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	_, err = f.friends.Request(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrAlreadyFriends)

	list, err := f.friends.List(ctx, "a", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Friend.ID)
	assert.Equal(t, "sent", list[0].Direction)
}

func TestRejectedRequestCanBeReopened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")

	req, err := f.friends.Request(ctx, "a", "b")
	require.NoError(t, err)
	_, err = f.friends.Respond(ctx, "b", req.ID, ActionReject)
	require.NoError(t, err)

	again, err := f.friends.Request(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, req.ID, again.ID)
	assert.Equal(t, "b", again.RequesterID)
	assert.Equal(t, models.FriendPending, again.Status)

	_, err = f.friends.Respond(ctx, "a", again.ID, ActionBlock)
	require.NoError(t, err)
	_, err = f.friends.Request(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrFriendBlocked)
}

func TestRemoveFriendIsSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")

	req, err := f.friends.Request(ctx, "a", "b")
	require.NoError(t, err)
	_, err = f.friends.Respond(ctx, "b", req.ID, ActionAccept)
	require.NoError(t, err)

	assert.ErrorIs(t, f.friends.Remove(ctx, "a", "a"), ErrSelfUnfriend)
	require.NoError(t, f.friends.Remove(ctx, "b", "a"))
	assert.ErrorIs(t, f.friends.Remove(ctx, "a", "b"), ErrFriendshipNotFound)
	err = f.friends.Remove(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrFriendshipNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))

	status, err := f.friends.Status(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "none", status)
}

func TestOppositeDirectionRequestsShareOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")

	_, err := f.friends.Request(ctx, "a", "b")
	require.NoError(t, err)

	// a concurrent reverse request that skipped the lookup still hits the pair key
	err = f.db.Create(&models.Friendship{RequesterID: "b", AddresseeID: "a", Status: models.FriendPending}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var n int64
	f.db.Model(&models.Friendship{}).Count(&n)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, models.FriendPairKey("a", "b"), models.FriendPairKey("b", "a"))
}
