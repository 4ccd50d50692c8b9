package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/models"
)

func strPtr(s string) *string { return &s }

func TestUpdateMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")

	_, err := f.users.UpdateMe(ctx, "a", UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	_, err = f.users.UpdateMe(ctx, "a", UpdateProfileInput{DisplayName: strPtr("")})
	assert.Equal(t, KindBadRequest, KindOf(err))

	p, err := f.users.UpdateMe(ctx, "a", UpdateProfileInput{DisplayName: strPtr("Ana B"), Bio: strPtr("<script>x</script>runner")})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", p.DisplayName)
	assert.Equal(t, "runner", p.Bio)
}

func TestUserStatsAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Anabel")
	f.user(t, "c", "Cy")
	f.challenge(t, "a", f.habits(t, "Run"))
	req, err := f.friends.Request(ctx, "a", "b")
	require.NoError(t, err)
	_, err = f.friends.Respond(ctx, "b", req.ID, ActionAccept)
	require.NoError(t, err)

	st, err := f.users.Stats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActiveChallenges)
	assert.Equal(t, 1, st.FriendCount)

	_, err = f.users.Search(ctx, "a", "a", 10)
	assert.ErrorIs(t, err, ErrSearchQueryTooShort)

	res, err := f.users.Search(ctx, "a", "ANA", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].ID)
	assert.Equal(t, models.FriendAccepted, res[0].FriendshipStatus)

	res, err = f.users.Search(ctx, "c", "example.com", 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Equal(t, "none", res[0].FriendshipStatus)
}

func TestPublicProfileVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	f.user(t, "c", "Cy")
	f.user(t, "d", "Di")
	ch := f.challenge(t, "a", f.habits(t, "Run"))
	f.join(t, "c", ch)
	req, err := f.friends.Request(ctx, "a", "b")
	require.NoError(t, err)
	_, err = f.friends.Respond(ctx, "b", req.ID, ActionAccept)
	require.NoError(t, err)

	me, err := f.users.Public(ctx, "a", "a")
	require.NoError(t, err)
	assert.Equal(t, "self", me.FriendshipStatus)

	friend, err := f.users.Public(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "Ben", friend.DisplayName)

	_, err = f.users.Public(ctx, "c", "a")
	require.NoError(t, err)

	_, err = f.users.Public(ctx, "d", "a")
	assert.ErrorIs(t, err, ErrProfileHidden)

	_, err = f.users.Public(ctx, "a", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
