package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

func createInput(habits []string) CreateChallengeInput {
	return CreateChallengeInput{Name: "Run club", StartDate: "2026-03-01", EndDate: "2026-03-31", HabitIDs: habits}
}

func TestCreateChallengeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", "Ana")
	h := f.habits(t, "Run", "Read", "Meditate", "Stretch", "Journal")

	cases := []struct {
		name string
		in   CreateChallengeInput
		want error
	}{
		{"no habits", createInput(nil), ErrInvalidHabitCount},
		{"too many habits", createInput(h), ErrInvalidHabitCount},
		{"duplicate habits", createInput([]string{h[0], h[0]}), ErrDuplicateHabits},
		{"unknown habit", createInput([]string{h[0], "missing"}), ErrUnknownHabits},
		{"end before start", CreateChallengeInput{Name: "x", StartDate: "2026-03-10", EndDate: "2026-03-01", HabitIDs: h[:1]}, ErrInvalidDateRange},
		{"too long", CreateChallengeInput{Name: "x", StartDate: "2026-01-01", EndDate: "2027-06-01", HabitIDs: h[:1]}, ErrChallengeTooLong},
		{"bad date", CreateChallengeInput{Name: "x", StartDate: "03/01/2026", EndDate: "2026-03-31", HabitIDs: h[:1]}, ErrInvalidDate},
		{"blank name", CreateChallengeInput{Name: "  ", StartDate: "2026-03-01", EndDate: "2026-03-31", HabitIDs: h[:1]}, ErrInvalidChallengeName},
		{"bad type", CreateChallengeInput{Name: "x", Type: "team", StartDate: "2026-03-01", EndDate: "2026-03-31", HabitIDs: h[:1]}, ErrInvalidChallengeType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.challenges.Create(ctx, "u1", tc.in)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, KindBadRequest, KindOf(err))
		})
	}

	var n int64
	f.db.Model(&models.Challenge{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreateChallengeSetsUpCreator(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "Ana")
	h := f.habits(t, "Run", "Read")

	v, err := f.challenges.Create(context.Background(), "u1", createInput([]string{h[1], h[0]}))
	require.NoError(t, err)

	assert.Equal(t, models.ChallengePending, v.Status)
	assert.Equal(t, 1, v.MemberCount)
	assert.Equal(t, 10, v.MaxMembers)
	assert.True(t, v.RequireEvidence)
	assert.Len(t, v.InviteCode, utils.InviteCodeLength)
	for _, r := range v.InviteCode {
		assert.Contains(t, utils.InviteAlphabet, string(r))
	}
	assert.Equal(t, models.RoleCreator, v.MyRole)
	require.NotNil(t, v.MyStats)
	assert.Equal(t, 2, v.MyStats.HitchCount)

	require.Len(t, v.Habits, 2)
	assert.Equal(t, h[1], v.Habits[0].ID)
	assert.Equal(t, "Read", v.Habits[0].Name)
	assert.Equal(t, h[0], v.Habits[1].ID)
}

func TestCreateChallengeKeepsExplicitFalseAndZeroValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", "Ana")
	h := f.habits(t, "Run")
	f.challenges.cfg.DefaultHitchCount = 0

	no := false
	in := createInput(h)
	in.RequireEvidence = &no
	v, err := f.challenges.Create(ctx, "u1", in)
	require.NoError(t, err)
	assert.False(t, v.RequireEvidence)

	var stored models.Challenge
	require.NoError(t, f.db.First(&stored, "id = ?", v.ID).Error)
	assert.False(t, stored.RequireEvidence)

	var creator models.ChallengeMember
	require.NoError(t, f.db.First(&creator, "challenge_id = ? AND user_id = ?", v.ID, "u1").Error)
	assert.Equal(t, 0, creator.HitchCount)
}

func TestCreateChallengeInviteCodeExhausted(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "Ana")
	h := f.habits(t, "Run")
	calls := 0
	f.challenges.newCode = func() (string, error) {
		calls++
		return "SAME22", nil
	}

	_, err := f.challenges.Create(context.Background(), "u1", createInput(h))
	require.NoError(t, err)
	calls = 0

	_, err = f.challenges.Create(context.Background(), "u1", createInput(h))
	require.ErrorIs(t, err, ErrInviteCodeExhausted)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, maxInviteAttempts, calls)
}

func TestJoinByInviteCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	f.user(t, "c", "Cy")
	h := f.habits(t, "Run")
	f.challenges.newCode = func() (string, error) { return "ABC234", nil }

	ch, err := f.challenges.Create(ctx, "a", createInput(h))
	require.NoError(t, err)
	require.Equal(t, "ABC234", ch.InviteCode)

	v, err := f.challenges.Join(ctx, "b", "abc234")
	require.NoError(t, err)
	assert.Equal(t, 2, v.MemberCount)
	assert.Equal(t, models.RoleMember, v.MyRole)
	assert.Equal(t, 2, v.MyStats.HitchCount)

	_, err = f.challenges.Join(ctx, "b", "ABC234")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.challenges.Join(ctx, "c", "ZZZ999")
	assert.ErrorIs(t, err, ErrInviteCodeNotFound)

	_, err = f.challenges.Join(ctx, "c", "AB")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)

	joined := f.notifier.byType(models.NotifyMemberJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "a", joined[0].UserID)
}

func TestJoinRespectsCapacityAndKicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		f.user(t, id, id)
	}
	h := f.habits(t, "Run")
	in := createInput(h)
	in.MaxMembers = 2
	ch, err := f.challenges.Create(ctx, "a", in)
	require.NoError(t, err)

	_, err = f.challenges.Join(ctx, "b", ch.InviteCode)
	require.NoError(t, err)
	_, err = f.challenges.Join(ctx, "c", ch.InviteCode)
	assert.ErrorIs(t, err, ErrChallengeFull)

	require.NoError(t, f.db.Model(&models.ChallengeMember{}).
		Where("challenge_id = ? AND user_id = ?", ch.ID, "b").Update("status", models.MemberKicked).Error)
	_, err = f.challenges.Join(ctx, "b", ch.InviteCode)
	assert.ErrorIs(t, err, ErrKickedFromChallenge)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestLeaveAndRejoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	f.user(t, "c", "Cy")
	ch := f.challenge(t, "a", f.habits(t, "Run"))
	f.join(t, "b", ch)

	assert.ErrorIs(t, f.challenges.Leave(ctx, "a", ch.ID), ErrCreatorCannotLeave)
	assert.ErrorIs(t, f.challenges.Leave(ctx, "c", ch.ID), ErrMembershipNotFound)
	assert.ErrorIs(t, f.challenges.Leave(ctx, "b", "nope"), ErrChallengeNotFound)

	require.NoError(t, f.db.Model(&models.ChallengeMember{}).
		Where("challenge_id = ? AND user_id = ?", ch.ID, "b").Update("hitch_count", 0).Error)
	require.NoError(t, f.challenges.Leave(ctx, "b", ch.ID))
	assert.ErrorIs(t, f.challenges.Leave(ctx, "b", ch.ID), ErrAlreadyLeft)

	var stored models.Challenge
	require.NoError(t, f.db.First(&stored, "id = ?", ch.ID).Error)
	assert.Equal(t, 1, stored.MemberCount)
	assert.Len(t, f.notifier.byType(models.NotifyMemberLeft), 1)

	v, err := f.challenges.Join(ctx, "b", ch.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, 2, v.MemberCount)
	assert.Equal(t, models.MemberActive, v.MyStatus)
	assert.Equal(t, 2, v.MyStats.HitchCount)
}

func TestUpdateChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	h := f.habits(t, "Run")
	ch, err := f.challenges.Create(ctx, "a", createInput(h))
	require.NoError(t, err)
	_, err = f.challenges.Join(ctx, "b", ch.InviteCode)
	require.NoError(t, err)

	_, err = f.challenges.Update(ctx, "a", ch.ID, UpdateChallengeInput{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	name := "Renamed"
	_, err = f.challenges.Update(ctx, "b", ch.ID, UpdateChallengeInput{Name: &name})
	assert.ErrorIs(t, err, ErrInsufficientRole)

	completed := models.ChallengeCompleted
	_, err = f.challenges.Update(ctx, "a", ch.ID, UpdateChallengeInput{Status: &completed})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	one := 1
	_, err = f.challenges.Update(ctx, "a", ch.ID, UpdateChallengeInput{MaxMembers: &one})
	assert.ErrorIs(t, err, ErrMaxMembersTooLow)

	active := models.ChallengeActive
	v, err := f.challenges.Update(ctx, "a", ch.ID, UpdateChallengeInput{Name: &name, Status: &active})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", v.Name)
	assert.Equal(t, models.ChallengeActive, v.Status)

	started := f.notifier.byType(models.NotifyChallengeStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "b", started[0].UserID)
}

func TestGetAndListChallenges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	f.user(t, "x", "Xi")
	ch := f.challenge(t, "a", f.habits(t, "Run"))
	f.join(t, "b", ch)

	_, err := f.challenges.Get(ctx, "x", ch.ID)
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = f.challenges.Get(ctx, "a", "missing")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	v, err := f.challenges.Get(ctx, "b", ch.ID)
	require.NoError(t, err)
	require.Len(t, v.Members, 2)
	assert.Equal(t, "a", v.Members[0].UserID)
	assert.Equal(t, "Ben", v.Members[1].DisplayName)

	page, err := f.challenges.List(ctx, "b", "", PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	items := page.Items.([]ChallengeView)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].InviteCode)
	assert.Equal(t, models.RoleMember, items[0].MyRole)

	page, err = f.challenges.List(ctx, "a", "", PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, ch.InviteCode, page.Items.([]ChallengeView)[0].InviteCode)

	page, err = f.challenges.List(ctx, "b", models.MemberLeft, PageQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestProgressForDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	h := f.habits(t, "Run", "Read")
	ch := f.challenge(t, "a", h)
	f.join(t, "b", ch)

	_, err := f.checkins.Create(ctx, "a", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "done"})
	require.NoError(t, err)
	_, err = f.checkins.Create(ctx, "a", CheckinInput{ChallengeID: ch.ID, HabitID: h[1], Caption: "done"})
	require.NoError(t, err)
	_, err = f.checkins.Create(ctx, "b", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "done"})
	require.NoError(t, err)

	p, err := f.challenges.Progress(ctx, "b", ch.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", p.Date)
	assert.Equal(t, 2, p.TotalHabits)
	require.Len(t, p.Members, 2)
	assert.Equal(t, 100.0, p.Members[0].CompletionPct)
	assert.Equal(t, 50.0, p.Members[1].CompletionPct)
	assert.True(t, p.Members[1].IsCurrentUser)
	assert.Equal(t, 75.0, p.OverallCompletion)

	_, err = f.challenges.Progress(ctx, "b", ch.ID, "yesterday")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
