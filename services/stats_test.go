package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/models"
)

type memCache struct {
	mu    sync.Mutex
	items map[string][]LeaderboardEntry
	gets  int
}

func (c *memCache) GetJSON(_ context.Context, key string, out interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.items[key]
	if ok {
		*(out.(*[]LeaderboardEntry)) = append([]LeaderboardEntry(nil), v...)
	}
	return ok
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append([]LeaderboardEntry(nil), v.([]LeaderboardEntry)...)
}

func (c *memCache) InvalidatePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.items, k)
		}
	}
}

func TestCompletionRateHelpers(t *testing.T) {
	assert.Equal(t, 10, elapsedDays("2026-03-01", "2026-03-31", "2026-03-10"))
	assert.Equal(t, 31, elapsedDays("2026-03-01", "2026-03-31", "2026-05-01"))
	assert.Equal(t, 0, elapsedDays("2026-04-01", "2026-04-30", "2026-03-10"))

	assert.Equal(t, 50.0, completionRate(10, 2, 10))
	assert.Equal(t, 100.0, completionRate(50, 1, 10))
	assert.Equal(t, 0.0, completionRate(5, 0, 10))
	assert.Equal(t, 33.33, completionRate(1, 3, 1))
}

func TestLeaderboardRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		f.user(t, id, "user-"+id)
	}
	h := f.habits(t, "Run")
	ch := f.challenge(t, "a", h)
	f.join(t, "b", ch)
	f.join(t, "c", ch)

	f.clock.advance(-1)
	_, err := f.checkins.Create(ctx, "c", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)
	f.clock.advance(1)
	_, err = f.checkins.Create(ctx, "c", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)
	_, err = f.checkins.Create(ctx, "b", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)

	lb, err := f.stats.Leaderboard(ctx, "b", ch.ID, "")
	require.NoError(t, err)
	assert.Equal(t, SortByPoints, lb.SortBy)
	require.Len(t, lb.Entries, 3)
	assert.Equal(t, "c", lb.Entries[0].UserID)
	assert.Equal(t, 30, lb.Entries[0].Points)
	assert.Equal(t, "b", lb.Entries[1].UserID)
	assert.Equal(t, "a", lb.Entries[2].UserID)
	assert.Equal(t, 2, lb.MyRank)
	assert.True(t, lb.Entries[1].IsCurrentUser)
	assert.Equal(t, 20.0, lb.Entries[0].CompletionRate)

	_, err = f.stats.Leaderboard(ctx, "b", ch.ID, "speed")
	assert.Equal(t, KindBadRequest, KindOf(err))

	require.NoError(t, f.challenges.Leave(ctx, "b", ch.ID))
	lb, err = f.stats.Leaderboard(ctx, "a", ch.ID, SortByStreak)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "c", lb.Entries[0].UserID)
	assert.Equal(t, 2, lb.Entries[0].CurrentStreak)
}

func TestLeaderboardTiesBreakOnJoinOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		f.user(t, id, id)
	}
	ch := f.challenge(t, "a", f.habits(t, "Run"))
	f.join(t, "c", ch)
	f.join(t, "b", ch)

	lb, err := f.stats.Leaderboard(ctx, "a", ch.ID, SortByCompletionRate)
	require.NoError(t, err)
	ids := []string{lb.Entries[0].UserID, lb.Entries[1].UserID, lb.Entries[2].UserID}
	assert.Equal(t, []string{"a", "c", "b"}, ids)
	assert.Equal(t, []int{1, 2, 3}, []int{lb.Entries[0].Rank, lb.Entries[1].Rank, lb.Entries[2].Rank})
}

func TestLeaderboardCacheInvalidatedByCheckin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	h := f.habits(t, "Run")
	ch := f.challenge(t, "a", h)

	cache := &memCache{items: map[string][]LeaderboardEntry{}}
	cal := FixedCalendar(f.clock.Now)
	stats := NewStatsService(f.db, f.guard, cal, cache)
	checkins := NewCheckinService(f.db, f.guard, f.notifier, cal, cache, DefaultPointsSchedule(), nil)

	lb, err := stats.Leaderboard(ctx, "a", ch.ID, SortByPoints)
	require.NoError(t, err)
	assert.Equal(t, 0, lb.Entries[0].Points)
	assert.Len(t, cache.items, 1)

	lb, err = stats.Leaderboard(ctx, "a", ch.ID, SortByPoints)
	require.NoError(t, err)
	assert.True(t, lb.Entries[0].IsCurrentUser)

	_, err = checkins.Create(ctx, "a", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)
	assert.Empty(t, cache.items)

	lb, err = stats.Leaderboard(ctx, "a", ch.ID, SortByPoints)
	require.NoError(t, err)
	assert.Equal(t, 10, lb.Entries[0].Points)
}

func TestChallengeStatsAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	h := f.habits(t, "Run", "Read")
	ch := f.challenge(t, "a", h)
	f.join(t, "b", ch)
	_, err := f.checkins.Create(ctx, "a", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)
	_, err = f.checkins.Create(ctx, "b", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)

	st, err := f.stats.ChallengeStats(ctx, "a", ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.ActiveMembers)
	assert.Equal(t, 2, st.TotalCheckins)
	assert.Equal(t, 10.0, st.AveragePoints)
	assert.Equal(t, 31, st.Challenge.DaysTotal)
	assert.Equal(t, 10, st.Challenge.DaysElapsed)
	require.Len(t, st.Habits, 2)
	assert.Equal(t, 2, st.Habits[0].TodayCheckins)
	assert.Equal(t, 0, st.Habits[1].TotalCheckins)
	assert.Len(t, st.TopPerformers, 2)

	d, err := f.stats.Dashboard(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Stats.Points)
	require.Len(t, d.ActiveChallenges, 1)
	card := d.ActiveChallenges[0]
	assert.Equal(t, 2, card.MyRank)
	assert.Equal(t, 1, card.CheckedToday)
	assert.Equal(t, 2, card.TotalHabits)
	assert.Equal(t, 21, card.DaysLeft)
	assert.Empty(t, d.RecentCompleted)

	completed := models.ChallengeCompleted
	_, err = f.challenges.Update(ctx, "a", ch.ID, UpdateChallengeInput{Status: &completed})
	require.NoError(t, err)
	d, err = f.stats.Dashboard(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, d.ActiveChallenges)
	require.Len(t, d.RecentCompleted, 1)
	assert.Equal(t, 1, d.Stats.TotalChallengesCompleted)
}

func TestHistoryFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	f.user(t, "b", "Ben")
	h := f.habits(t, "Run")
	running := f.challenge(t, "a", h)
	f.join(t, "b", running)

	left, err := f.challenges.Create(ctx, "a", CreateChallengeInput{Name: "Yoga month", StartDate: "2026-02-01", EndDate: "2026-02-28", HabitIDs: h})
	require.NoError(t, err)
	_, err = f.challenges.Join(ctx, "b", left.InviteCode)
	require.NoError(t, err)
	require.NoError(t, f.challenges.Leave(ctx, "b", left.ID))

	page, err := f.stats.History(ctx, "b", HistoryFilter{}, PageQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	items := page.Items.([]HistoryItem)
	assert.Equal(t, running.ID, items[0].ChallengeID)

	page, err = f.stats.History(ctx, "b", HistoryFilter{Status: "left"}, PageQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, models.MemberLeft, page.Items.([]HistoryItem)[0].MemberStatus)

	page, err = f.stats.History(ctx, "b", HistoryFilter{Status: "active"}, PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.stats.History(ctx, "b", HistoryFilter{Search: "YOGA"}, PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = f.stats.History(ctx, "b", HistoryFilter{Status: "archived"}, PageQuery{})
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestReconcileProfileDetectsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Ana")
	h := f.habits(t, "Run")
	ch := f.challenge(t, "a", h)
	_, err := f.checkins.Create(ctx, "a", CheckinInput{ChallengeID: ch.ID, HabitID: h[0], Caption: "x"})
	require.NoError(t, err)

	r, err := f.stats.ReconcileProfile(ctx, "a", false)
	require.NoError(t, err)
	assert.False(t, r.Drift)

	require.NoError(t, f.db.Model(&models.UserProfile{}).Where("id = ?", "a").Update("points", 999).Error)
	r, err = f.stats.ReconcileProfile(ctx, "a", true)
	require.NoError(t, err)
	assert.True(t, r.Drift)
	assert.True(t, r.Applied)
	assert.Equal(t, 999, r.Stored.Points)
	assert.Equal(t, 10, r.Computed.Points)
	assert.Equal(t, 10, r.LedgerPoints)

	var p models.UserProfile
	require.NoError(t, f.db.First(&p, "id = ?", "a").Error)
	assert.Equal(t, 10, p.Points)

	_, err = f.stats.ReconcileProfile(ctx, "ghost", false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
