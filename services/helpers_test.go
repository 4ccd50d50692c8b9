package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/darezone/api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(day string) *clock {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		panic(err)
	}
	return &clock{now: t.Add(9 * time.Hour)}
}

// Now ticks one second per call so rows created in sequence get distinct timestamps.
func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *clock) advance(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []NotificationInput
}

func (r *recordingNotifier) Notify(_ context.Context, in NotificationInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, in)
}

func (r *recordingNotifier) byType(t models.NotificationType) []NotificationInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NotificationInput
	for _, n := range r.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// fixture wires every service over one database.
type fixture struct {
	db         *gorm.DB
	clock      *clock
	notifier   *recordingNotifier
	guard      *MembershipGuard
	challenges *ChallengeService
	checkins   *CheckinService
	hitches    *HitchService
	stats      *StatsService
	friends    *FriendService
	users      *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clk := newClock("2026-03-10")
	cal := FixedCalendar(clk.Now)
	n := &recordingNotifier{}
	guard := NewMembershipGuard(db)
	stats := NewStatsService(db, guard, cal, nil)
	friends := NewFriendService(db, n)
	return &fixture{
		db:         db,
		clock:      clk,
		notifier:   n,
		guard:      guard,
		challenges: NewChallengeService(db, guard, n, cal, nil, ChallengeConfig{MaxHabits: 4, DefaultHitchCount: 2}),
		checkins:   NewCheckinService(db, guard, n, cal, nil, DefaultPointsSchedule(), []int{3, 7}),
		hitches:    NewHitchService(db, n, cal),
		stats:      stats,
		friends:    friends,
		users:      NewUserService(db, stats, friends),
	}
}

func (f *fixture) user(t *testing.T, id, name string) *models.UserProfile {
	t.Helper()
	p := &models.UserProfile{ID: id, Email: id + "@example.com", DisplayName: name}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) habits(t *testing.T, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, n := range names {
		h := &models.Habit{Name: n, Icon: "*", Category: "health"}
		require.NoError(t, f.db.Create(h).Error)
		ids = append(ids, h.ID)
	}
	return ids
}

// challenge creates an active challenge owned by creator with the given habits.
func (f *fixture) challenge(t *testing.T, creator string, habitIDs []string) *ChallengeView {
	t.Helper()
	v, err := f.challenges.Create(context.Background(), creator, CreateChallengeInput{
		Name:      "Morning routine",
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
		HabitIDs:  habitIDs,
	})
	require.NoError(t, err)
	active := models.ChallengeActive
	v, err = f.challenges.Update(context.Background(), creator, v.ID, UpdateChallengeInput{Status: &active})
	require.NoError(t, err)
	return v
}

func (f *fixture) join(t *testing.T, userID string, ch *ChallengeView) {
	t.Helper()
	_, err := f.challenges.Join(context.Background(), userID, ch.InviteCode)
	require.NoError(t, err)
}
