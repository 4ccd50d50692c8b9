package services

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/config"
	"github.com/darezone/api/utils"
)

func TestResolveCreatesProfileOnce(t *testing.T) {
	svc := NewProfileService(newTestDB(t))
	ctx := context.Background()
	id := utils.Identity{ID: "u1", Email: "ana.lee@example.com", Metadata: map[string]interface{}{"full_name": "Ana Lee"}}

	p, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lee", p.DisplayName)
	assert.Equal(t, "Ana Lee", p.FullName)
	assert.Equal(t, "b2c", p.AccountType)

	again, err := svc.Resolve(ctx, utils.Identity{ID: "u1", Email: "changed@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ana.lee@example.com", again.Email)

	p2, err := svc.Resolve(ctx, utils.Identity{ID: "u2", Email: "bo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "bo", p2.DisplayName)

	_, err = svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPointsSchedule(t *testing.T) {
	def := DefaultPointsSchedule()
	assert.Equal(t, 0, def.Award(0))
	assert.Equal(t, 10, def.Award(1))
	assert.Equal(t, 20, def.Award(2))
	assert.Equal(t, 20, def.Award(40))

	custom := NewPointsSchedule([]config.PointsRule{{MinStreak: 7, Points: 50}, {MinStreak: 1, Points: 5}})
	assert.Equal(t, 5, custom.Award(6))
	assert.Equal(t, 50, custom.Award(7))

	assert.Equal(t, 0, NewPointsSchedule(nil).Award(3))
}

func TestCalendarToday(t *testing.T) {
	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	cal, err := NewCalendar("Asia/Tokyo")
	require.NoError(t, err)
	cal.now = func() time.Time { return at }
	assert.Equal(t, "2026-03-11", cal.Today())

	utc := FixedCalendar(func() time.Time { return at })
	assert.Equal(t, "2026-03-10", utc.Today())

	_, err = NewCalendar("Mars/Olympus")
	assert.Error(t, err)
}

func TestPageQueryNormalize(t *testing.T) {
	q := PageQuery{Page: 0, Limit: 500}.Normalize(20)
	assert.Equal(t, PageQuery{Page: 1, Limit: 20}, q)
	assert.Equal(t, 40, PageQuery{Page: 3, Limit: 20}.Offset())
}
