package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/darezone/api/config"
	"github.com/darezone/api/models"
	"github.com/darezone/api/services"
)

func newTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "cli.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	reg, err := services.NewRegistry(db, config.Defaults(), services.Backends{})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return &Context{DB: db, Stats: reg.Stats, Out: out}, out
}

func run(t *testing.T, appCtx *Context, args ...string) error {
	t.Helper()
	var cli struct {
		Migrate   MigrateCmd   `cmd:""`
		Reconcile ReconcileCmd `cmd:""`
		Habits    struct {
			Add  HabitAddCmd  `cmd:""`
			List HabitListCmd `cmd:""`
		} `cmd:""`
	}
	parser, err := kong.New(&cli, kong.Name("darezonectl"), kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(appCtx)
}

func TestMigrateAndHabits(t *testing.T) {
	appCtx, out := newTestContext(t)

	require.NoError(t, run(t, appCtx, "migrate"))
	assert.Contains(t, out.String(), "migrated")

	require.NoError(t, run(t, appCtx, "habits", "add", "--name", "  Morning Run ", "--category", "Fitness", "--icon", "run"))
	require.NoError(t, run(t, appCtx, "habits", "add", "--name", "Read", "--category", "mind"))

	var habits []models.Habit
	require.NoError(t, appCtx.DB.Order("name").Find(&habits).Error)
	require.Len(t, habits, 2)
	assert.Equal(t, "Morning Run", habits[0].Name)
	assert.Equal(t, "fitness", habits[0].Category)

	out.Reset()
	require.NoError(t, run(t, appCtx, "habits", "list", "--category", "fitness"))
	assert.Contains(t, out.String(), "Morning Run")
	assert.NotContains(t, out.String(), "Read")
}

func TestHabitAddRequiresName(t *testing.T) {
	appCtx, _ := newTestContext(t)
	require.NoError(t, run(t, appCtx, "migrate"))

	assert.Error(t, run(t, appCtx, "habits", "add"))
	assert.Error(t, run(t, appCtx, "habits", "add", "--name", "   "))
}

func TestReconcileReportsAndFixesDrift(t *testing.T) {
	appCtx, out := newTestContext(t)
	require.NoError(t, run(t, appCtx, "migrate"))

	profile := models.UserProfile{ID: "11111111-1111-1111-1111-111111111111", DisplayName: "ana", Points: 99, TotalCheckIns: 7}
	require.NoError(t, appCtx.DB.Create(&profile).Error)

	out.Reset()
	require.NoError(t, run(t, appCtx, "reconcile", "--user", profile.ID))
	assert.Contains(t, out.String(), "rerun with --apply")

	out.Reset()
	require.NoError(t, run(t, appCtx, "reconcile", "--user", profile.ID, "--apply"))
	assert.Contains(t, out.String(), "profile updated")

	var reloaded models.UserProfile
	require.NoError(t, appCtx.DB.First(&reloaded, "id = ?", profile.ID).Error)
	assert.Equal(t, 0, reloaded.Points)
	assert.Equal(t, 0, reloaded.TotalCheckIns)

	out.Reset()
	require.NoError(t, run(t, appCtx, "reconcile", "--user", profile.ID))
	assert.Contains(t, out.String(), "no drift")
}

func TestReconcileUnknownUser(t *testing.T) {
	appCtx, _ := newTestContext(t)
	require.NoError(t, run(t, appCtx, "migrate"))

	err := run(t, appCtx, "reconcile", "--user", "missing")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}
