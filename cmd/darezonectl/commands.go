package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gorm.io/gorm"

	"github.com/darezone/api/models"
	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// Context is handed to every command's Run.
type Context struct {
	DB    *gorm.DB
	Stats *services.StatsService
	Out   io.Writer
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if err := ctx.DB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	fmt.Fprintf(ctx.Out, "migrated %d tables\n", len(models.All()))
	return nil
}

type HabitAddCmd struct {
	Name        string `help:"Habit name." required:""`
	Icon        string `help:"Icon name or emoji."`
	Category    string `help:"Catalog category."`
	Description string `help:"Short description."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	name := utils.SanitizeText(c.Name)
	if name == "" || len([]rune(name)) > 100 {
		return errors.New("name must be 1-100 characters")
	}
	h := models.Habit{
		Name:        name,
		Icon:        strings.TrimSpace(c.Icon),
		Category:    strings.ToLower(strings.TrimSpace(c.Category)),
		Description: utils.SanitizeText(c.Description),
	}
	if err := ctx.DB.Create(&h).Error; err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	fmt.Fprintf(ctx.Out, "added habit %s (%s)\n", h.Name, h.ID)
	return nil
}

type HabitListCmd struct {
	Category string `help:"Only list this category."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	q := ctx.DB.Order("category ASC").Order("name ASC")
	if c.Category != "" {
		q = q.Where("category = ?", strings.ToLower(c.Category))
	}
	var habits []models.Habit
	if err := q.Find(&habits).Error; err != nil {
		return fmt.Errorf("list habits: %w", err)
	}
	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tICON")
	for _, h := range habits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.ID, h.Name, h.Category, h.Icon)
	}
	return w.Flush()
}

type ReconcileCmd struct {
	User  string `help:"Profile id to check." required:""`
	Apply bool   `help:"Rewrite the stored counters when they drift."`
}

func (c *ReconcileCmd) Run(ctx *Context) error {
	r, err := ctx.Stats.ReconcileProfile(context.Background(), c.User, c.Apply)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tSTORED\tCOMPUTED")
	fmt.Fprintf(w, "longest_streak\t%d\t%d\n", r.Stored.LongestStreak, r.Computed.LongestStreak)
	fmt.Fprintf(w, "total_check_ins\t%d\t%d\n", r.Stored.TotalCheckIns, r.Computed.TotalCheckIns)
	fmt.Fprintf(w, "total_challenges_completed\t%d\t%d\n", r.Stored.TotalChallengesCompleted, r.Computed.TotalChallengesCompleted)
	fmt.Fprintf(w, "points\t%d\t%d\n", r.Stored.Points, r.Computed.Points)
	if err := w.Flush(); err != nil {
		return err
	}
	switch {
	case !r.Drift:
		fmt.Fprintln(ctx.Out, "no drift")
	case r.Applied:
		fmt.Fprintln(ctx.Out, "drift found, profile updated")
	default:
		fmt.Fprintf(ctx.Out, "drift found (ledger points %d), rerun with --apply to fix\n", r.LedgerPoints)
	}
	return nil
}
