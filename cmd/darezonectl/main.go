package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/darezone/api/config"
	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

var CLI struct {
	Migrate   MigrateCmd   `cmd:"" help:"Create or update all tables."`
	Reconcile ReconcileCmd `cmd:"" help:"Compare a profile's counters with its memberships."`
	Habits    struct {
		Add  HabitAddCmd  `cmd:"" help:"Add a habit to the catalog."`
		List HabitListCmd `cmd:"" help:"List catalog habits."`
	} `cmd:"" help:"Manage the habit catalog."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("darezonectl"),
		kong.Description("DareZone administration tool"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	db := config.InitDatabase()
	reg, err := services.NewRegistry(db, cfg, services.Backends{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appCtx := &Context{DB: db, Stats: reg.Stats, Out: os.Stdout}
	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
