package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rtm/internal/seismic/storage/sqlite"
)

const defaultCatalog = "rtm.db"

// listRuns prints the newest catalog runs.
func listRuns(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("catalog", defaultCatalog, "SQLite run catalog")
	limit := fs.Int("limit", 20, "Maximum runs to list (0: all)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cat, err := sqlite.OpenCatalog(*path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	runs, err := cat.Runs.List(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return nil
	}
	fmt.Fprintf(stdout, "%-36s  %-9s  %-9s  %6s  %5s  %-10s  %s\n",
		"RUN", "STATUS", "DIMS", "STEPS", "SNAPS", "DURATION", "SHOT")
	for _, r := range runs {
		started := time.Unix(0, r.StartedAt)
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(stdout, "%-36s  %-9s  %-9s  %6d  %5d  %-10s  %s (%s)\n",
			r.RunID, r.Status, fmt.Sprintf("%dx%d", r.DimX, r.DimT),
			r.Steps, r.SnapshotCount, duration, r.ShotPath, humanize.Time(started))
		if r.Error != "" {
			fmt.Fprintf(stdout, "    error: %s\n", r.Error)
		}
	}
	return nil
}

// migrateCatalog applies or inspects catalog schema migrations.
func migrateCatalog(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("catalog", defaultCatalog, "SQLite run catalog")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: rtm migrate [-catalog FILE] up|down|status")
	}

	// Open already migrates to the latest version.
	db, err := sqlite.Open(*path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer db.Close()

	switch action := fs.Arg(0); action {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
