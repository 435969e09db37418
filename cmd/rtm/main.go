// Command rtm runs a 2-D reverse-time migration of one shot gather and
// writes wavefield snapshots as PGM images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/banshee-data/rtm/internal/monitoring"
	"github.com/banshee-data/rtm/internal/seismic"
	"github.com/banshee-data/rtm/internal/seismic/l1traces"
	"github.com/banshee-data/rtm/internal/seismic/l2depth"
	"github.com/banshee-data/rtm/internal/seismic/l3wave"
	"github.com/banshee-data/rtm/internal/seismic/pipeline"
	"github.com/banshee-data/rtm/internal/seismic/storage/sqlite"
	"github.com/banshee-data/rtm/internal/version"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitInput         = 2
	exitConfiguration = 3
	exitInstability   = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Fprintln(stdout, version.Banner("rtm"))
			return exitOK
		case "runs":
			return reportErr(stderr, listRuns(args[1:], stdout, stderr))
		case "migrate":
			return reportErr(stderr, migrateCatalog(args[1:], stdout, stderr))
		case "help":
			printRunUsage(stdout, flag.NewFlagSet("rtm", flag.ContinueOnError))
			return exitOK
		}
	}

	opts, err := parseRunArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return reportErr(stderr, err)
	}
	return reportErr(stderr, migrate(ctx, opts, stdout, stderr))
}

// migrate runs one migration with the parsed options.
func migrate(ctx context.Context, opts *runOptions, stdout, stderr io.Writer) error {
	configureLogging(stdout, stderr, opts.verbose, opts.trace)

	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := pipeline.Config{Settings: opts.settings}
	if path := opts.settings.GetCatalogPath(); path != "" {
		cat, err := sqlite.OpenCatalog(path)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer cat.Close()
		cfg.Catalog = cat
	}

	res, err := pipeline.NewRunner(cfg).Run(ctx, opts.inputs)
	if err != nil {
		return err
	}
	if res.RunID != "" {
		fmt.Fprintf(stdout, "run %s: %d snapshots, %d files\n", res.RunID, res.Emitted, len(res.Snapshots))
	}
	return nil
}

// configureLogging routes run output to stdout and the layer streams to
// stderr. Ops warnings are always on; diag and trace follow the flags.
func configureLogging(stdout, stderr io.Writer, verbose, trace bool) {
	monitoring.SetLogWriter(stdout, "")

	var diag, tr io.Writer
	if verbose || trace {
		diag = stderr
	}
	if trace {
		tr = stderr
	}
	l1traces.SetLogWriters(diag)
	l2depth.SetLogWriters(stderr, diag)
	l3wave.SetLogWriters(stderr, diag, tr)
	pipeline.SetLogWriters(stderr, diag, tr)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var (
		inputErr    *seismic.InputError
		configErr   *seismic.ConfigurationError
		unstableErr *seismic.NumericalInstabilityError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &inputErr):
		return exitInput
	case errors.As(err, &configErr):
		return exitConfiguration
	case errors.As(err, &unstableErr):
		return exitInstability
	default:
		return exitFailure
	}
}

func reportErr(stderr io.Writer, err error) int {
	if err != nil {
		fmt.Fprintf(stderr, "rtm: %v\n", err)
	}
	return exitCode(err)
}
