package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/rtm/internal/config"
	"github.com/banshee-data/rtm/internal/seismic/pipeline"
)

// runOptions is everything a migration invocation needs.
type runOptions struct {
	inputs     pipeline.Inputs
	settings   *config.RunConfig
	cpuProfile string
	verbose    bool
	trace      bool
}

// positionalArgs is the legacy positional form:
// VEL XT DIMX DIMT MUL DT INTERVAL CUTOFF.
const positionalArgs = 8

// parseRunArgs reads flags, an optional config file and the positional
// form. Precedence, lowest first: defaults, -config file, flags,
// positional arguments.
func parseRunArgs(args []string, stderr io.Writer) (*runOptions, error) {
	fs := flag.NewFlagSet("rtm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printRunUsage(stderr, fs) }

	velocity := fs.String("velocity", "", "Time-domain interval velocity file (float32 traces)")
	shot := fs.String("shot", "", "Recorded shot gather file (float32 traces)")
	dimX := fs.Int("dim-x", 0, "Number of traces")
	dimT := fs.Int("dim-t", 0, "Samples per trace")
	configPath := fs.String("config", "", "Run configuration JSON file")

	multiplier := fs.Float64("multiplier", 1.0, "Velocity multiplier")
	dt := fs.Float64("dt", 0.0005, "Sampling interval in seconds")
	dx := fs.Float64("dx", 6.25, "Trace spacing in metres")
	interval := fs.Int("interval", 100, "Emit a snapshot every N reversed-time steps")
	cutoff := fs.Int("cutoff", -1, "Only emit snapshots at or below this time index (-1: all)")
	workers := fs.Int("workers", 0, "Stencil workers (0: GOMAXPROCS)")
	kernel := fs.String("kernel", config.KernelScalar, "Stencil backend: scalar or opencl")
	progress := fs.Int("progress", 250, "Log progress every N steps (0: only at the end)")

	outDir := fs.String("out", "", "Snapshot directory (default: next to the shot file)")
	debugGrids := fs.Bool("debug-grids", false, "Also write the intermediate grids")
	png := fs.Bool("png", false, "Also write PNG heat maps")
	reportDir := fs.String("report", "", "Write wavefield trend plots and an HTML report here")
	catalog := fs.String("catalog", "", "SQLite run catalog")

	cpuProfile := fs.String("cpuprofile", "", "Write a CPU profile to this file")
	verbose := fs.Bool("v", false, "Log per-run diagnostics")
	trace := fs.Bool("trace", false, "Log per-step detail")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	settings := config.EmptyRunConfig()
	if *configPath != "" {
		loaded, err := config.LoadRunConfig(*configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	// Only flags given on the command line override the file.
	over := config.EmptyRunConfig()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "multiplier":
			over.VelocityMultiplier = multiplier
		case "dt":
			over.Dt = dt
		case "dx":
			over.Dx = dx
		case "interval":
			over.SnapshotInterval = interval
		case "cutoff":
			over.SnapshotCutoff = cutoff
		case "workers":
			over.Workers = workers
		case "kernel":
			over.Kernel = kernel
		case "progress":
			over.ProgressEvery = progress
		case "out":
			over.OutputDir = outDir
		case "debug-grids":
			over.DebugGrids = debugGrids
		case "png":
			over.RenderPNG = png
		case "report":
			over.ReportDir = reportDir
		case "catalog":
			over.CatalogPath = catalog
		}
	})
	settings.Merge(over)

	opts := &runOptions{
		inputs: pipeline.Inputs{
			VelocityPath: *velocity,
			ShotPath:     *shot,
			DimX:         *dimX,
			DimT:         *dimT,
		},
		settings:   settings,
		cpuProfile: *cpuProfile,
		verbose:    *verbose,
		trace:      *trace,
	}

	switch fs.NArg() {
	case 0:
	case positionalArgs:
		if err := applyPositional(opts, fs.Args()); err != nil {
			return nil, err
		}
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected %d positional arguments (VEL XT DIMX DIMT MUL DT INTERVAL CUTOFF), got %d",
			positionalArgs, fs.NArg())
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// applyPositional fills opts from VEL XT DIMX DIMT MUL DT INTERVAL CUTOFF.
func applyPositional(opts *runOptions, args []string) error {
	ints := make([]int, 0, 4)
	for _, i := range []int{2, 3, 6, 7} {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return fmt.Errorf("argument %d (%s): invalid integer %q", i+1, positionalNames[i], args[i])
		}
		ints = append(ints, v)
	}
	floats := make([]float64, 0, 2)
	for _, i := range []int{4, 5} {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return fmt.Errorf("argument %d (%s): invalid number %q", i+1, positionalNames[i], args[i])
		}
		floats = append(floats, v)
	}

	opts.inputs = pipeline.Inputs{
		VelocityPath: args[0],
		ShotPath:     args[1],
		DimX:         ints[0],
		DimT:         ints[1],
	}
	opts.settings.VelocityMultiplier = config.Ptr(floats[0])
	opts.settings.Dt = config.Ptr(floats[1])
	opts.settings.SnapshotInterval = config.Ptr(ints[2])
	opts.settings.SnapshotCutoff = config.Ptr(ints[3])
	return nil
}

var positionalNames = [positionalArgs]string{"VEL", "XT", "DIMX", "DIMT", "MUL", "DT", "INTERVAL", "CUTOFF"}

func printRunUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, `Usage:
  rtm [flags] -velocity VEL -shot XT -dim-x N -dim-t N
  rtm [flags] VEL XT DIMX DIMT MUL DT INTERVAL CUTOFF
  rtm version
  rtm runs [-catalog FILE] [-limit N]
  rtm migrate [-catalog FILE] up|down|status

A negative CUTOFF emits a snapshot every INTERVAL steps down to time 0.
Older builds of this tool emitted nothing for a negative CUTOFF.

Flags:`)
	fs.PrintDefaults()
}
