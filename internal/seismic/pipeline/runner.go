package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rtm/internal/config"
	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/monitoring"
	"github.com/banshee-data/rtm/internal/seismic"
	"github.com/banshee-data/rtm/internal/seismic/l1traces"
	"github.com/banshee-data/rtm/internal/seismic/l2depth"
	"github.com/banshee-data/rtm/internal/seismic/l3wave"
	"github.com/banshee-data/rtm/internal/seismic/l4render"
	"github.com/banshee-data/rtm/internal/seismic/monitor"
	"github.com/banshee-data/rtm/internal/seismic/storage/sqlite"
	"github.com/banshee-data/rtm/internal/timeutil"
	"github.com/banshee-data/rtm/internal/version"
)

// Debug dump name for the mapped velocity model.
const GridVelocityPlane = "v_plane"

// RunCatalog records run metadata. *sqlite.Catalog implements it.
type RunCatalog interface {
	BeginRun(r *sqlite.Run) error
	SetGeometry(runID string, dimZ int, dz float64) error
	RecordSnapshot(rec *sqlite.SnapshotRecord) error
	FinishRun(runID, status, errMsg string, steps, snapshots int) error
}

// Inputs names the two trace files of a run and their shared dimensions.
type Inputs struct {
	VelocityPath string // interval velocity, time domain
	ShotPath     string // recorded shot gather
	DimX         int    // traces
	DimT         int    // samples per trace
}

func (in Inputs) validate() error {
	if in.VelocityPath == "" {
		return &seismic.ConfigurationError{Field: "velocity_path", Value: `""`, Reason: "required"}
	}
	if in.ShotPath == "" {
		return &seismic.ConfigurationError{Field: "shot_path", Value: `""`, Reason: "required"}
	}
	if in.DimX < 1 {
		return &seismic.ConfigurationError{Field: "dim_x", Value: in.DimX, Reason: "must be positive"}
	}
	if in.DimT < 1 {
		return &seismic.ConfigurationError{Field: "dim_t", Value: in.DimT, Reason: "must be positive"}
	}
	return nil
}

// Config holds the runner's collaborators. Only Settings is read per run;
// everything else is optional.
type Config struct {
	FS       fsutil.FileSystem // nil: OS filesystem
	Clock    timeutil.Clock    // nil: wall clock
	Settings *config.RunConfig // nil: all defaults
	Catalog  RunCatalog        // nil: no run catalog
	Recorder *monitor.Recorder // nil: one is created when report_dir is set

	// OnSnapshot, when set, sees every snapshot after its files are
	// written. The grid belongs to the callee.
	OnSnapshot func(rtime int, g *seismic.Grid)
}

// Result describes a finished (or failed) run.
type Result struct {
	RunID       string
	DimZ        int
	Dz          float64
	MaxVelocity float64
	MaxTravel   float64
	Courant     float64
	Steps       int
	Emitted     int      // snapshots emitted
	Snapshots   []string // snapshot image paths in emission order
	Debug       []string // debug dump paths
	Summary     monitor.Summary
	Plots       int
	ReportPath  string
	Phases      []timeutil.Phase
	Elapsed     time.Duration
}

// Runner executes migrations: load, map to depth, step, write.
type Runner struct {
	cfg Config
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Settings == nil {
		cfg.Settings = config.EmptyRunConfig()
	}
	return &Runner{cfg: cfg}
}

// run is the state of one Run call.
type run struct {
	in       Inputs
	settings *config.RunConfig
	params   l3wave.Params
	sink     *l4render.Sink
	recorder *monitor.Recorder
	res      *Result
}

// Run migrates one shot. Configuration problems are reported before any
// file is read. The returned Result is non-nil whenever the run started,
// including on failure, and carries whatever was produced.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Result, error) {
	s := r.cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	st := &run{
		in:       in,
		settings: s,
		params: l3wave.Params{
			DimT:     in.DimT,
			Dx:       s.GetDx(),
			Dt:       s.GetDt(),
			Interval: s.GetSnapshotInterval(),
			Cutoff:   s.GetSnapshotCutoff(in.DimT),
			Workers:  s.GetWorkers(),
			Kernel:   s.GetKernel(),
		},
		sink: l4render.NewSink(r.cfg.FS, s.GetOutputDir(in.ShotPath), s.GetRenderPNG()),
		res:  &Result{},
	}

	st.recorder = r.cfg.Recorder
	reportDir := s.GetReportDir()
	if st.recorder == nil && reportDir != "" {
		st.recorder = monitor.NewRecorder()
	}
	if st.recorder != nil {
		if err := st.recorder.Start(reportDir); err != nil {
			return nil, fmt.Errorf("start recorder: %w", err)
		}
		defer st.recorder.Stop()
	}

	monitoring.Logf("%s", version.Banner("rtm"))
	monitoring.Logf("usage: rtm VEL XT DIMX DIMT MUL DT INTERVAL CUTOFF")
	r.beginRun(st)

	sw := timeutil.NewStopwatch(r.cfg.Clock)
	err := r.execute(ctx, st, sw)
	st.res.Phases = sw.Stop()
	st.res.Elapsed = sw.Total()

	if st.recorder != nil {
		st.res.Summary = st.recorder.Summary()
		if reportDir != "" {
			r.writeReport(st, reportDir)
		}
	}
	r.finishRun(st, err)

	for _, ph := range st.res.Phases {
		diagf("phase %-8s %s", ph.Name, ph.Duration.Round(time.Millisecond))
	}
	if err != nil {
		opsf("run failed after %d steps: %v", st.res.Steps, err)
		return st.res, err
	}
	monitoring.Logf("migrated %s: %d steps, %d snapshot files in %s",
		in.ShotPath, st.res.Steps, len(st.res.Snapshots), st.res.Elapsed.Round(time.Millisecond))
	return st.res, nil
}

func (r *Runner) execute(ctx context.Context, st *run, sw *timeutil.Stopwatch) error {
	in, s := st.in, st.settings
	loader := l1traces.NewLoader(r.cfg.FS)

	sw.Start("load")
	vel, vstats, err := loader.Load(in.VelocityPath, in.DimX, in.DimT)
	if err != nil {
		return err
	}
	monitoring.Logf("maximum interval velocity in model: %g (|max| %g)", vstats.Max, vstats.MaxAbs)
	shot, _, err := loader.Load(in.ShotPath, in.DimX, in.DimT)
	if err != nil {
		return err
	}

	debug := s.GetDebugGrids()
	var inspectErr error
	dump := func(name string, g *seismic.Grid) {
		if inspectErr != nil {
			return
		}
		paths, err := st.sink.WriteDebug(name, g)
		st.res.Debug = append(st.res.Debug, paths...)
		if err != nil {
			inspectErr = fmt.Errorf("debug dump %s: %w", name, err)
		}
	}
	if debug {
		dump("vel_"+filepath.Base(in.VelocityPath), vel)
		dump("shot_"+filepath.Base(in.ShotPath), shot)
	}

	sw.Start("map")
	mapper := &l2depth.Mapper{}
	if debug {
		mapper.Inspect = dump
	}
	depth, err := mapper.MapToDepth(vel, s.GetVelocityMultiplier(), s.GetDt())
	if err != nil {
		return err
	}
	if debug {
		dump(GridVelocityPlane, depth.Velocity)
	}
	if inspectErr != nil {
		return inspectErr
	}
	st.res.DimZ = depth.Rows
	st.res.Dz = depth.DepthStep
	st.res.MaxVelocity = depth.MaxVelocity
	st.res.MaxTravel = depth.MaxTravel
	st.params.Dz = depth.DepthStep
	r.setGeometry(st)

	r.logDerived(st)

	if err := depth.Velocity.SquareInPlace(); err != nil {
		return err
	}

	sw.Start("step")
	progress := monitoring.NewProgress("rtm", in.DimT, s.GetProgressEvery(), r.cfg.Clock)
	stepper := &l3wave.Stepper{
		Observe: func(rtime int, next *seismic.Grid) {
			st.res.Steps++
			progress.Tick()
			if st.recorder != nil {
				st.recorder.Sample(rtime, next.SubRows(in.DimT))
			}
		},
	}
	err = stepper.Run(ctx, depth.Velocity, shot, st.params, func(snap l3wave.Snapshot) error {
		return r.emit(st, snap)
	})
	progress.Done()
	return err
}

// emit writes one snapshot and books it.
func (r *Runner) emit(st *run, snap l3wave.Snapshot) error {
	paths, err := st.sink.WriteSnapshot(st.in.ShotPath, snap.RTime, snap.Grid)
	st.res.Snapshots = append(st.res.Snapshots, paths...)
	if err != nil {
		return fmt.Errorf("snapshot rtime %d: %w", snap.RTime, err)
	}
	st.res.Emitted++
	if st.recorder != nil {
		st.recorder.MarkSnapshot(snap.RTime)
	}
	if r.cfg.Catalog != nil && st.res.RunID != "" {
		maxAbs := snap.Grid.MaxAbs()
		for _, p := range paths {
			rec := &sqlite.SnapshotRecord{RunID: st.res.RunID, RTime: snap.RTime, Path: p, MaxAbs: maxAbs}
			if err := r.cfg.Catalog.RecordSnapshot(rec); err != nil {
				opsf("catalog: record snapshot %s: %v", p, err)
			}
		}
	}
	if r.cfg.OnSnapshot != nil {
		r.cfg.OnSnapshot(snap.RTime, snap.Grid)
	}
	tracef("snapshot rtime=%d -> %v", snap.RTime, paths)
	return nil
}

// logDerived reports the quantities the stencil is built from.
func (r *Runner) logDerived(st *run) {
	p, res := st.params, st.res
	dtdx := p.Dt / p.Dx
	dtdz := p.Dt / p.Dz
	monitoring.Logf("dt=%g dx=%g dz=%g dim_x=%d dim_t=%d dim_z=%d",
		p.Dt, p.Dx, p.Dz, st.in.DimX, p.DimT, res.DimZ)
	monitoring.Logf("dtdx=%g dtdz=%g dtdx²=%g dtdz²=%g", dtdx, dtdz, dtdx*dtdx, dtdz*dtdz)
	monitoring.Logf("max travel distance %g m (dz × dim_z = %g m)", res.MaxTravel, p.Dz*float64(res.DimZ))

	cells := uint64(st.in.DimX) * uint64(res.DimZ)
	diagf("wavefield %s cells, %s per buffer, %d workers, %s kernel",
		humanize.Comma(int64(cells)), humanize.Bytes(cells*8), p.Workers, p.Kernel)
	diagf("%d snapshots scheduled (interval %d, cutoff %d)",
		l3wave.SnapshotCount(p.DimT, p.Interval, p.Cutoff), p.Interval, p.Cutoff)

	res.Courant = l3wave.CourantNumber(res.MaxVelocity, p.Dt, p.Dx, p.Dz)
	if res.Courant > 1 {
		opsf("courant number %.4g exceeds 1 (vmax=%g dt=%g dx=%g dz=%g); watch for instability",
			res.Courant, res.MaxVelocity, p.Dt, p.Dx, p.Dz)
	} else if !math.IsNaN(res.Courant) {
		diagf("courant number %.4g", res.Courant)
	}
}

func (r *Runner) beginRun(st *run) {
	if r.cfg.Catalog == nil {
		return
	}
	params, err := json.Marshal(st.settings)
	if err != nil {
		opsf("catalog: encode settings: %v", err)
	}
	rec := &sqlite.Run{
		VelocityPath:       st.in.VelocityPath,
		ShotPath:           st.in.ShotPath,
		DimX:               st.in.DimX,
		DimT:               st.in.DimT,
		VelocityMultiplier: st.settings.GetVelocityMultiplier(),
		Dt:                 st.params.Dt,
		Dx:                 st.params.Dx,
		SnapshotInterval:   st.params.Interval,
		SnapshotCutoff:     st.params.Cutoff,
		Kernel:             st.params.Kernel,
		Workers:            st.params.Workers,
		Version:            version.Version,
		ParamsJSON:         string(params),
		StartedAt:          r.cfg.Clock.Now().UnixNano(),
	}
	if err := r.cfg.Catalog.BeginRun(rec); err != nil {
		opsf("catalog: begin run: %v", err)
		return
	}
	st.res.RunID = rec.RunID
	diagf("catalog run %s", rec.RunID)
}

func (r *Runner) setGeometry(st *run) {
	if r.cfg.Catalog == nil || st.res.RunID == "" {
		return
	}
	if err := r.cfg.Catalog.SetGeometry(st.res.RunID, st.res.DimZ, st.res.Dz); err != nil {
		opsf("catalog: set geometry: %v", err)
	}
}

func (r *Runner) finishRun(st *run, runErr error) {
	if r.cfg.Catalog == nil || st.res.RunID == "" {
		return
	}
	status, msg := RunStatus(runErr), ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := r.cfg.Catalog.FinishRun(st.res.RunID, status, msg, st.res.Steps, st.res.Emitted); err != nil {
		opsf("catalog: finish run: %v", err)
	}
}

func (r *Runner) writeReport(st *run, dir string) {
	n, err := st.recorder.GeneratePlots()
	if err != nil {
		opsf("plots: %v", err)
	}
	st.res.Plots = n
	path, err := st.recorder.SaveReport(filepath.Base(st.in.ShotPath))
	if err != nil {
		opsf("report: %v", err)
		return
	}
	st.res.ReportPath = path
	monitoring.Logf("report written to %s", path)
}

// RunStatus maps a run error to its catalog status.
func RunStatus(err error) string {
	switch {
	case err == nil:
		return sqlite.StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return sqlite.StatusCancelled
	default:
		return sqlite.StatusFailed
	}
}
