package monitor

import (
	"fmt"
	"math"
	"os"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rtm/internal/seismic"
)

// StepStat summarises the wavefield after one reversed-time step.
type StepStat struct {
	RTime    int
	MaxAbs   float64
	RMS      float64
	Energy   float64 // sum of squared amplitudes
	Snapshot bool    // a snapshot was emitted at this step
}

// Summary aggregates a whole run.
type Summary struct {
	Steps      int
	Snapshots  int
	PeakMaxAbs float64
	PeakRTime  int
	MeanRMS    float64
	StdDevRMS  float64
}

// Recorder accumulates StepStats. It is safe for concurrent use; a
// disabled recorder ignores samples.
type Recorder struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	stats     []StepStat
}

// NewRecorder returns a disabled recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start enables sampling and clears earlier samples. outputDir receives
// plots and the report and is created if needed; empty keeps everything
// in memory.
func (r *Recorder) Start(outputDir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	r.outputDir = outputDir
	r.enabled = true
	r.stats = r.stats[:0]
	return nil
}

// Stop disables sampling. Plots and reports can still be generated.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
}

// IsEnabled reports whether the recorder is sampling.
func (r *Recorder) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// OutputDir is the directory passed to Start.
func (r *Recorder) OutputDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputDir
}

// Sample records the wavefield for rtime.
func (r *Recorder) Sample(rtime int, g *seismic.Grid) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}

	s := StepStat{RTime: rtime}
	if n := len(g.Data); n > 0 {
		s.MaxAbs = g.MaxAbs()
		s.Energy = floats.Dot(g.Data, g.Data)
		s.RMS = math.Sqrt(s.Energy / float64(n))
	}
	r.stats = append(r.stats, s)
}

// MarkSnapshot flags the most recent sample for rtime as snapshotted.
func (r *Recorder) MarkSnapshot(rtime int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.stats) - 1; i >= 0; i-- {
		if r.stats[i].RTime == rtime {
			r.stats[i].Snapshot = true
			return
		}
	}
}

// Stats returns a copy of the samples in recording order.
func (r *Recorder) Stats() []StepStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepStat(nil), r.stats...)
}

// Summary aggregates the samples recorded so far.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := Summary{Steps: len(r.stats), PeakRTime: -1}
	if len(r.stats) == 0 {
		return sum
	}
	rms := make([]float64, len(r.stats))
	for i, s := range r.stats {
		rms[i] = s.RMS
		if s.Snapshot {
			sum.Snapshots++
		}
		if s.MaxAbs > sum.PeakMaxAbs || sum.PeakRTime < 0 {
			sum.PeakMaxAbs = s.MaxAbs
			sum.PeakRTime = s.RTime
		}
	}
	if len(rms) > 1 {
		sum.MeanRMS, sum.StdDevRMS = stat.MeanStdDev(rms, nil)
	} else {
		sum.MeanRMS = rms[0]
	}
	return sum
}
