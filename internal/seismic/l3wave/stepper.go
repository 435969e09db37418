package l3wave

import (
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rtm/internal/seismic"
)

// Params fixes the geometry and snapshot schedule of one run.
type Params struct {
	DimT     int     // time samples; also the injection row
	Dx       float64 // lateral spacing
	Dz       float64 // depth spacing
	Dt       float64 // sampling interval
	Interval int     // emit when rtime % Interval == 0
	Cutoff   int     // and rtime <= Cutoff
	Workers  int     // scalar kernel row bands
	Kernel   string  // backend name, empty for scalar
}

// Snapshot is the wavefield below the padding at one reversed-time index.
// Grid is a copy owned by the receiver.
type Snapshot struct {
	RTime int
	Grid  *seismic.Grid
}

// Stepper propagates a shot record backwards through a depth model.
type Stepper struct {
	// Observe, when set, sees the full next buffer after every successful
	// step. The grid is only valid for the duration of the call.
	Observe func(rtime int, next *seismic.Grid)
}

func (p Params) validate(v2, shot *seismic.Grid) error {
	if v2 == nil || shot == nil {
		return &seismic.ConfigurationError{Field: "grid", Value: "nil", Reason: "velocity and shot grids are required"}
	}
	if !v2.Squared() {
		return &seismic.ConfigurationError{Field: "velocity", Value: "unsquared", Reason: "the stepper needs v² (call SquareInPlace first)"}
	}
	if p.DimT < 1 {
		return &seismic.ConfigurationError{Field: "dim_t", Value: p.DimT, Reason: "must be positive"}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"dx", p.Dx}, {"dz", p.Dz}, {"dt", p.Dt}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return &seismic.ConfigurationError{Field: f.name, Value: f.v, Reason: "must be positive and finite"}
		}
	}
	if p.Interval < 1 {
		return &seismic.ConfigurationError{Field: "snapshot_interval", Value: p.Interval, Reason: "must be at least 1"}
	}
	if v2.Width < 1 || v2.Height < p.DimT+2 {
		return &seismic.ConfigurationError{
			Field:  "dim_z",
			Value:  v2.Height,
			Reason: fmt.Sprintf("need at least dim_t+2=%d depth rows", p.DimT+2),
		}
	}
	if shot.Width != v2.Width || shot.Height != p.DimT {
		return &seismic.ConfigurationError{
			Field:  "shot",
			Value:  fmt.Sprintf("%dx%d", shot.Width, shot.Height),
			Reason: fmt.Sprintf("want %dx%d (dim_x × dim_t)", v2.Width, p.DimT),
		}
	}
	return nil
}

// Run steps rtime from DimT-1 down to 0. emit receives every scheduled
// snapshot in order; an emit error stops the run and is returned as is.
// A non-finite stencil result stops the run with a
// *seismic.NumericalInstabilityError and nothing is emitted for that step.
func (s *Stepper) Run(ctx context.Context, v2, shot *seismic.Grid, p Params, emit func(Snapshot) error) error {
	if err := p.validate(v2, shot); err != nil {
		return err
	}
	coef := NewCoefficients(p.Dt, p.Dx, p.Dz)
	kernel, err := NewKernel(p.Kernel, v2, coef, p.Workers)
	if err != nil {
		return err
	}
	defer kernel.Close()

	w, h := v2.Width, v2.Height
	ring := NewRing(w * h)
	diagf("%s kernel: %dx%d cells, 3 buffers of %s, cx=%g cz=%g",
		kernel.Name(), w, h, humanize.Bytes(uint64(w*h*8)), coef.CX, coef.CZ)

	inject := p.DimT * w
	for rtime := p.DimT - 1; rtime >= 0; rtime-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		ring.Rotate()
		f := ring.Frame()
		copy(f.Current[inject:inject+w], shot.Row(rtime))

		bad, err := kernel.Step(ctx, f)
		if err != nil {
			return fmt.Errorf("rtime %d: %w", rtime, err)
		}
		if bad >= 0 {
			ie := &seismic.NumericalInstabilityError{
				RTime: rtime,
				Index: bad,
				Row:   bad / w,
				Col:   bad % w,
				Cells: neighborhood(f, v2.Data, w, bad),
			}
			opsf("%v", ie)
			return ie
		}

		next := &seismic.Grid{Width: w, Height: h, Data: f.Next}
		if s.Observe != nil {
			s.Observe(rtime, next)
		}
		if rtime%p.Interval == 0 && rtime <= p.Cutoff {
			snap := Snapshot{RTime: rtime, Grid: next.SubRows(p.DimT).Clone()}
			tracef("snapshot rtime=%d", rtime)
			if err := emit(snap); err != nil {
				return err
			}
		}
	}
	return nil
}

// Collect runs the stepper and returns every snapshot in emission order.
// The snapshots gathered before a failure are returned with the error.
func (s *Stepper) Collect(ctx context.Context, v2, shot *seismic.Grid, p Params) ([]Snapshot, error) {
	var out []Snapshot
	err := s.Run(ctx, v2, shot, p, func(snap Snapshot) error {
		out = append(out, snap)
		return nil
	})
	return out, err
}

// SnapshotCount is how many snapshots a run of dimT steps emits.
func SnapshotCount(dimT, interval, cutoff int) int {
	if interval < 1 || dimT < 1 || cutoff < 0 {
		return 0
	}
	if cutoff > dimT-1 {
		cutoff = dimT - 1
	}
	return cutoff/interval + 1
}
