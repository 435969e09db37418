package l2depth

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rtm/internal/seismic"
)

// SeedVelocity is the water velocity every depth cell starts from before
// interpolation overwrites it.
const SeedVelocity = 1500.0

// Names passed to Mapper.Inspect.
const (
	GridTimeDepth     = "xtz_grid" // cumulative travel distance, dim_x × dim_t
	GridDepth         = "z_grid"   // target depth per output cell, dim_x × dim_z
	GridDepthVelocity = "xzv_grid" // interpolated velocity, dim_x × dim_z
)

// largeGridBytes is the size above which the output grid is flagged on
// the ops stream.
const largeGridBytes = 1 << 30

// Result is the depth-domain velocity model.
type Result struct {
	Velocity    *seismic.Grid // Width=dim_x, Height=Rows
	DepthStep   float64       // dz, metres per depth row
	Rows        int           // dim_z
	MaxVelocity float64       // after scaling
	MaxTravel   float64       // deepest cumulative travel distance
}

// Mapper converts time-domain velocity grids to depth-domain ones.
type Mapper struct {
	// Inspect, when set, receives each intermediate grid once it is built.
	// The grids are only valid for the duration of the call.
	Inspect func(name string, g *seismic.Grid)
}

// MapToDepth scales timeVelocity by multiplier and maps it onto a uniform
// depth axis. timeVelocity is not modified.
func (m *Mapper) MapToDepth(timeVelocity *seismic.Grid, multiplier, dt float64) (*Result, error) {
	if err := validate(timeVelocity, multiplier, dt); err != nil {
		return nil, err
	}
	width, dimT := timeVelocity.Width, timeVelocity.Height

	vel := timeVelocity.Clone()
	vel.Scale(multiplier)

	travel, maxV, maxD := integrate(vel, dt)
	m.inspect(GridTimeDepth, travel)

	dz := maxV * dt
	if !(dz > 0) || math.IsInf(dz, 0) {
		return nil, &seismic.ConfigurationError{Field: "depth_step", Value: dz, Reason: "max velocity × dt must be positive"}
	}
	rows := int(math.Ceil(maxD/dz)) + 2*dimT

	depths := rowDepths(rows, dimT, dz)
	if m.Inspect != nil {
		m.inspect(GridDepth, depthGrid(width, depths))
	}

	out := seismic.NewGrid(width, rows)
	if bytes := uint64(len(out.Data)) * 8; bytes > largeGridBytes {
		opsf("depth grid is %dx%d (%s); three wavefield buffers will need %s",
			width, rows, humanize.Bytes(bytes), humanize.Bytes(3*bytes))
	}
	fillVelocity(out, vel, travel, depths, dimT)
	m.inspect(GridDepthVelocity, out)

	diagf("max interval velocity %g, max travel %g, dz %g, dim_z %d", maxV, maxD, dz, rows)
	return &Result{
		Velocity:    out,
		DepthStep:   dz,
		Rows:        rows,
		MaxVelocity: maxV,
		MaxTravel:   maxD,
	}, nil
}

func (m *Mapper) inspect(name string, g *seismic.Grid) {
	if m.Inspect != nil {
		m.Inspect(name, g)
	}
}

func validate(g *seismic.Grid, multiplier, dt float64) error {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return &seismic.ConfigurationError{Field: "velocity_multiplier", Value: multiplier, Reason: "must be positive and finite"}
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return &seismic.ConfigurationError{Field: "dt", Value: dt, Reason: "must be positive and finite"}
	}
	if g == nil || g.Width <= 0 || g.Height <= 0 {
		return &seismic.ConfigurationError{Field: "velocity_grid", Value: "empty", Reason: "needs at least one trace and one sample"}
	}
	for i, v := range g.Data {
		s := v * multiplier
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return &seismic.ConfigurationError{
				Field:  "velocity",
				Value:  v,
				Reason: fmt.Sprintf("cell (t=%d, x=%d) must scale to a positive finite velocity", i/g.Width, i%g.Width),
			}
		}
	}
	return nil
}

// integrate builds the cumulative travel-distance map down every column
// and returns it with the global maximum velocity and travel distance.
func integrate(vel *seismic.Grid, dt float64) (travel *seismic.Grid, maxV, maxD float64) {
	w := vel.Width
	travel = seismic.NewGrid(w, vel.Height)
	for i, v := range vel.Data {
		d := v * dt
		if i >= w {
			d += travel.Data[i-w]
		}
		travel.Data[i] = d
		if v > maxV {
			maxV = v
		}
		if d > maxD {
			maxD = d
		}
	}
	return travel, maxV, maxD
}

// rowDepths is the target depth of each output row. Rows above the
// surface row dimT are reserved padding at depth 0.
func rowDepths(rows, dimT int, dz float64) []float64 {
	out := make([]float64, rows)
	for r := dimT; r < rows; r++ {
		out[r] = float64(r-dimT) * dz
	}
	return out
}

// depthGrid expands the per-row depths laterally for inspection.
func depthGrid(width int, depths []float64) *seismic.Grid {
	g := seismic.NewGrid(width, len(depths))
	for r, d := range depths {
		row := g.Row(r)
		for x := range row {
			row[x] = d
		}
	}
	return g
}

// fillVelocity seeds out with SeedVelocity, copies the surface row and
// interpolates everything below it column by column.
func fillVelocity(out, vel, travel *seismic.Grid, depths []float64, dimT int) {
	out.Fill(SeedVelocity)
	copy(out.Row(dimT), vel.Row(0))

	col := Column{
		Travel:   make([]float64, dimT),
		Velocity: make([]float64, dimT),
	}
	w := out.Width
	for x := 0; x < w; x++ {
		for t := 0; t < dimT; t++ {
			col.Travel[t] = travel.Data[t*w+x]
			col.Velocity[t] = vel.Data[t*w+x]
		}
		// Targets grow with r and travel is non-decreasing, so the first
		// k with Travel[k] >= target never moves backwards.
		k := 0
		for r := dimT + 1; r < out.Height; r++ {
			var v float64
			var ok bool
			v, k, ok = col.sampleFrom(depths[r], k)
			if !ok {
				v = out.Data[(r-1)*w+x]
			}
			out.Data[r*w+x] = v
		}
	}
}

// Column is one lateral position of the time-domain model: cumulative
// travel distance and interval velocity per time sample.
type Column struct {
	Travel   []float64
	Velocity []float64
}

// At returns the velocity at depth target. ok is false when target lies
// below the deepest travel distance and the caller must extrapolate.
func (c Column) At(target float64) (v float64, ok bool) {
	v, _, ok = c.sampleFrom(target, 0)
	return v, ok
}

// sampleFrom scans forward from k for the first sample whose travel
// distance reaches target and interpolates against the sample above it.
func (c Column) sampleFrom(target float64, k int) (float64, int, bool) {
	n := len(c.Travel)
	for k < n && c.Travel[k] < target {
		k++
	}
	if k >= n {
		return 0, k, false
	}
	if k == 0 {
		return c.Velocity[0], k, true
	}
	d0, d1 := c.Travel[k-1], c.Travel[k]
	v0, v1 := c.Velocity[k-1], c.Velocity[k]
	ratio := 0.0
	if denom := d1 - d0; denom != 0 {
		ratio = (target - d0) / denom
	}
	return v0 + (v1-v0)*ratio, k, true
}
