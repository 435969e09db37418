package l3wave

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtm/internal/seismic"
)

func squaredUniform(t *testing.T, w, h int, v float64) *seismic.Grid {
	t.Helper()
	g := seismic.NewGrid(w, h)
	g.Fill(v)
	require.NoError(t, g.SquareInPlace())
	return g
}

func impulseShot(w, dimT, x, rtime int, amp float64) *seismic.Grid {
	g := seismic.NewGrid(w, dimT)
	g.Set(rtime, x, amp)
	return g
}

func TestRing_Rotate(t *testing.T) {
	r := NewRing(2)
	p, c, n := r.Previous(), r.Current(), r.Next()
	p[0], c[0], n[0] = 1, 2, 3

	r.Rotate()
	assert.Equal(t, 2.0, r.Previous()[0])
	assert.Equal(t, 3.0, r.Current()[0])
	assert.Equal(t, 1.0, r.Next()[0])

	r.Rotate()
	r.Rotate()
	assert.Equal(t, 1.0, r.Previous()[0], "three rotations return to the start")
}

func TestScalarKernel_Footprint(t *testing.T) {
	const w, h, v = 7, 7, 2.0
	v2 := squaredUniform(t, w, h, v)
	c := NewCoefficients(0.1, 1, 0.5)

	for _, workers := range []int{1, 3} {
		ring := NewRing(w * h)
		f := ring.Frame()
		f.Current[3*w+3] = 1

		bad, err := NewScalarKernel(v2, c, workers).Step(context.Background(), f)
		require.NoError(t, err)
		require.Equal(t, -1, bad)

		want := map[int]float64{
			3*w + 3: 2 + v*v*(c.CX*-2+c.CZ*-2),
			3*w + 2: v * v * c.CX,
			3*w + 4: v * v * c.CX,
			2*w + 3: v * v * c.CZ,
			4*w + 3: v * v * c.CZ,
		}
		for i, got := range f.Next {
			if exp, ok := want[i]; ok {
				assert.InDelta(t, exp, got, 1e-12, "cell %d", i)
			} else {
				assert.Zero(t, got, "cell %d (row %d, col %d) outside the footprint", i, i/w, i%w)
			}
		}
		assert.Equal(t, f.Next[3*w+2], f.Next[3*w+4], "lateral symmetry")
	}
}

func TestScalarKernel_LateralEdgeReadsZero(t *testing.T) {
	const w, h = 4, 3
	v2 := squaredUniform(t, w, h, 1)
	c := Coefficients{CX: 0.25, CZ: 0}
	ring := NewRing(w * h)
	f := ring.Frame()
	f.Current[w+0] = 1
	// Cells a row-wrapping stencil would pick up at the lateral edges.
	f.Current[w-1] = 5
	f.Current[2*w] = 7

	_, err := NewScalarKernel(v2, c, 1).Step(context.Background(), f)
	require.NoError(t, err)
	assert.InDelta(t, 2+0.25*-2, f.Next[w], 1e-12)
	assert.InDelta(t, 0.25, f.Next[w+1], 1e-12)
	assert.Zero(t, f.Next[w+3])
}

func TestStepper_SnapshotSchedule(t *testing.T) {
	const w, dimT = 5, 10
	v2 := squaredUniform(t, w, dimT+4, 100)
	shot := impulseShot(w, dimT, 2, dimT-1, 1)

	tests := []struct {
		interval, cutoff int
		want             []int
	}{
		{3, 9, []int{9, 6, 3, 0}},
		{3, 5, []int{3, 0}},
		{1, 2, []int{2, 1, 0}},
		{4, 100, []int{8, 4, 0}},
		{5, -1, nil},
	}
	for _, tt := range tests {
		p := Params{DimT: dimT, Dx: 10, Dz: 10, Dt: 0.01, Interval: tt.interval, Cutoff: tt.cutoff, Workers: 2}
		var s Stepper
		snaps, err := s.Collect(context.Background(), v2, shot, p)
		require.NoError(t, err)

		var got []int
		for _, snap := range snaps {
			got = append(got, snap.RTime)
			assert.Equal(t, w, snap.Grid.Width)
			assert.Equal(t, 4, snap.Grid.Height, "padding rows are excluded")
		}
		assert.Equal(t, tt.want, got, "interval=%d cutoff=%d", tt.interval, tt.cutoff)
		assert.Equal(t, len(tt.want), SnapshotCount(dimT, tt.interval, tt.cutoff))
	}
}

func TestStepper_InjectsIntoSurfaceRow(t *testing.T) {
	const w, dimT = 5, 3
	v2 := squaredUniform(t, w, 2*dimT+3, 100)
	shot := impulseShot(w, dimT, 2, dimT-1, 1)

	var first *seismic.Grid
	s := Stepper{Observe: func(rtime int, next *seismic.Grid) {
		if first == nil {
			first = next.Clone()
		}
	}}
	p := Params{DimT: dimT, Dx: 10, Dz: 10, Dt: 0.01, Interval: 1, Cutoff: dimT - 1, Workers: 1}
	_, err := s.Collect(context.Background(), v2, shot, p)
	require.NoError(t, err)

	require.NotNil(t, first)
	for r := 0; r < first.Height; r++ {
		for x := 0; x < w; x++ {
			onFootprint := (r == dimT && x >= 1 && x <= 3) || (x == 2 && (r == dimT-1 || r == dimT+1))
			if onFootprint {
				assert.NotZero(t, first.At(r, x), "(%d,%d)", r, x)
			} else {
				assert.Zero(t, first.At(r, x), "(%d,%d)", r, x)
			}
		}
	}
}

func TestStepper_ReportsOverflow(t *testing.T) {
	const w, dimT = 5, 4
	v2 := squaredUniform(t, w, 9, 1e5) // v² = 1e10
	shot := impulseShot(w, dimT, 2, dimT-1, 1e300)

	p := Params{DimT: dimT, Dx: 1, Dz: 1, Dt: 1, Interval: 1, Cutoff: dimT - 1, Workers: 3}
	var s Stepper
	snaps, err := s.Collect(context.Background(), v2, shot, p)

	var ie *seismic.NumericalInstabilityError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.Empty(t, snaps)
	assert.Equal(t, dimT-1, ie.RTime)
	// The cell above the injected impulse is the first overflow in row order.
	assert.Equal(t, dimT-1, ie.Row)
	assert.Equal(t, 2, ie.Col)
	assert.Equal(t, ie.Row*w+ie.Col, ie.Index)
	assert.Equal(t, 1e300, ie.Cells.Down)
	assert.Equal(t, 1e10, ie.Cells.V2)
	assert.True(t, math.IsInf(ie.Cells.Next, 1))
}

func TestStepper_DivergesWithoutLateSnapshots(t *testing.T) {
	const w, dimT = 20, 1000
	// Courant number 2·sqrt(2): far past the stability bound.
	v2 := squaredUniform(t, w, dimT+40, 2)
	shot := impulseShot(w, dimT, 10, dimT-1, 1)

	p := Params{DimT: dimT, Dx: 1, Dz: 1, Dt: 1, Interval: 10, Cutoff: dimT - 1, Workers: 4}
	var s Stepper
	snaps, err := s.Collect(context.Background(), v2, shot, p)

	var ie *seismic.NumericalInstabilityError
	require.True(t, errors.As(err, &ie), "got %v", err)
	require.NotEmpty(t, snaps, "the first steps are still finite")
	for _, snap := range snaps {
		assert.Greater(t, snap.RTime, ie.RTime, "no snapshot at or after the failing step")
		_, ok := snap.Grid.AllFinite()
		assert.True(t, ok)
	}
	assert.Greater(t, CourantNumber(2, 1, 1, 1), 1.0)
}

func TestStepper_WorkerCountDoesNotChangeResults(t *testing.T) {
	const w, dimT = 9, 40
	v2 := seismic.NewGrid(w, 2*dimT+5)
	for i := range v2.Data {
		v2.Data[i] = 1500 + float64(i%7)*25
	}
	require.NoError(t, v2.SquareInPlace())
	shot := seismic.NewGrid(w, dimT)
	shot.Set(dimT-1, 4, 1)
	shot.Set(dimT-5, 2, -0.5)

	run := func(workers int) []Snapshot {
		p := Params{DimT: dimT, Dx: 6.25, Dz: 1.5, Dt: 0.0005, Interval: 5, Cutoff: dimT - 1, Workers: workers}
		var s Stepper
		snaps, err := s.Collect(context.Background(), v2, shot, p)
		require.NoError(t, err)
		return snaps
	}
	base := run(1)
	for _, workers := range []int{2, 5, 64} {
		if diff := cmp.Diff(base, run(workers), cmp.AllowUnexported(seismic.Grid{})); diff != "" {
			t.Errorf("workers=%d differs (-1 worker +n workers):\n%s", workers, diff)
		}
	}
}

func TestStepper_EmitErrorStopsRun(t *testing.T) {
	const w, dimT = 3, 6
	v2 := squaredUniform(t, w, dimT+3, 10)
	shot := impulseShot(w, dimT, 1, dimT-1, 1)
	p := Params{DimT: dimT, Dx: 10, Dz: 10, Dt: 0.01, Interval: 1, Cutoff: dimT - 1}

	boom := errors.New("disk full")
	calls := 0
	var s Stepper
	err := s.Run(context.Background(), v2, shot, p, func(Snapshot) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestStepper_Cancelled(t *testing.T) {
	v2 := squaredUniform(t, 3, 6, 10)
	shot := seismic.NewGrid(3, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var s Stepper
	_, err := s.Collect(ctx, v2, shot, Params{DimT: 3, Dx: 1, Dz: 1, Dt: 0.01, Interval: 1, Cutoff: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepper_RejectsBadParams(t *testing.T) {
	good := Params{DimT: 3, Dx: 1, Dz: 1, Dt: 0.01, Interval: 1, Cutoff: 2}
	v2 := squaredUniform(t, 3, 6, 10)
	unsquared := seismic.NewGrid(3, 6)
	shot := seismic.NewGrid(3, 3)

	tests := []struct {
		name  string
		v2    *seismic.Grid
		shot  *seismic.Grid
		p     func(Params) Params
		field string
	}{
		{"unsquared", unsquared, shot, nil, "velocity"},
		{"zero dt", v2, shot, func(p Params) Params { p.Dt = 0; return p }, "dt"},
		{"NaN dz", v2, shot, func(p Params) Params { p.Dz = math.NaN(); return p }, "dz"},
		{"zero interval", v2, shot, func(p Params) Params { p.Interval = 0; return p }, "snapshot_interval"},
		{"too few rows", v2, shot, func(p Params) Params { p.DimT = 5; return p }, "dim_z"},
		{"shot width", v2, seismic.NewGrid(4, 3), nil, "shot"},
		{"unknown kernel", v2, shot, func(p Params) Params { p.Kernel = "cuda"; return p }, "kernel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			if tt.p != nil {
				p = tt.p(p)
			}
			var s Stepper
			_, err := s.Collect(context.Background(), tt.v2, tt.shot, p)
			var ce *seismic.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCourantNumber(t *testing.T) {
	assert.InDelta(t, math.Sqrt2, CourantNumber(1, 1, 1, 1), 1e-12)
	assert.InDelta(t, 1500*0.0005*math.Sqrt(1/(6.25*6.25)+1/(0.75*0.75)), CourantNumber(1500, 0.0005, 6.25, 0.75), 1e-12)
}
