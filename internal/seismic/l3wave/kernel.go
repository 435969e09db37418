package l3wave

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rtm/internal/seismic"
)

// Backend names accepted by NewKernel.
const (
	BackendScalar = "scalar"
	BackendOpenCL = "opencl"
)

// Frame is one step's view of the ring.
type Frame struct {
	Previous []float64
	Current  []float64
	Next     []float64
}

// Coefficients are the squared grid ratios (dt/dx)² and (dt/dz)².
type Coefficients struct {
	CX float64
	CZ float64
}

// NewCoefficients derives the stencil weights from the grid spacing.
func NewCoefficients(dt, dx, dz float64) Coefficients {
	rx, rz := dt/dx, dt/dz
	return Coefficients{CX: rx * rx, CZ: rz * rz}
}

// Kernel computes one stencil update. Step writes rows [1, height-1) of
// f.Next and returns the flat index of the first non-finite result in
// row-major order, or -1.
type Kernel interface {
	Name() string
	Step(ctx context.Context, f Frame) (int, error)
	Close() error
}

// NewKernel builds the named backend over a squared velocity grid.
func NewKernel(name string, v2 *seismic.Grid, c Coefficients, workers int) (Kernel, error) {
	switch name {
	case "", BackendScalar:
		return NewScalarKernel(v2, c, workers), nil
	case BackendOpenCL:
		return newOpenCLKernel(v2, c)
	default:
		return nil, &seismic.ConfigurationError{Field: "kernel", Value: name, Reason: "want scalar or opencl"}
	}
}

// ScalarKernel runs the stencil on the CPU, one goroutine per row band.
type ScalarKernel struct {
	v2      []float64
	width   int
	height  int
	coef    Coefficients
	workers int
	bad     []int // first non-finite index per band
}

// NewScalarKernel splits the interior rows into at most workers bands.
// workers below 1 is treated as 1.
func NewScalarKernel(v2 *seismic.Grid, c Coefficients, workers int) *ScalarKernel {
	if workers < 1 {
		workers = 1
	}
	interior := v2.Height - 2
	if interior < 1 {
		interior = 1
	}
	if workers > interior {
		workers = interior
	}
	return &ScalarKernel{
		v2:      v2.Data,
		width:   v2.Width,
		height:  v2.Height,
		coef:    c,
		workers: workers,
		bad:     make([]int, workers),
	}
}

func (k *ScalarKernel) Name() string { return BackendScalar }

func (k *ScalarKernel) Close() error { return nil }

// Step implements Kernel.
func (k *ScalarKernel) Step(ctx context.Context, f Frame) (int, error) {
	n := k.width * k.height
	if len(f.Previous) != n || len(f.Current) != n || len(f.Next) != n {
		return -1, fmt.Errorf("frame buffers must hold %d cells", n)
	}
	if k.height < 3 {
		return -1, nil
	}

	first, last := 1, k.height-1
	if k.workers == 1 {
		return k.band(f, first, last), nil
	}

	rows := last - first
	per := (rows + k.workers - 1) / k.workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers)
	for b := 0; b < k.workers; b++ {
		lo := first + b*per
		hi := lo + per
		if hi > last {
			hi = last
		}
		k.bad[b] = -1
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			k.bad[b] = k.band(f, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return -1, err
	}
	// Bands are in row order, so the first band that failed holds the
	// first failure overall.
	for _, idx := range k.bad {
		if idx >= 0 {
			return idx, nil
		}
	}
	return -1, nil
}

// band updates rows [lo, hi) and returns the first non-finite index.
func (k *ScalarKernel) band(f Frame, lo, hi int) int {
	bad := -1
	for r := lo; r < hi; r++ {
		if idx := stepRow(r, k.width, k.coef, k.v2, f.Previous, f.Current, f.Next); idx >= 0 && bad < 0 {
			bad = idx
		}
	}
	return bad
}

// stepRow applies the stencil to one row. Neighbours past the lateral
// edges read as zero.
func stepRow(r, w int, c Coefficients, v2, prev, cur, next []float64) int {
	bad := -1
	base := r * w
	for x := 0; x < w; x++ {
		i := base + x
		center := cur[i]
		var left, right float64
		if x > 0 {
			left = cur[i-1]
		}
		if x < w-1 {
			right = cur[i+1]
		}
		lap := c.CX*(right-2*center+left) + c.CZ*(cur[i-w]-2*center+cur[i+w])
		v := 2*center - prev[i] + v2[i]*lap
		next[i] = v
		if bad < 0 && (math.IsNaN(v) || math.IsInf(v, 0)) {
			bad = i
		}
	}
	return bad
}

// neighborhood captures the stencil inputs behind cell i.
func neighborhood(f Frame, v2 []float64, w, i int) seismic.Neighborhood {
	n := seismic.Neighborhood{
		Center:   f.Current[i],
		Previous: f.Previous[i],
		Up:       f.Current[i-w],
		Down:     f.Current[i+w],
		V2:       v2[i],
		Next:     f.Next[i],
	}
	if x := i % w; x > 0 {
		n.Left = f.Current[i-1]
	}
	if x := i % w; x < w-1 {
		n.Right = f.Current[i+1]
	}
	return n
}
