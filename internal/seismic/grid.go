package seismic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid is a dense 2-D array of float64 stored row-major. Cell (row, col)
// lives at Data[row*Width+col].
type Grid struct {
	Width  int
	Height int
	Data   []float64

	// squared marks a velocity grid that has been through SquareInPlace.
	squared bool
}

// NewGrid allocates a zeroed width×height grid.
func NewGrid(width, height int) *Grid {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("seismic: negative grid size %dx%d", width, height))
	}
	return &Grid{Width: width, Height: height, Data: make([]float64, width*height)}
}

// NewGridFrom wraps data without copying. len(data) must equal width*height.
func NewGridFrom(width, height int, data []float64) (*Grid, error) {
	if width*height != len(data) {
		return nil, fmt.Errorf("grid %dx%d needs %d cells, got %d", width, height, width*height, len(data))
	}
	return &Grid{Width: width, Height: height, Data: data}, nil
}

// Fill sets every cell to v.
func (g *Grid) Fill(v float64) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// Index returns the flat offset of (row, col).
func (g *Grid) Index(row, col int) int { return row*g.Width + col }

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.Data[row*g.Width+col] }

// Set stores v at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.Data[row*g.Width+col] = v }

// Row returns the backing slice of one row. Writes go through to the grid.
func (g *Grid) Row(row int) []float64 {
	start := row * g.Width
	return g.Data[start : start+g.Width]
}

// SubRows returns a grid view over rows [from, Height). The view shares
// storage with g.
func (g *Grid) SubRows(from int) *Grid {
	if from < 0 || from > g.Height {
		panic(fmt.Sprintf("seismic: row %d out of range [0,%d]", from, g.Height))
	}
	return &Grid{
		Width:  g.Width,
		Height: g.Height - from,
		Data:   g.Data[from*g.Width:],
	}
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, squared: g.squared}
	out.Data = make([]float64, len(g.Data))
	copy(out.Data, g.Data)
	return out
}

// Scale multiplies every cell by s.
func (g *Grid) Scale(s float64) {
	floats.Scale(s, g.Data)
}

// Extrema returns the smallest and largest cell values. An empty grid
// returns (0, 0).
func (g *Grid) Extrema() (min, max float64) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	return floats.Min(g.Data), floats.Max(g.Data)
}

// MaxAbs returns the largest absolute cell value.
func (g *Grid) MaxAbs() float64 {
	lo, hi := g.Extrema()
	return math.Max(math.Abs(lo), math.Abs(hi))
}

// SquareInPlace replaces every cell with its square. It refuses to run
// twice on the same grid so that a v² grid is never squared again.
func (g *Grid) SquareInPlace() error {
	if g.squared {
		return fmt.Errorf("grid already squared")
	}
	floats.Mul(g.Data, g.Data)
	g.squared = true
	return nil
}

// Squared reports whether SquareInPlace has been applied.
func (g *Grid) Squared() bool { return g.squared }

// AllFinite reports the first non-finite cell, if any.
func (g *Grid) AllFinite() (idx int, ok bool) {
	for i, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i, false
		}
	}
	return -1, true
}
