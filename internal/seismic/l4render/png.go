package l4render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rtm/internal/seismic"
)

// heatGrid adapts a seismic.Grid to plotter.GridXYZ. Grid rows grow
// downwards while plot rows must grow upwards, so plot row r is grid row
// Height-1-r and Y is the negated grid row.
type heatGrid struct{ g *seismic.Grid }

func (h heatGrid) Dims() (c, r int)   { return h.g.Width, h.g.Height }
func (h heatGrid) Z(c, r int) float64 { return h.g.At(h.g.Height-1-r, c) }
func (h heatGrid) X(c int) float64    { return float64(c) }
func (h heatGrid) Y(r int) float64    { return float64(r - (h.g.Height - 1)) }

// paletteSize is the number of colours in the heat ramp.
const paletteSize = 255

// WritePNG renders g as a heat map. The image is scaled to keep the grid's
// aspect ratio within sensible bounds.
func WritePNG(w io.Writer, g *seismic.Grid, title string) error {
	if g.Width < 2 || g.Height < 2 {
		return fmt.Errorf("heat map needs at least 2x2 cells, got %dx%d", g.Width, g.Height)
	}
	hm := plotter.NewHeatMap(heatGrid{g}, palette.Heat(paletteSize, 1))
	if lo, hi := g.Extrema(); lo == hi {
		hm.Min, hm.Max = lo-0.5, hi+0.5
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Trace"
	p.Y.Label.Text = "-Row"
	p.Add(hm)

	width, height := imageSize(g.Width, g.Height)
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render heat map: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// imageSize fixes the width at 8in and follows the grid's aspect ratio,
// clamped to [2in, 24in] tall.
func imageSize(cols, rows int) (vg.Length, vg.Length) {
	width := 8 * vg.Inch
	height := width * vg.Length(rows) / vg.Length(cols)
	if height < 2*vg.Inch {
		height = 2 * vg.Inch
	}
	if height > 24*vg.Inch {
		height = 24 * vg.Inch
	}
	return width, height
}
