package l4render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/rtm/internal/seismic"
)

// MaxLevel is the brightest PGM intensity.
const MaxLevel = 65535

// Quantize rescales g linearly onto [0, MaxLevel]: the minimum maps to 0
// and the maximum to MaxLevel. A dynamic range below 1 is treated as 1,
// so near-constant grids stay dark instead of being stretched. Scaled
// values below 1 become 0. It returns the levels in row-major order and
// the largest level produced.
func Quantize(g *seismic.Grid) (levels []int, peak int) {
	levels = make([]int, len(g.Data))
	lo, hi := g.Extrema()
	span := hi - lo
	if span < 1 {
		span = 1
	}
	for i, v := range g.Data {
		s := (v - lo) * MaxLevel / span
		if !(s >= 1) { // also catches NaN
			s = 0
		}
		l := int(s)
		if l > MaxLevel {
			l = MaxLevel
		}
		levels[i] = l
		if l > peak {
			peak = l
		}
	}
	return levels, peak
}

// WritePGM encodes g as a plain PGM: magic, a comment line, the
// dimensions, the peak level, then one level per line.
func WritePGM(w io.Writer, g *seismic.Grid, comment string) error {
	levels, peak := Quantize(g)
	bw := bufio.NewWriter(w)
	if comment == "" {
		comment = "original is float64"
	}
	if _, err := fmt.Fprintf(bw, "P2\n# %s\n%d %d\n%d\n", comment, g.Width, g.Height, peak); err != nil {
		return err
	}
	buf := make([]byte, 0, 8)
	for _, l := range levels {
		buf = strconv.AppendInt(buf[:0], int64(l), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
