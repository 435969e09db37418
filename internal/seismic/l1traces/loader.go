package l1traces

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/monitoring"
	"github.com/banshee-data/rtm/internal/seismic"
)

const sampleSize = 4 // float32

// Stats summarises a loaded grid.
type Stats struct {
	Min    float64
	Max    float64
	MaxAbs float64
}

// Loader reads trace files through a FileSystem.
type Loader struct {
	fs fsutil.FileSystem
}

// NewLoader returns a Loader. A nil fs uses the OS filesystem.
func NewLoader(fs fsutil.FileSystem) *Loader {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Loader{fs: fs}
}

// ExpectedSize is the byte length of a dimX×dimT trace file.
func ExpectedSize(dimX, dimT int) int64 {
	return int64(dimX) * int64(dimT) * sampleSize
}

// Load reads dimX traces of dimT samples from path and returns them as a
// grid with Width=dimX and Height=dimT. Trailing bytes past the declared
// size are ignored; a short file is an *seismic.InputError.
func (l *Loader) Load(path string, dimX, dimT int) (*seismic.Grid, Stats, error) {
	if dimX <= 0 {
		return nil, Stats{}, &seismic.ConfigurationError{Field: "dim_x", Value: dimX, Reason: "must be positive"}
	}
	if dimT <= 0 {
		return nil, Stats{}, &seismic.ConfigurationError{Field: "dim_t", Value: dimT, Reason: "must be positive"}
	}
	expected := ExpectedSize(dimX, dimT)

	f, err := l.fs.Open(path)
	if err != nil {
		return nil, Stats{}, &seismic.InputError{Path: path, Expected: expected, Actual: -1, Err: err}
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		if info.Size() < expected {
			return nil, Stats{}, &seismic.InputError{
				Path: path, Expected: expected, Actual: info.Size(),
				Err: errors.New("file shorter than declared dimensions"),
			}
		}
		if info.Size() > expected {
			diagf("%s: ignoring %s of trailing data", path, humanize.Bytes(uint64(info.Size()-expected)))
		}
	}

	g := seismic.NewGrid(dimX, dimT)
	if err := readTransposed(bufio.NewReader(f), g); err != nil {
		var short *shortRead
		if errors.As(err, &short) {
			return nil, Stats{}, &seismic.InputError{Path: path, Expected: expected, Actual: short.got, Err: io.ErrUnexpectedEOF}
		}
		return nil, Stats{}, &seismic.InputError{Path: path, Expected: expected, Actual: -1, Err: err}
	}

	lo, hi := g.Extrema()
	st := Stats{Min: lo, Max: hi, MaxAbs: math.Max(math.Abs(lo), math.Abs(hi))}
	monitoring.Logf("loaded %s: %dx%d traces (%s), value range [%g .. %g]",
		path, dimX, dimT, humanize.Bytes(uint64(expected)), st.Min, st.Max)
	return g, st, nil
}

type shortRead struct{ got int64 }

func (e *shortRead) Error() string { return fmt.Sprintf("short read after %d bytes", e.got) }

// readTransposed fills g[t][x] from trace-major float32 samples.
func readTransposed(r io.Reader, g *seismic.Grid) error {
	trace := make([]float32, g.Height)
	raw := make([]byte, g.Height*sampleSize)
	var got int64
	for x := 0; x < g.Width; x++ {
		n, err := io.ReadFull(r, raw)
		got += int64(n)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return &shortRead{got: got}
			}
			return err
		}
		if _, err := binary.Decode(raw, binary.NativeEndian, trace); err != nil {
			return fmt.Errorf("decode trace %d: %w", x, err)
		}
		for t, v := range trace {
			g.Data[t*g.Width+x] = float64(v)
		}
	}
	return nil
}
