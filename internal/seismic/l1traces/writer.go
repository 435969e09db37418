package l1traces

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/seismic"
)

// WriteTraces writes g ([t][x]) back out trace-major as native-endian
// float32, the inverse of Load.
func WriteTraces(w io.Writer, g *seismic.Grid) error {
	bw := bufio.NewWriter(w)
	trace := make([]float32, g.Height)
	for x := 0; x < g.Width; x++ {
		for t := range trace {
			trace[t] = float32(g.Data[t*g.Width+x])
		}
		if err := binary.Write(bw, binary.NativeEndian, trace); err != nil {
			return fmt.Errorf("write trace %d: %w", x, err)
		}
	}
	return bw.Flush()
}

// SaveTraces writes g to path through fs.
func SaveTraces(fs fsutil.FileSystem, path string, g *seismic.Grid) error {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteTraces(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
