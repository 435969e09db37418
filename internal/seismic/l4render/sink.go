package l4render

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/monitoring"
	"github.com/banshee-data/rtm/internal/security"
	"github.com/banshee-data/rtm/internal/seismic"
)

// Sink writes snapshot and debug images into one directory.
type Sink struct {
	fs        fsutil.FileSystem
	dir       string
	renderPNG bool

	mu      sync.Mutex
	ready   bool
	written []string
}

// NewSink returns a Sink rooted at dir. A nil fs means the OS filesystem.
func NewSink(fs fsutil.FileSystem, dir string, renderPNG bool) *Sink {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if dir == "" {
		dir = "."
	}
	return &Sink{fs: fs, dir: dir, renderPNG: renderPNG}
}

// Dir is the output directory.
func (s *Sink) Dir() string { return s.dir }

// SnapshotName is the file stem for a snapshot of shotPath at rtime.
func SnapshotName(shotPath string, rtime int) string {
	return fmt.Sprintf("%s_RTMs_%05d", filepath.Base(shotPath), rtime)
}

// WriteSnapshot writes the snapshot images for rtime and returns the
// paths written, PGM first.
func (s *Sink) WriteSnapshot(shotPath string, rtime int, g *seismic.Grid) ([]string, error) {
	return s.write(SnapshotName(shotPath, rtime), g, fmt.Sprintf("rtime %d", rtime))
}

// WriteDebug writes an intermediate grid under its own name.
func (s *Sink) WriteDebug(name string, g *seismic.Grid) ([]string, error) {
	return s.write(name, g, name)
}

// Written lists every path written so far, in order.
func (s *Sink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func (s *Sink) write(stem string, g *seismic.Grid, title string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		s.ready = true
	}

	var paths []string
	pgmPath, err := s.create(stem+".pgm", func(w io.Writer) error {
		return WritePGM(w, g, "original is float64")
	})
	if err != nil {
		return paths, err
	}
	paths = append(paths, pgmPath)

	if s.renderPNG {
		pngPath, err := s.create(stem+".png", func(w io.Writer) error {
			return WritePNG(w, g, title)
		})
		if err != nil {
			return paths, err
		}
		paths = append(paths, pngPath)
	}

	s.written = append(s.written, paths...)
	lo, hi := g.Extrema()
	monitoring.Logf("wrote %s (%dx%d, range [%g .. %g])", stem, g.Width, g.Height, lo, hi)
	return paths, nil
}

func (s *Sink) create(name string, encode func(io.Writer) error) (string, error) {
	path, err := security.ConfinedPath(s.dir, name)
	if err != nil {
		return "", err
	}
	f, err := s.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
