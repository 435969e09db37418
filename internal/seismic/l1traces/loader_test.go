package l1traces

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/monitoring"
	"github.com/banshee-data/rtm/internal/seismic"
	"github.com/banshee-data/rtm/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func TestLoad_Transposes(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	// Two traces (x=0, x=1) of three samples each.
	traces := [][]float32{{1, 2, 3}, {-4, 5, 6}}
	require.NoError(t, mfs.WriteFile("v.bin", testutil.EncodeTraces(traces), 0o644))

	g, st, err := NewLoader(mfs).Load("v.bin", 2, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Width)
	assert.Equal(t, 3, g.Height)
	// grid[t][x]
	assert.Equal(t, []float64{1, -4, 2, 5, 3, 6}, g.Data)
	assert.Equal(t, Stats{Min: -4, Max: 6, MaxAbs: 6}, st)
}

func TestLoad_OSFileSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.bin")
	testutil.WriteTraceFile(t, path, testutil.ImpulseTraces(4, 3, 2, 2, 1))

	g, st, err := NewLoader(nil).Load(path, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.At(2, 2))
	assert.Equal(t, 1.0, st.MaxAbs)
}

func TestLoad_IgnoresTrailingBytes(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	data := append(testutil.EncodeTraces([][]float32{{7}, {8}}), 0xde, 0xad)
	require.NoError(t, mfs.WriteFile("v.bin", data, 0o644))

	g, _, err := NewLoader(mfs).Load("v.bin", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, g.Data)
}

func TestLoad_ShortFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("short.bin", testutil.EncodeTraces([][]float32{{1, 2, 3}}), 0o644))

	_, _, err := NewLoader(mfs).Load("short.bin", 2, 3)
	var ie *seismic.InputError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.Equal(t, "short.bin", ie.Path)
	assert.EqualValues(t, 24, ie.Expected)
	assert.EqualValues(t, 12, ie.Actual)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := NewLoader(fsutil.NewMemoryFileSystem()).Load("none.bin", 2, 2)
	var ie *seismic.InputError
	require.True(t, errors.As(err, &ie))
	assert.EqualValues(t, -1, ie.Actual)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_BadDimensions(t *testing.T) {
	l := NewLoader(fsutil.NewMemoryFileSystem())
	for _, dims := range [][2]int{{0, 3}, {3, 0}, {-1, 2}} {
		_, _, err := l.Load("v.bin", dims[0], dims[1])
		var ce *seismic.ConfigurationError
		assert.True(t, errors.As(err, &ce), "dims %v: %v", dims, err)
	}
}

// statlessFS hides the file size so the loader has to discover truncation
// while reading.
type statlessFS struct{ fsutil.FileSystem }

type statlessFile struct{ io.Reader }

func (statlessFile) Stat() (fs.FileInfo, error) { return nil, errors.New("no stat") }
func (statlessFile) Close() error               { return nil }

func (s statlessFS) Open(name string) (fs.File, error) {
	data, err := s.FileSystem.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return statlessFile{bytes.NewReader(data)}, nil
}

func TestLoad_ShortReadWithoutStat(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("v.bin", testutil.EncodeTraces([][]float32{{1, 2}, {3}}), 0o644))

	_, _, err := NewLoader(statlessFS{mfs}).Load("v.bin", 2, 2)
	var ie *seismic.InputError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.EqualValues(t, 16, ie.Expected)
	assert.EqualValues(t, 12, ie.Actual)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteTraces_RoundTrip(t *testing.T) {
	g, err := seismic.NewGridFrom(3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, SaveTraces(mfs, "out.bin", g))

	raw, _ := mfs.ReadFile("out.bin")
	assert.Len(t, raw, int(ExpectedSize(3, 2)))

	back, _, err := NewLoader(mfs).Load("out.bin", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, g.Data, back.Data)
}
