package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := osfs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "trace.bin")

	w, err := osfs.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !osfs.Exists(path) {
		t.Fatal("expected file to exist")
	}
	info, err := osfs.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 3 {
		t.Errorf("size = %d, want 3", info.Size())
	}
	if osfs.Exists(filepath.Join(dir, "missing.bin")) {
		t.Error("missing file reported as existing")
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("out/snap.pgm")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, "P2\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := mfs.ReadFile("out/snap.pgm")
	if err != nil {
		t.Fatalf("ReadFile before close: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, _ = mfs.ReadFile("out/snap.pgm")
	if string(data) != "P2\n" {
		t.Errorf("got %q, want %q", data, "P2\n")
	}
}

func TestMemoryFileSystem_OpenAndStat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/data/v.bin", []byte("abcd"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := mfs.Open("/data/../data/v.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 4 || info.Name() != "v.bin" {
		t.Errorf("info = %s/%d", info.Name(), info.Size())
	}

	buf := make([]byte, 8)
	n, _ := f.Read(buf)
	if string(buf[:n]) != "abcd" {
		t.Errorf("read %q", buf[:n])
	}

	_, err = mfs.Open("/data/none.bin")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	_, err = mfs.Stat("/data/none.bin")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist from Stat, got %v", err)
	}
}

func TestMemoryFileSystem_DirsAndFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("runs/a/b", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, p := range []string{"runs", "runs/a", "runs/a/b"} {
		if !mfs.Exists(p) {
			t.Errorf("expected dir %s", p)
		}
		info, err := mfs.Stat(p)
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%s) = %v, %v", p, info, err)
		}
	}

	_ = mfs.WriteFile("runs/a/2.pgm", nil, 0o644)
	_ = mfs.WriteFile("runs/a/1.pgm", nil, 0o644)
	_ = mfs.WriteFile("other/x.pgm", nil, 0o644)

	got := mfs.Files("runs")
	want := []string{filepath.Join("runs", "a", "1.pgm"), filepath.Join("runs", "a", "2.pgm")}
	if len(got) != len(want) {
		t.Fatalf("Files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Files[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if n := len(mfs.Files(".")); n != 3 {
		t.Errorf("Files(.) = %d entries, want 3", n)
	}
}

func TestMemoryFileSystem_ReadFileReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("x", []byte{1, 2}, 0o644)

	data, _ := mfs.ReadFile("x")
	data[0] = 9

	again, _ := mfs.ReadFile("x")
	if again[0] != 1 {
		t.Error("ReadFile must not expose internal storage")
	}
}
