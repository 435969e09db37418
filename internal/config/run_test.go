package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/banshee-data/rtm/internal/seismic"
)

func TestEmptyRunConfig_Defaults(t *testing.T) {
	cfg := EmptyRunConfig()

	if got := cfg.GetVelocityMultiplier(); got != 1.0 {
		t.Errorf("GetVelocityMultiplier() = %v, want 1", got)
	}
	if got := cfg.GetDt(); got != 0.0005 {
		t.Errorf("GetDt() = %v, want 0.0005", got)
	}
	if got := cfg.GetDx(); got != 6.25 {
		t.Errorf("GetDx() = %v, want 6.25", got)
	}
	if got := cfg.GetSnapshotInterval(); got != 100 {
		t.Errorf("GetSnapshotInterval() = %v, want 100", got)
	}
	if got := cfg.GetSnapshotCutoff(3001); got != 3000 {
		t.Errorf("GetSnapshotCutoff(3001) = %v, want 3000", got)
	}
	if got := cfg.GetWorkers(); got != runtime.GOMAXPROCS(0) {
		t.Errorf("GetWorkers() = %v, want GOMAXPROCS", got)
	}
	if got := cfg.GetKernel(); got != KernelScalar {
		t.Errorf("GetKernel() = %q, want scalar", got)
	}
	if got := cfg.GetOutputDir(filepath.Join("data", "shot.bin")); got != "data" {
		t.Errorf("GetOutputDir() = %q, want data", got)
	}
	if cfg.GetDebugGrids() || cfg.GetRenderPNG() {
		t.Error("debug_grids and render_png default to false")
	}
	if cfg.GetReportDir() != "" || cfg.GetCatalogPath() != "" {
		t.Error("report_dir and catalog_path default to empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestLoadRunConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	body := `{
  "velocity_multiplier": 1.1,
  "dt": 0.001,
  "snapshot_interval": 50,
  "snapshot_cutoff": 400,
  "kernel": "scalar",
  "debug_grids": true,
  "output_dir": "/tmp/out"
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig: %v", err)
	}
	if cfg.GetVelocityMultiplier() != 1.1 || cfg.GetDt() != 0.001 {
		t.Errorf("physics = %v/%v", cfg.GetVelocityMultiplier(), cfg.GetDt())
	}
	if cfg.GetSnapshotInterval() != 50 || cfg.GetSnapshotCutoff(3001) != 400 {
		t.Errorf("snapshots = %d/%d", cfg.GetSnapshotInterval(), cfg.GetSnapshotCutoff(3001))
	}
	if !cfg.GetDebugGrids() {
		t.Error("debug_grids not loaded")
	}
	if cfg.GetOutputDir("x/shot.bin") != "/tmp/out" {
		t.Errorf("output_dir = %q", cfg.GetOutputDir("x/shot.bin"))
	}
	if cfg.Dx != nil {
		t.Error("omitted dx must stay nil")
	}
}

func TestLoadRunConfig_Rejects(t *testing.T) {
	dir := t.TempDir()

	t.Run("extension", func(t *testing.T) {
		p := filepath.Join(dir, "run.yaml")
		_ = os.WriteFile(p, []byte("{}"), 0o644)
		if _, err := LoadRunConfig(p); err == nil || !strings.Contains(err.Error(), ".json") {
			t.Errorf("expected extension error, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := LoadRunConfig(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("expected stat error")
		}
	})

	t.Run("too large", func(t *testing.T) {
		p := filepath.Join(dir, "big.json")
		_ = os.WriteFile(p, make([]byte, 1024*1024+1), 0o644)
		if _, err := LoadRunConfig(p); err == nil || !strings.Contains(err.Error(), "too large") {
			t.Errorf("expected size error, got %v", err)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		p := filepath.Join(dir, "bad.json")
		_ = os.WriteFile(p, []byte("{"), 0o644)
		if _, err := LoadRunConfig(p); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		p := filepath.Join(dir, "neg.json")
		_ = os.WriteFile(p, []byte(`{"dt": -1}`), 0o644)
		_, err := LoadRunConfig(p)
		var ce *seismic.ConfigurationError
		if !errors.As(err, &ce) || ce.Field != "dt" {
			t.Errorf("expected ConfigurationError for dt, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   RunConfig
		field string
	}{
		{"zero multiplier", RunConfig{VelocityMultiplier: Ptr(0.0)}, "velocity_multiplier"},
		{"negative multiplier", RunConfig{VelocityMultiplier: Ptr(-2.0)}, "velocity_multiplier"},
		{"zero dt", RunConfig{Dt: Ptr(0.0)}, "dt"},
		{"zero dx", RunConfig{Dx: Ptr(0.0)}, "dx"},
		{"zero interval", RunConfig{SnapshotInterval: Ptr(0)}, "snapshot_interval"},
		{"cutoff below -1", RunConfig{SnapshotCutoff: Ptr(-2)}, "snapshot_cutoff"},
		{"negative workers", RunConfig{Workers: Ptr(-1)}, "workers"},
		{"negative progress", RunConfig{ProgressEvery: Ptr(-5)}, "progress_every"},
		{"unknown kernel", RunConfig{Kernel: Ptr("cuda")}, "kernel"},
		{"valid", RunConfig{Dt: Ptr(0.001), SnapshotCutoff: Ptr(-1), Kernel: Ptr(KernelOpenCL)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ce *seismic.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := &RunConfig{Dt: Ptr(0.001), SnapshotInterval: Ptr(10), Kernel: Ptr("scalar")}
	base.Merge(&RunConfig{SnapshotInterval: Ptr(25), RenderPNG: Ptr(true)})

	if base.GetDt() != 0.001 {
		t.Errorf("dt overwritten: %v", base.GetDt())
	}
	if base.GetSnapshotInterval() != 25 {
		t.Errorf("interval = %d, want 25", base.GetSnapshotInterval())
	}
	if !base.GetRenderPNG() {
		t.Error("render_png not merged")
	}
	base.Merge(nil)
}

func TestDefaultsFile(t *testing.T) {
	cfg, err := LoadRunConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("defaults file: %v", err)
	}
	empty := EmptyRunConfig()
	if cfg.GetDt() != empty.GetDt() || cfg.GetDx() != empty.GetDx() {
		t.Error("defaults file disagrees with Get* fallbacks")
	}
	if cfg.GetSnapshotInterval() != empty.GetSnapshotInterval() || cfg.GetProgressEvery() != empty.GetProgressEvery() {
		t.Error("defaults file disagrees on snapshot_interval/progress_every")
	}
}
