package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/rtm/internal/seismic"
)

// DefaultConfigPath is the canonical defaults file, relative to the repo root.
const DefaultConfigPath = "config/rtm.defaults.json"

// Kernel names accepted by the kernel field.
const (
	KernelScalar = "scalar"
	KernelOpenCL = "opencl"
)

// RunConfig holds the tunable parameters of one migration run. Every field
// is optional; the Get* methods supply defaults for anything left nil.
type RunConfig struct {
	// Physics
	VelocityMultiplier *float64 `json:"velocity_multiplier,omitempty"`
	Dt                 *float64 `json:"dt,omitempty"` // seconds
	Dx                 *float64 `json:"dx,omitempty"` // metres between traces

	// Snapshot emission
	SnapshotInterval *int `json:"snapshot_interval,omitempty"`
	SnapshotCutoff   *int `json:"snapshot_cutoff,omitempty"` // -1: last time sample

	// Execution
	Workers       *int    `json:"workers,omitempty"`
	Kernel        *string `json:"kernel,omitempty"`
	ProgressEvery *int    `json:"progress_every,omitempty"`

	// Output
	OutputDir   *string `json:"output_dir,omitempty"` // empty: next to the shot file
	DebugGrids  *bool   `json:"debug_grids,omitempty"`
	RenderPNG   *bool   `json:"render_png,omitempty"`
	ReportDir   *string `json:"report_dir,omitempty"`
	CatalogPath *string `json:"catalog_path,omitempty"`
}

// EmptyRunConfig returns a RunConfig with all fields nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig reads a RunConfig from a .json file of at most 1MB and
// validates it. Omitted fields stay nil.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Merge overlays every non-nil field of over onto c.
func (c *RunConfig) Merge(over *RunConfig) {
	if over == nil {
		return
	}
	if over.VelocityMultiplier != nil {
		c.VelocityMultiplier = over.VelocityMultiplier
	}
	if over.Dt != nil {
		c.Dt = over.Dt
	}
	if over.Dx != nil {
		c.Dx = over.Dx
	}
	if over.SnapshotInterval != nil {
		c.SnapshotInterval = over.SnapshotInterval
	}
	if over.SnapshotCutoff != nil {
		c.SnapshotCutoff = over.SnapshotCutoff
	}
	if over.Workers != nil {
		c.Workers = over.Workers
	}
	if over.Kernel != nil {
		c.Kernel = over.Kernel
	}
	if over.ProgressEvery != nil {
		c.ProgressEvery = over.ProgressEvery
	}
	if over.OutputDir != nil {
		c.OutputDir = over.OutputDir
	}
	if over.DebugGrids != nil {
		c.DebugGrids = over.DebugGrids
	}
	if over.RenderPNG != nil {
		c.RenderPNG = over.RenderPNG
	}
	if over.ReportDir != nil {
		c.ReportDir = over.ReportDir
	}
	if over.CatalogPath != nil {
		c.CatalogPath = over.CatalogPath
	}
}

// Validate rejects values the run cannot use. Numeric problems come back
// as *seismic.ConfigurationError.
func (c *RunConfig) Validate() error {
	positive := func(field string, v *float64) error {
		if v == nil {
			return nil
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			return &seismic.ConfigurationError{Field: field, Value: *v, Reason: "must be positive and finite"}
		}
		return nil
	}
	if err := positive("velocity_multiplier", c.VelocityMultiplier); err != nil {
		return err
	}
	if err := positive("dt", c.Dt); err != nil {
		return err
	}
	if err := positive("dx", c.Dx); err != nil {
		return err
	}

	if c.SnapshotInterval != nil && *c.SnapshotInterval < 1 {
		return &seismic.ConfigurationError{Field: "snapshot_interval", Value: *c.SnapshotInterval, Reason: "must be at least 1"}
	}
	if c.SnapshotCutoff != nil && *c.SnapshotCutoff < -1 {
		return &seismic.ConfigurationError{Field: "snapshot_cutoff", Value: *c.SnapshotCutoff, Reason: "must be -1 or non-negative"}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return &seismic.ConfigurationError{Field: "workers", Value: *c.Workers, Reason: "must be non-negative"}
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 0 {
		return &seismic.ConfigurationError{Field: "progress_every", Value: *c.ProgressEvery, Reason: "must be non-negative"}
	}
	if c.Kernel != nil {
		switch *c.Kernel {
		case "", KernelScalar, KernelOpenCL:
		default:
			return &seismic.ConfigurationError{Field: "kernel", Value: *c.Kernel, Reason: "want scalar or opencl"}
		}
	}
	return nil
}

// GetVelocityMultiplier returns velocity_multiplier or 1.
func (c *RunConfig) GetVelocityMultiplier() float64 {
	if c.VelocityMultiplier == nil {
		return 1.0
	}
	return *c.VelocityMultiplier
}

// GetDt returns dt or 0.5ms.
func (c *RunConfig) GetDt() float64 {
	if c.Dt == nil {
		return 0.0005
	}
	return *c.Dt
}

// GetDx returns dx or the 6.25m CMP spacing.
func (c *RunConfig) GetDx() float64 {
	if c.Dx == nil {
		return 6.25
	}
	return *c.Dx
}

// GetSnapshotInterval returns snapshot_interval or 100.
func (c *RunConfig) GetSnapshotInterval() int {
	if c.SnapshotInterval == nil {
		return 100
	}
	return *c.SnapshotInterval
}

// GetSnapshotCutoff resolves snapshot_cutoff against the time-sample
// count: -1 (or unset) means dimT-1.
func (c *RunConfig) GetSnapshotCutoff(dimT int) int {
	if c.SnapshotCutoff == nil || *c.SnapshotCutoff < 0 {
		return dimT - 1
	}
	return *c.SnapshotCutoff
}

// GetWorkers returns workers, with 0 (or unset) meaning GOMAXPROCS.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetKernel returns kernel or "scalar".
func (c *RunConfig) GetKernel() string {
	if c.Kernel == nil || *c.Kernel == "" {
		return KernelScalar
	}
	return *c.Kernel
}

// GetProgressEvery returns progress_every or 250.
func (c *RunConfig) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return 250
	}
	return *c.ProgressEvery
}

// GetOutputDir returns output_dir, falling back to the shot file's directory.
func (c *RunConfig) GetOutputDir(shotPath string) string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return filepath.Dir(shotPath)
	}
	return *c.OutputDir
}

// GetDebugGrids returns debug_grids or false.
func (c *RunConfig) GetDebugGrids() bool {
	return c.DebugGrids != nil && *c.DebugGrids
}

// GetRenderPNG returns render_png or false.
func (c *RunConfig) GetRenderPNG() bool {
	return c.RenderPNG != nil && *c.RenderPNG
}

// GetReportDir returns report_dir; empty disables the report.
func (c *RunConfig) GetReportDir() string {
	if c.ReportDir == nil {
		return ""
	}
	return *c.ReportDir
}

// GetCatalogPath returns catalog_path; empty disables the catalog.
func (c *RunConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// Ptr returns a pointer to v, for building overlays.
func Ptr[T any](v T) *T { return &v }
