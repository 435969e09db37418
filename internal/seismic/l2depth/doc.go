// Package l2depth owns Layer 2 (Depth) of the migration pipeline.
//
// Responsibilities: converting a time-indexed interval-velocity model into
// a depth-indexed one. Each column is integrated into cumulative one-way
// travel distance, a uniform depth axis is chosen from the fastest
// velocity, and every depth cell is filled by linear interpolation between
// the bracketing time samples (flat continuation past the bottom).
//
// The output grid carries dim_t rows of padding above the surface row and
// dim_t rows below the deepest meaningful depth so the wave stepper's
// stencil never reads outside the grid.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2depth
