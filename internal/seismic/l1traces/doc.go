// Package l1traces owns Layer 1 (Traces) of the migration pipeline.
//
// Responsibilities: reading flat binary trace files (dim_x traces of
// dim_t native-endian float32 samples, trace after trace) and transposing
// them into a row-major seismic.Grid indexed [t][x]; writing grids back in
// the same layout.
//
// Dependency rule: L1 depends only on the seismic root package and fsutil.
package l1traces
