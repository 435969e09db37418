// Package l4render owns Layer 4 (Render) of the migration pipeline.
//
// Responsibilities: turning float grids into images. Every grid is
// written as a 16-bit plain PGM (P2) after a min/max linear rescale, and
// optionally as a PNG heat map. Sink names the files and keeps them
// inside the output directory.
//
// Dependency rule: L4 may depend on L1-L3 types, but never on the
// pipeline or storage.
package l4render
