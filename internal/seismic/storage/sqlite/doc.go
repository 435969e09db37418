// Package sqlite is the run catalog: one row per migration run and one per
// emitted snapshot, in a SQLite file managed by embedded migrations.
//
// No wavefield data is stored here; snapshot rows only point at the image
// files the sink wrote.
package sqlite
