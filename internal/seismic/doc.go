// Package seismic holds the types shared by every layer of the migration
// pipeline: the dense row-major Grid and the error taxonomy.
//
// Layers:
//
//	l1traces  binary trace ingestion (column-major float32 on disk)
//	l2depth   time-to-depth velocity mapping
//	l3wave    reverse-time finite-difference stepping
//	l4render  snapshot and debug image output
//
// Dependency rule: a layer may depend on this package and on lower layers,
// never on higher ones. The pipeline package is the only place where all
// four are composed.
package seismic
