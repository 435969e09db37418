// Package l3wave owns Layer 3 (Wave) of the migration pipeline.
//
// Responsibilities: propagating the recorded shot backwards in time
// through a squared depth-velocity model with the explicit second-order
// acoustic stencil, detecting numerical blow-up, and emitting wavefield
// snapshots at a fixed reversed-time interval.
// Key types: Stepper, Params, Ring, Kernel, Snapshot.
//
// The time loop is strictly sequential. Within one step the stencil is
// split into row bands; the OpenCL backend is only compiled with the
// opencl build tag.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3wave
