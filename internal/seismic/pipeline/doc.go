// Package pipeline runs one reverse-time migration end to end.
//
// This package is the composition root: it imports the layer packages
// (l1traces, l2depth, l3wave, l4render), the monitor and the run catalog,
// and none of those import pipeline/.
package pipeline
