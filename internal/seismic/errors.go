package seismic

import (
	"fmt"
	"strings"
)

// InputError reports a missing, unreadable or truncated input file. The
// caller can retry with corrected inputs.
type InputError struct {
	Path     string
	Expected int64 // bytes the declared dimensions require
	Actual   int64 // bytes available, -1 when the file could not be read at all
	Err      error
}

func (e *InputError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "input %s", e.Path)
	if e.Actual >= 0 {
		fmt.Fprintf(&b, ": expected %d bytes, got %d", e.Expected, e.Actual)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigurationError rejects a parameter before any grid is allocated.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Neighborhood is the stencil input that produced a non-finite cell.
type Neighborhood struct {
	Center   float64 // current[cell]
	Previous float64 // previous[cell]
	Left     float64 // current[cell-1], 0 at the left edge
	Right    float64 // current[cell+1], 0 at the right edge
	Up       float64 // current[cell-width]
	Down     float64 // current[cell+width]
	V2       float64 // squared velocity at the cell
	Next     float64 // the offending result
}

// NumericalInstabilityError is fatal to a run: the explicit scheme has
// diverged, usually because dt is too large for the chosen dx/dz.
type NumericalInstabilityError struct {
	RTime int
	Index int
	Row   int
	Col   int
	Cells Neighborhood
}

func (e *NumericalInstabilityError) Error() string {
	n := e.Cells
	return fmt.Sprintf(
		"numerical instability at rtime=%d cell=%d (row %d, col %d): next=%g center=%g prev=%g left=%g right=%g up=%g down=%g v2=%g",
		e.RTime, e.Index, e.Row, e.Col, n.Next, n.Center, n.Previous, n.Left, n.Right, n.Up, n.Down, n.V2)
}
