package l3wave

import "math"

// CourantNumber is vmax·dt·sqrt(1/dx² + 1/dz²). The explicit scheme is
// only guaranteed stable while it stays at or below 1.
func CourantNumber(vmax, dt, dx, dz float64) float64 {
	return vmax * dt * math.Sqrt(1/(dx*dx)+1/(dz*dz))
}
