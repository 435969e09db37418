// Command synth-shot writes a synthetic velocity model and shot gather in
// the trace format rtm reads.
//
// The default output is the uniform-velocity, single-impulse pair used for
// smoke runs:
//
//	synth-shot -out /tmp/rtm -dim-x 4 -dim-t 3 -impulse-x 2 -impulse-t 2
//	rtm /tmp/rtm/vel.bin /tmp/rtm/shot.bin 4 3 1 0.001 1 -1
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"path/filepath"

	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/seismic"
	"github.com/banshee-data/rtm/internal/seismic/l1traces"
)

type options struct {
	dimX, dimT    int
	velocity      float64 // top layer, m/s
	layerVelocity float64 // below layerAt; 0 keeps a uniform model
	layerAt       int     // first time sample of the lower layer
	impulseX      int
	impulseT      int
	amplitude     float64
	rickerHz      float64 // 0: single-sample impulse
	dt            float64 // used by the wavelet only
}

func (o options) validate() error {
	switch {
	case o.dimX < 1 || o.dimT < 1:
		return fmt.Errorf("dimensions must be positive, got %dx%d", o.dimX, o.dimT)
	case o.velocity <= 0:
		return fmt.Errorf("velocity must be positive, got %g", o.velocity)
	case o.layerVelocity < 0:
		return fmt.Errorf("layer velocity must not be negative, got %g", o.layerVelocity)
	case o.impulseX < 0 || o.impulseX >= o.dimX:
		return fmt.Errorf("impulse x %d outside [0,%d)", o.impulseX, o.dimX)
	case o.impulseT < 0 || o.impulseT >= o.dimT:
		return fmt.Errorf("impulse t %d outside [0,%d)", o.impulseT, o.dimT)
	case o.rickerHz < 0 || (o.rickerHz > 0 && o.dt <= 0):
		return fmt.Errorf("ricker wavelet needs a positive frequency and dt")
	}
	return nil
}

// velocityModel is uniform, or two layers split at layerAt.
func velocityModel(o options) *seismic.Grid {
	g := seismic.NewGrid(o.dimX, o.dimT)
	g.Fill(o.velocity)
	if o.layerVelocity > 0 && o.layerAt < o.dimT {
		for t := max(o.layerAt, 0); t < o.dimT; t++ {
			row := g.Row(t)
			for x := range row {
				row[x] = o.layerVelocity
			}
		}
	}
	return g
}

// shotGather is zero except along trace impulseX: a single sample, or a
// Ricker wavelet centred on impulseT.
func shotGather(o options) *seismic.Grid {
	g := seismic.NewGrid(o.dimX, o.dimT)
	if o.rickerHz == 0 {
		g.Set(o.impulseT, o.impulseX, o.amplitude)
		return g
	}
	for t := 0; t < o.dimT; t++ {
		g.Set(t, o.impulseX, o.amplitude*ricker(o.rickerHz, float64(t-o.impulseT)*o.dt))
	}
	return g
}

func ricker(f, tau float64) float64 {
	a := math.Pi * math.Pi * f * f * tau * tau
	return (1 - 2*a) * math.Exp(-a)
}

func main() {
	var o options
	out := flag.String("out", ".", "Output directory")
	flag.IntVar(&o.dimX, "dim-x", 4, "Number of traces")
	flag.IntVar(&o.dimT, "dim-t", 3, "Samples per trace")
	flag.Float64Var(&o.velocity, "velocity", 1500, "Velocity in m/s (top layer)")
	flag.Float64Var(&o.layerVelocity, "layer-velocity", 0, "Lower layer velocity in m/s (0: uniform model)")
	flag.IntVar(&o.layerAt, "layer-at", 0, "First time sample of the lower layer")
	flag.IntVar(&o.impulseX, "impulse-x", 2, "Trace carrying the source")
	flag.IntVar(&o.impulseT, "impulse-t", 2, "Time sample of the source peak")
	flag.Float64Var(&o.amplitude, "amplitude", 1, "Source amplitude")
	flag.Float64Var(&o.rickerHz, "ricker", 0, "Ricker peak frequency in Hz (0: single-sample impulse)")
	flag.Float64Var(&o.dt, "dt", 0.001, "Sampling interval for the wavelet")
	flag.Parse()

	if err := o.validate(); err != nil {
		log.Fatalf("invalid options: %v", err)
	}

	fs := fsutil.OSFileSystem{}
	if err := fs.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	for name, g := range map[string]*seismic.Grid{
		"vel.bin":  velocityModel(o),
		"shot.bin": shotGather(o),
	} {
		path := filepath.Join(*out, name)
		if err := l1traces.SaveTraces(fs, path, g); err != nil {
			log.Fatalf("write %s: %v", path, err)
		}
		log.Printf("wrote %s (%dx%d)", path, o.dimX, o.dimT)
	}
}
