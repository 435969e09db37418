package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtm/internal/fsutil"
	"github.com/banshee-data/rtm/internal/seismic/l1traces"
)

func defaults() options {
	return options{dimX: 4, dimT: 3, velocity: 1500, impulseX: 2, impulseT: 2, amplitude: 1, dt: 0.001}
}

func TestShotGather_Impulse(t *testing.T) {
	g := shotGather(defaults())
	for tt := 0; tt < g.Height; tt++ {
		for x := 0; x < g.Width; x++ {
			want := 0.0
			if tt == 2 && x == 2 {
				want = 1
			}
			assert.Equal(t, want, g.At(tt, x), "t=%d x=%d", tt, x)
		}
	}
}

func TestShotGather_Ricker(t *testing.T) {
	o := defaults()
	o.dimT = 101
	o.impulseT = 50
	o.rickerHz = 25
	g := shotGather(o)

	assert.Equal(t, 1.0, g.At(50, 2), "peak at the centre")
	assert.InDelta(t, g.At(40, 2), g.At(60, 2), 1e-12, "symmetric")
	assert.Less(t, g.At(55, 2), 1.0)
	assert.Zero(t, g.At(50, 1))
}

func TestRicker(t *testing.T) {
	assert.Equal(t, 1.0, ricker(25, 0))
	// Zero crossing at tau = 1/(pi f sqrt 2).
	assert.InDelta(t, 0, ricker(25, 1/(math.Pi*25*math.Sqrt2)), 1e-12)
}

func TestVelocityModel_Layers(t *testing.T) {
	o := defaults()
	o.dimT = 5
	o.layerVelocity = 3000
	o.layerAt = 3
	g := velocityModel(o)
	for x := 0; x < o.dimX; x++ {
		assert.Equal(t, 1500.0, g.At(2, x))
		assert.Equal(t, 3000.0, g.At(3, x))
		assert.Equal(t, 3000.0, g.At(4, x))
	}
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, defaults().validate())

	bad := []func(*options){
		func(o *options) { o.dimX = 0 },
		func(o *options) { o.velocity = 0 },
		func(o *options) { o.layerVelocity = -1 },
		func(o *options) { o.impulseX = 4 },
		func(o *options) { o.impulseT = -1 },
		func(o *options) { o.rickerHz = 10; o.dt = 0 },
	}
	for i, mutate := range bad {
		o := defaults()
		mutate(&o)
		assert.Error(t, o.validate(), "case %d", i)
	}
}

func TestRoundTripThroughLoader(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	o := defaults()
	require.NoError(t, l1traces.SaveTraces(mfs, "shot.bin", shotGather(o)))

	g, stats, err := l1traces.NewLoader(mfs).Load("shot.bin", o.dimX, o.dimT)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.At(2, 2))
	assert.Equal(t, 1.0, stats.Max)
}
