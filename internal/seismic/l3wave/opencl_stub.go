//go:build !opencl

package l3wave

import (
	"errors"

	"github.com/banshee-data/rtm/internal/seismic"
)

// ErrOpenCLUnavailable is returned by NewKernel when the binary was built
// without the opencl tag.
var ErrOpenCLUnavailable = errors.New("OpenCL support is not enabled; rebuild with -tags opencl")

func newOpenCLKernel(_ *seismic.Grid, _ Coefficients) (Kernel, error) {
	return nil, ErrOpenCLUnavailable
}
