//go:build opencl

package l3wave

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/banshee-data/rtm/internal/seismic"
)

const stencilKernelSource = `#pragma OPENCL EXTENSION cl_khr_fp64 : enable
__kernel void rtm_step(
    const int width,
    const int height,
    const double cx,
    const double cz,
    __global const double* v2,
    __global const double* prev,
    __global const double* curr,
    __global double* next_buffer)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    if (y <= 0 || y >= height - 1) {
        return;
    }
    double center = curr[idx];
    double left = x > 0 ? curr[idx - 1] : 0.0;
    double right = x < width - 1 ? curr[idx + 1] : 0.0;
    double lap = cx * (right - 2.0 * center + left) +
                 cz * (curr[idx - width] - 2.0 * center + curr[idx + width]);
    next_buffer[idx] = 2.0 * center - prev[idx] + v2[idx] * lap;
}`

// openCLKernel runs the stencil on the first GPU (or CPU) device found.
// Host buffers remain the source of truth: each step uploads previous and
// current and reads back the interior rows of next.
type openCLKernel struct {
	context    *cl.Context
	queue      *cl.CommandQueue
	program    *cl.Program
	kernel     *cl.Kernel
	v2Buf      *cl.MemObject
	prevBuf    *cl.MemObject
	currBuf    *cl.MemObject
	nextBuf    *cl.MemObject
	width      int
	height     int
	deviceName string
}

func newOpenCLKernel(v2 *seismic.Grid, c Coefficients) (Kernel, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available")
	}
	device := pickDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = pickDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	k := &openCLKernel{width: v2.Width, height: v2.Height, deviceName: device.Name()}
	if err := k.init(device, v2, c); err != nil {
		k.Close()
		return nil, err
	}
	diagf("opencl kernel on %s, %dx%d cells", k.deviceName, k.width, k.height)
	return k, nil
}

func pickDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func (k *openCLKernel) init(device *cl.Device, v2 *seismic.Grid, c Coefficients) error {
	var err error
	if k.context, err = cl.CreateContext([]*cl.Device{device}); err != nil {
		return fmt.Errorf("creating OpenCL context: %w", err)
	}
	if k.queue, err = k.context.CreateCommandQueue(device, 0); err != nil {
		return fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	if k.program, err = k.context.CreateProgramWithSource([]string{stencilKernelSource}); err != nil {
		return fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err = k.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		if buildErr, ok := err.(cl.BuildError); ok {
			return fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return fmt.Errorf("building OpenCL program: %w", err)
	}
	if k.kernel, err = k.program.CreateKernel("rtm_step"); err != nil {
		return fmt.Errorf("creating OpenCL kernel: %w", err)
	}

	byteSize := len(v2.Data) * int(unsafe.Sizeof(float64(0)))
	if k.v2Buf, err = k.context.CreateEmptyBuffer(cl.MemReadOnly, byteSize); err != nil {
		return fmt.Errorf("allocating velocity buffer: %w", err)
	}
	if k.prevBuf, err = k.context.CreateEmptyBuffer(cl.MemReadOnly, byteSize); err != nil {
		return fmt.Errorf("allocating previous buffer: %w", err)
	}
	if k.currBuf, err = k.context.CreateEmptyBuffer(cl.MemReadOnly, byteSize); err != nil {
		return fmt.Errorf("allocating current buffer: %w", err)
	}
	if k.nextBuf, err = k.context.CreateEmptyBuffer(cl.MemWriteOnly, byteSize); err != nil {
		return fmt.Errorf("allocating next buffer: %w", err)
	}
	if _, err = k.queue.EnqueueWriteBuffer(k.v2Buf, true, 0, byteSize, unsafe.Pointer(&v2.Data[0]), nil); err != nil {
		return fmt.Errorf("writing velocity buffer: %w", err)
	}

	cx, cz := c.CX, c.CZ
	if err = k.kernel.SetArgInt32(0, int32(k.width)); err != nil {
		return fmt.Errorf("setting width: %w", err)
	}
	if err = k.kernel.SetArgInt32(1, int32(k.height)); err != nil {
		return fmt.Errorf("setting height: %w", err)
	}
	if err = k.kernel.SetArgUnsafe(2, int(unsafe.Sizeof(cx)), unsafe.Pointer(&cx)); err != nil {
		return fmt.Errorf("setting cx: %w", err)
	}
	if err = k.kernel.SetArgUnsafe(3, int(unsafe.Sizeof(cz)), unsafe.Pointer(&cz)); err != nil {
		return fmt.Errorf("setting cz: %w", err)
	}
	for i, buf := range []*cl.MemObject{k.v2Buf, k.prevBuf, k.currBuf, k.nextBuf} {
		if err = k.kernel.SetArgBuffer(4+i, buf); err != nil {
			return fmt.Errorf("binding buffer %d: %w", 4+i, err)
		}
	}
	return nil
}

func (k *openCLKernel) Name() string { return BackendOpenCL }

// DeviceName reports the device the kernel was built for.
func (k *openCLKernel) DeviceName() string { return k.deviceName }

// Step implements Kernel.
func (k *openCLKernel) Step(ctx context.Context, f Frame) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	n := k.width * k.height
	if len(f.Previous) != n || len(f.Current) != n || len(f.Next) != n {
		return -1, fmt.Errorf("frame buffers must hold %d cells", n)
	}
	if k.height < 3 {
		return -1, nil
	}
	cell := int(unsafe.Sizeof(float64(0)))
	byteSize := n * cell
	if _, err := k.queue.EnqueueWriteBuffer(k.prevBuf, false, 0, byteSize, unsafe.Pointer(&f.Previous[0]), nil); err != nil {
		return -1, fmt.Errorf("writing previous buffer: %w", err)
	}
	if _, err := k.queue.EnqueueWriteBuffer(k.currBuf, false, 0, byteSize, unsafe.Pointer(&f.Current[0]), nil); err != nil {
		return -1, fmt.Errorf("writing current buffer: %w", err)
	}
	if _, err := k.queue.EnqueueNDRangeKernel(k.kernel, nil, []int{n}, nil, nil); err != nil {
		return -1, fmt.Errorf("enqueueing kernel: %w", err)
	}
	// Rows 0 and height-1 are never written on the device.
	offset := k.width * cell
	interior := (k.height - 2) * k.width * cell
	if _, err := k.queue.EnqueueReadBuffer(k.nextBuf, true, offset, interior, unsafe.Pointer(&f.Next[k.width]), nil); err != nil {
		return -1, fmt.Errorf("reading next buffer: %w", err)
	}
	return firstNonFinite(f.Next, k.width, k.height), nil
}

// firstNonFinite scans rows [1, h-1) of buf.
func firstNonFinite(buf []float64, w, h int) int {
	for i := w; i < (h-1)*w; i++ {
		if v := buf[i]; math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// Close releases every OpenCL object in reverse order of creation.
func (k *openCLKernel) Close() error {
	for _, buf := range []**cl.MemObject{&k.nextBuf, &k.currBuf, &k.prevBuf, &k.v2Buf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	if k.kernel != nil {
		k.kernel.Release()
		k.kernel = nil
	}
	if k.program != nil {
		k.program.Release()
		k.program = nil
	}
	if k.queue != nil {
		k.queue.Release()
		k.queue = nil
	}
	if k.context != nil {
		k.context.Release()
		k.context = nil
	}
	return nil
}
