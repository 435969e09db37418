// Package testutil provides shared test helpers and binary trace fixtures.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// EncodeTraces lays out traces the way the loader expects them on disk:
// one trace after another, each a run of native-endian float32 samples.
func EncodeTraces(traces [][]float32) []byte {
	var buf bytes.Buffer
	for _, tr := range traces {
		// bytes.Buffer writes cannot fail.
		_ = binary.Write(&buf, binary.NativeEndian, tr)
	}
	return buf.Bytes()
}

// WriteTraceFile writes traces to path, failing the test on error.
func WriteTraceFile(t testing.TB, path string, traces [][]float32) {
	t.Helper()
	if err := os.WriteFile(path, EncodeTraces(traces), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ConstantTraces returns dimX traces of dimT samples, all equal to v.
func ConstantTraces(dimX, dimT int, v float32) [][]float32 {
	out := make([][]float32, dimX)
	for x := range out {
		out[x] = make([]float32, dimT)
		for t := range out[x] {
			out[x][t] = v
		}
	}
	return out
}

// ImpulseTraces returns zeroed traces with a single sample set at (x, t).
func ImpulseTraces(dimX, dimT, x, t int, amplitude float32) [][]float32 {
	out := ConstantTraces(dimX, dimT, 0)
	out[x][t] = amplitude
	return out
}
