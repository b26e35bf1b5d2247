// Package onnxrt defines the minimal tensor-inference contract the
// acoustic core depends on, and provides two implementations: a CGo
// binding to the ONNX Runtime C API (build tag "onnxruntime"), and a
// Mock usable without any native dependency for tests and non-ONNX
// deployments. Any runtime satisfying [Session] is acceptable —
// ONNX Runtime, a WebAssembly build of the same, or a test double.
package onnxrt

import "fmt"

// DType identifies a tensor's element type. The core only ever produces
// and consumes Float32 and Int64 tensors (mel features and audio-length
// scalars in, logits and updated cache tensors out).
type DType int

const (
	Float32 DType = iota
	Int64
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// Tensor is a named, shaped, typed buffer flowing in or out of a
// session Run call. Data is a raw byte view over the tensor's native
// element type; helper accessors interpret it as the concrete type.
type Tensor struct {
	DType DType
	Shape []int64
	Data  []byte
}

// NewFloat32Tensor builds a Tensor from a flat float32 slice and shape,
// validating that the shape's element count matches len(values).
func NewFloat32Tensor(shape []int64, values []float32) (Tensor, error) {
	if want := elementCount(shape); want != int64(len(values)) {
		return Tensor{}, fmt.Errorf("onnxrt: shape %v wants %d elements, got %d", shape, want, len(values))
	}
	data := make([]byte, len(values)*4)
	for i, v := range values {
		putFloat32(data[i*4:], v)
	}
	return Tensor{DType: Float32, Shape: shape, Data: data}, nil
}

// NewInt64Tensor builds a Tensor from a flat int64 slice and shape.
func NewInt64Tensor(shape []int64, values []int64) (Tensor, error) {
	if want := elementCount(shape); want != int64(len(values)) {
		return Tensor{}, fmt.Errorf("onnxrt: shape %v wants %d elements, got %d", shape, want, len(values))
	}
	data := make([]byte, len(values)*8)
	for i, v := range values {
		putInt64(data[i*8:], v)
	}
	return Tensor{DType: Int64, Shape: shape, Data: data}, nil
}

// Float32s interprets Data as a flat float32 slice. It panics if DType
// is not Float32 — callers are expected to know their own graph's
// output dtypes, probed once at initialization.
func (t Tensor) Float32s() []float32 {
	if t.DType != Float32 {
		panic(fmt.Sprintf("onnxrt: Float32s called on %s tensor", t.DType))
	}
	out := make([]float32, len(t.Data)/4)
	for i := range out {
		out[i] = getFloat32(t.Data[i*4:])
	}
	return out
}

// Int64s interprets Data as a flat int64 slice.
func (t Tensor) Int64s() []int64 {
	if t.DType != Int64 {
		panic(fmt.Sprintf("onnxrt: Int64s called on %s tensor", t.DType))
	}
	out := make([]int64, len(t.Data)/8)
	for i := range out {
		out[i] = getInt64(t.Data[i*8:])
	}
	return out
}

func elementCount(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// IOInfo describes one named input or output of a graph, as probed at
// session construction — never hard-coded, per the runtime contract.
type IOInfo struct {
	Name  string
	DType DType
	Shape []int64 // dimensions of size -1 are dynamic
}

// Session is the minimal contract a tensor-inference runtime must
// satisfy: named, shaped inputs/outputs probed from the loaded graph,
// and a synchronous Run call mapping named inputs to named outputs.
//
// Implementations must be safe for concurrent Run calls from different
// goroutines; the core itself serializes access to a session under its
// own per-session mutex, but a Session may be shared across sessions of
// the facade layer (spec §5's "two different session objects usable
// concurrently" requirement ultimately rests on this interface).
type Session interface {
	InputInfo() []IOInfo
	OutputInfo() []IOInfo
	Run(inputs map[string]Tensor) (map[string]Tensor, error)
	Close() error
}

// Env is a process-wide inference runtime environment capable of
// loading sessions from model bytes.
type Env interface {
	NewSession(modelData []byte, numThreads int) (Session, error)
	Close() error
}
