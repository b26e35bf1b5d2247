//go:build onnxruntime

package onnxrt

// NewDefaultEnv opens the real ONNX Runtime environment. Built only
// with the "onnxruntime" tag, since it links against libonnxruntime.
func NewDefaultEnv(name string) (Env, error) {
	return NewORTEnv(name)
}
