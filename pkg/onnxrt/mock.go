package onnxrt

import "fmt"

// MockEnv is an [Env] that hands out [MockSession]s without touching any
// native inference library. It exists for tests and for the acoustic
// core's own facade tests, which need a runtime that behaves like an
// ONNX graph without requiring ONNX Runtime to be installed.
type MockEnv struct {
	// NewSessionFunc, if set, is called by NewSession instead of
	// constructing a default echo-shaped session. Tests use this to
	// inject graphs with specific IO shapes (e.g. cache-aware conformer
	// cache tensors).
	NewSessionFunc func(modelData []byte, numThreads int) (Session, error)
}

func (e *MockEnv) NewSession(modelData []byte, numThreads int) (Session, error) {
	if e.NewSessionFunc != nil {
		return e.NewSessionFunc(modelData, numThreads)
	}
	return nil, fmt.Errorf("onnxrt: MockEnv has no NewSessionFunc configured")
}

func (e *MockEnv) Close() error { return nil }

// MockSession is a [Session] whose Run behavior is entirely supplied by
// the caller via RunFunc, with InputInfo/OutputInfo fixed at
// construction. It lets tests exercise the inference driver and the
// CTC decoder against known logits without a real model file.
type MockSession struct {
	Inputs  []IOInfo
	Outputs []IOInfo
	RunFunc func(inputs map[string]Tensor) (map[string]Tensor, error)

	closed bool
}

func NewMockSession(inputs, outputs []IOInfo, runFunc func(map[string]Tensor) (map[string]Tensor, error)) *MockSession {
	return &MockSession{Inputs: inputs, Outputs: outputs, RunFunc: runFunc}
}

func (s *MockSession) InputInfo() []IOInfo  { return s.Inputs }
func (s *MockSession) OutputInfo() []IOInfo { return s.Outputs }

func (s *MockSession) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	if s.closed {
		return nil, fmt.Errorf("onnxrt: Run called on closed session")
	}
	if s.RunFunc == nil {
		return nil, fmt.Errorf("onnxrt: MockSession has no RunFunc configured")
	}
	return s.RunFunc(inputs)
}

func (s *MockSession) Close() error {
	s.closed = true
	return nil
}
