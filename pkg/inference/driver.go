// Package inference drives the acoustic ONNX graph: it presents
// feature frames in the exact tensor shape/dtype the graph requires,
// retrieves log-probabilities, and tracks the cache tensors a
// cache-aware streaming conformer carries across calls.
package inference

import (
	"fmt"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/onnxrt"
)

// Mode selects how the driver presents the time dimension to the
// graph.
type Mode int

const (
	// FullUtterance passes the real feature count as T; used for
	// offline transcription against a graph with a dynamic time axis.
	FullUtterance Mode = iota
	// FixedFrame pads (or rejects) feature frames up to a static T0,
	// for exported graphs with static shapes.
	FixedFrame
)

// Config describes one acoustic graph's fixed-shape contract (spec
// §4.D): the subsampling factor relating encoder output frames to
// input feature frames, the names of the four core tensors, and,
// for FixedFrame mode, the static time dimension T0.
type Config struct {
	Mode Mode

	SubsamplingFactor int // R: nominal 4 or 8
	FixedFrames       int // T0, only meaningful in FixedFrame mode

	SignalInputName  string // default "processed_signal"
	LengthInputName  string // default "processed_signal_length"
	LogProbsOutput   string // default "logprobs"
	EncodedLenOutput string // default "encoded_lengths"
}

// DefaultConfig returns the canonical tensor names in full-utterance
// mode with subsampling factor 4.
func DefaultConfig() Config {
	return Config{
		Mode:              FullUtterance,
		SubsamplingFactor: 4,
		SignalInputName:   "processed_signal",
		LengthInputName:   "processed_signal_length",
		LogProbsOutput:    "logprobs",
		EncodedLenOutput:  "encoded_lengths",
	}
}

// Output holds one inference call's result: the graph's flat row-major
// [T', vocabSize] log-probability output (vocabSize already includes
// the blank; T' may exceed EncodedLen when the input was padded) and
// the real (unpadded) encoded length, which marks the valid rows.
type Output struct {
	LogProbs    []float32
	EncodedLen  int
	VocabSize   int
}

// Driver wraps an [onnxrt.Session] implementing the acoustic graph's
// fixed tensor contract. It is not safe for concurrent Run calls on the
// same Driver from multiple goroutines — callers serialize access under
// their own session mutex, per spec §5.
type Driver struct {
	session onnxrt.Session
	cfg     Config
}

// New wraps session with cfg. It does not validate the session's probed
// IO info against cfg's tensor names — that check happens lazily on the
// first Run, where a missing name surfaces as a clear error rather than
// failing construction for a session whose IO hasn't been probed yet.
func New(session onnxrt.Session, cfg Config) *Driver {
	return &Driver{session: session, cfg: cfg}
}

// Run presents features (already transposed into [mel, time] layout)
// to the graph and returns the decoded log-probability matrix.
//
// In FullUtterance mode, features.Tensor.NumFrames must equal
// features.ValidLen (no padding expected). In FixedFrame mode,
// features must already be padded to cfg.FixedFrames via [PadTo] —
// Run does not pad on the caller's behalf, since padding is a decision
// the caller (pkg/stt's backend) makes once per chunk, not once per Run
// call.
func (d *Driver) Run(features PaddedBatch) (Output, error) {
	if d.cfg.Mode == FixedFrame && features.Tensor.NumFrames != d.cfg.FixedFrames {
		return Output{}, fmt.Errorf("inference: fixed-frame mode requires %d time frames, got %d", d.cfg.FixedFrames, features.Tensor.NumFrames)
	}

	signalShape := []int64{1, int64(features.Tensor.NumMels), int64(features.Tensor.NumFrames)}
	signalTensor, err := onnxrt.NewFloat32Tensor(signalShape, features.Tensor.Data)
	if err != nil {
		return Output{}, fmt.Errorf("inference: build signal tensor: %w", err)
	}

	lengthTensor, err := onnxrt.NewInt64Tensor([]int64{1}, []int64{int64(features.ValidLen)})
	if err != nil {
		return Output{}, fmt.Errorf("inference: build length tensor: %w", err)
	}

	inputs := map[string]onnxrt.Tensor{
		d.cfg.SignalInputName: signalTensor,
		d.cfg.LengthInputName: lengthTensor,
	}

	outputs, err := d.session.Run(inputs)
	if err != nil {
		return Output{}, fmt.Errorf("inference: run: %w", err)
	}

	logProbsT, ok := outputs[d.cfg.LogProbsOutput]
	if !ok {
		return Output{}, fmt.Errorf("inference: output %q missing from session result", d.cfg.LogProbsOutput)
	}
	encLenT, ok := outputs[d.cfg.EncodedLenOutput]
	if !ok {
		return Output{}, fmt.Errorf("inference: output %q missing from session result", d.cfg.EncodedLenOutput)
	}

	if len(logProbsT.Shape) != 3 {
		return Output{}, fmt.Errorf("inference: logprobs output has %d dims, want 3 ([1, T', V+1])", len(logProbsT.Shape))
	}
	vocabSize := int(logProbsT.Shape[2])

	encLens := encLenT.Int64s()
	if len(encLens) == 0 {
		return Output{}, fmt.Errorf("inference: encoded_lengths output is empty")
	}
	encodedLen := int(encLens[0])

	wantEncodedLen := ceilDiv(features.ValidLen, d.cfg.SubsamplingFactor)
	if encodedLen != wantEncodedLen {
		return Output{}, fmt.Errorf("inference: encoded length %d disagrees with subsampling invariant ceil(%d/%d)=%d; graph and driver configuration have drifted apart",
			encodedLen, features.ValidLen, d.cfg.SubsamplingFactor, wantEncodedLen)
	}

	return Output{
		LogProbs:   logProbsT.Float32s(),
		EncodedLen: encodedLen,
		VocabSize:  vocabSize,
	}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
