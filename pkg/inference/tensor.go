package inference

import "fmt"

// TimeMelMatrix is feature data in the layout the extractor naturally
// produces: one row per time step, each row holding NumMels values.
// It is a distinct type from [MelTimeTensor] specifically so the
// compiler, not a runtime shape check, catches the single most common
// bug in this kind of pipeline: feeding [time, mel] data to a graph
// that expects [mel, time].
type TimeMelMatrix struct {
	Rows    [][]float32
	NumMels int
}

// NewTimeMelMatrix wraps rows, validating every row has the same width.
func NewTimeMelMatrix(rows [][]float32) (TimeMelMatrix, error) {
	if len(rows) == 0 {
		return TimeMelMatrix{}, fmt.Errorf("inference: empty feature matrix")
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return TimeMelMatrix{}, fmt.Errorf("inference: row %d has width %d, want %d", i, len(r), width)
		}
	}
	return TimeMelMatrix{Rows: rows, NumMels: width}, nil
}

// NumFrames returns the time dimension.
func (m TimeMelMatrix) NumFrames() int { return len(m.Rows) }

// MelTimeTensor is feature data in the layout the acoustic graph
// requires: [batch=1, mel, time], flattened row-major with mel as the
// outer (slower-varying) dimension. Construct one only via
// [Transpose] — there is deliberately no way to build a MelTimeTensor
// directly from a [][]float32 without going through the transpose step.
type MelTimeTensor struct {
	Data    []float32 // len == NumMels * NumFrames, mel-major
	NumMels int
	NumFrames int
}

// Transpose converts a [time, mel] matrix into the [mel, time] layout
// the ONNX graph's processed_signal input expects. This is the single
// named transpose point in the pipeline — every other component speaks
// TimeMelMatrix.
func Transpose(m TimeMelMatrix) MelTimeTensor {
	t := MelTimeTensor{
		Data:      make([]float32, m.NumMels*len(m.Rows)),
		NumMels:   m.NumMels,
		NumFrames: len(m.Rows),
	}
	for time, row := range m.Rows {
		for mel, v := range row {
			t.Data[mel*t.NumFrames+time] = v
		}
	}
	return t
}

// PaddedBatch pairs tensor data that may include trailing zero-padding
// with the count of real (non-padded) frames: length must always be
// the count of real time frames, enforced at the type level so a
// caller cannot construct processed_signal_length from anything but
// ValidLen, and cannot reach into Data without also seeing how much of
// it is real.
type PaddedBatch struct {
	Tensor   MelTimeTensor
	ValidLen int // number of real (non-padded) time frames, <= Tensor.NumFrames
}

// NewPaddedBatch validates validLen against the tensor's time
// dimension.
func NewPaddedBatch(t MelTimeTensor, validLen int) (PaddedBatch, error) {
	if validLen < 0 || validLen > t.NumFrames {
		return PaddedBatch{}, fmt.Errorf("inference: validLen %d out of range [0, %d]", validLen, t.NumFrames)
	}
	return PaddedBatch{Tensor: t, ValidLen: validLen}, nil
}

// PadTo zero-pads (or validates) tensor t up to exactly targetFrames in
// the time dimension, for fixed-frame-mode graphs whose static shape
// is T0. It refuses — rather than truncating — when t already has more
// frames than targetFrames; callers needing that case must window-slide
// upstream, per spec §4.D.
func PadTo(t MelTimeTensor, targetFrames int) (PaddedBatch, error) {
	if t.NumFrames > targetFrames {
		return PaddedBatch{}, fmt.Errorf("inference: %d real frames exceeds fixed frame size %d; window-slide upstream instead of truncating", t.NumFrames, targetFrames)
	}
	if t.NumFrames == targetFrames {
		return PaddedBatch{Tensor: t, ValidLen: t.NumFrames}, nil
	}

	padded := MelTimeTensor{
		Data:      make([]float32, t.NumMels*targetFrames),
		NumMels:   t.NumMels,
		NumFrames: targetFrames,
	}
	for mel := 0; mel < t.NumMels; mel++ {
		copy(padded.Data[mel*targetFrames:mel*targetFrames+t.NumFrames], t.Data[mel*t.NumFrames:(mel+1)*t.NumFrames])
	}
	return PaddedBatch{Tensor: padded, ValidLen: t.NumFrames}, nil
}
