package inference

import (
	"testing"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/onnxrt"
)

func TestTransposeSwapsMelAndTimeLayout(t *testing.T) {
	m, err := NewTimeMelMatrix([][]float32{
		{1, 2, 3},
		{4, 5, 6},
	})
	if err != nil {
		t.Fatalf("NewTimeMelMatrix: %v", err)
	}
	tensor := Transpose(m)
	if tensor.NumMels != 3 || tensor.NumFrames != 2 {
		t.Fatalf("want mels=3 frames=2, got mels=%d frames=%d", tensor.NumMels, tensor.NumFrames)
	}
	// mel 0: [1, 4]; mel 1: [2, 5]; mel 2: [3, 6]
	want := []float32{1, 4, 2, 5, 3, 6}
	for i, v := range want {
		if tensor.Data[i] != v {
			t.Fatalf("Data[%d] = %v, want %v (full: %v)", i, tensor.Data[i], v, tensor.Data)
		}
	}
}

func TestNewTimeMelMatrixRejectsRaggedRows(t *testing.T) {
	_, err := NewTimeMelMatrix([][]float32{{1, 2}, {1, 2, 3}})
	if err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestPadToZeroPadsTrailingRegion(t *testing.T) {
	m, _ := NewTimeMelMatrix([][]float32{{1}, {2}})
	tensor := Transpose(m) // mels=1, frames=2

	padded, err := PadTo(tensor, 5)
	if err != nil {
		t.Fatalf("PadTo: %v", err)
	}
	if padded.ValidLen != 2 {
		t.Fatalf("want ValidLen 2, got %d", padded.ValidLen)
	}
	if padded.Tensor.NumFrames != 5 {
		t.Fatalf("want 5 frames after padding, got %d", padded.Tensor.NumFrames)
	}
	want := []float32{1, 2, 0, 0, 0}
	for i, v := range want {
		if padded.Tensor.Data[i] != v {
			t.Fatalf("Data[%d] = %v, want %v", i, padded.Tensor.Data[i], v)
		}
	}
}

func TestPadToRefusesTruncation(t *testing.T) {
	m, _ := NewTimeMelMatrix([][]float32{{1}, {2}, {3}})
	tensor := Transpose(m)
	if _, err := PadTo(tensor, 2); err == nil {
		t.Fatal("expected error when real frames exceed target")
	}
}

func TestDriverRunValidatesLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SubsamplingFactor = 4

	session := onnxrt.NewMockSession(nil, nil, func(inputs map[string]onnxrt.Tensor) (map[string]onnxrt.Tensor, error) {
		length := inputs[cfg.LengthInputName].Int64s()[0]
		encodedLen := int((length + 3) / 4)
		logProbs, _ := onnxrt.NewFloat32Tensor([]int64{1, int64(encodedLen), 5}, make([]float32, encodedLen*5))
		encLen, _ := onnxrt.NewInt64Tensor([]int64{1}, []int64{int64(encodedLen)})
		return map[string]onnxrt.Tensor{
			cfg.LogProbsOutput:   logProbs,
			cfg.EncodedLenOutput: encLen,
		}, nil
	})

	driver := New(session, cfg)

	m, _ := NewTimeMelMatrix(make([][]float32, 8))
	for i := range m.Rows {
		m.Rows[i] = []float32{0}
	}
	m.NumMels = 1
	tensor := Transpose(m)
	batch, err := NewPaddedBatch(tensor, tensor.NumFrames)
	if err != nil {
		t.Fatalf("NewPaddedBatch: %v", err)
	}

	out, err := driver.Run(batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.EncodedLen != 2 {
		t.Fatalf("want encoded len 2, got %d", out.EncodedLen)
	}
}

func TestDriverRunRejectsDisagreeingEncodedLength(t *testing.T) {
	cfg := DefaultConfig()
	session := onnxrt.NewMockSession(nil, nil, func(inputs map[string]onnxrt.Tensor) (map[string]onnxrt.Tensor, error) {
		// Deliberately wrong encoded length to trigger the invariant check.
		logProbs, _ := onnxrt.NewFloat32Tensor([]int64{1, 999, 5}, make([]float32, 999*5))
		encLen, _ := onnxrt.NewInt64Tensor([]int64{1}, []int64{999})
		return map[string]onnxrt.Tensor{
			cfg.LogProbsOutput:   logProbs,
			cfg.EncodedLenOutput: encLen,
		}, nil
	})
	driver := New(session, cfg)

	m, _ := NewTimeMelMatrix([][]float32{{0}, {0}, {0}, {0}})
	tensor := Transpose(m)
	batch, _ := NewPaddedBatch(tensor, tensor.NumFrames)

	if _, err := driver.Run(batch); err == nil {
		t.Fatal("expected error when encoded length disagrees with subsampling invariant")
	}
}

func TestDriverRunFixedFrameModeRequiresExactFrameCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = FixedFrame
	cfg.FixedFrames = 125

	driver := New(onnxrt.NewMockSession(nil, nil, nil), cfg)

	m, _ := NewTimeMelMatrix([][]float32{{0}, {0}})
	tensor := Transpose(m)
	batch, _ := NewPaddedBatch(tensor, tensor.NumFrames)

	if _, err := driver.Run(batch); err == nil {
		t.Fatal("expected error for frame count mismatch in fixed-frame mode")
	}
}

func TestCacheAwareDriverThreadsCacheAcrossCalls(t *testing.T) {
	cfg := DefaultConfig()
	cache := DefaultCacheNames()
	cache.LastChannelShape = []int64{1, 1, 2, 3}
	cache.LastTimeShape = []int64{1, 1, 3, 2}

	var seenChannel []float32
	session := onnxrt.NewMockSession(nil, nil, func(inputs map[string]onnxrt.Tensor) (map[string]onnxrt.Tensor, error) {
		seenChannel = inputs[cache.LastChannelInputName].Float32s()
		logProbs, _ := onnxrt.NewFloat32Tensor([]int64{1, 1, 5}, make([]float32, 5))
		encLen, _ := onnxrt.NewInt64Tensor([]int64{1}, []int64{1})
		nextChannel, _ := onnxrt.NewFloat32Tensor(cache.LastChannelShape, []float32{1, 2, 3, 4, 5, 6})
		nextTime, _ := onnxrt.NewFloat32Tensor(cache.LastTimeShape, []float32{1, 2, 3, 4, 5, 6})
		return map[string]onnxrt.Tensor{
			cfg.LogProbsOutput:            logProbs,
			cfg.EncodedLenOutput:          encLen,
			cache.LastChannelOutputName:   nextChannel,
			cache.LastTimeOutputName:      nextTime,
		}, nil
	})

	driver, err := NewCacheAware(session, cfg, cache)
	if err != nil {
		t.Fatalf("NewCacheAware: %v", err)
	}

	m, _ := NewTimeMelMatrix([][]float32{{0}})
	tensor := Transpose(m)
	batch, _ := NewPaddedBatch(tensor, tensor.NumFrames)

	if _, err := driver.Run(batch); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	for _, v := range seenChannel {
		if v != 0 {
			t.Fatalf("first call should see zeroed cache, got %v", seenChannel)
		}
	}

	if _, err := driver.Run(batch); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	for i, v := range want {
		if seenChannel[i] != v {
			t.Fatalf("second call should see previous output as cache input: got %v, want %v", seenChannel, want)
		}
	}
}
