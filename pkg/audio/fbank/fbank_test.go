package fbank

import (
	"math"
	"testing"
)

func TestHannWindowIsPeriodic(t *testing.T) {
	w := hannWindow(400)
	if len(w) != 400 {
		t.Fatalf("want 400, got %d", len(w))
	}
	// Periodic Hann: w[0] == 0 exactly (divisor is n, not n-1).
	if w[0] != 0 {
		t.Errorf("w[0] = %v, want 0", w[0])
	}
	if w[len(w)/2] < 0.99 {
		t.Errorf("w[n/2] = %v, want ~1", w[len(w)/2])
	}
}

func TestMelConversionRoundTrip(t *testing.T) {
	mel := hzToMel(1000)
	if math.Abs(mel-999.99) > 1.0 {
		t.Errorf("hzToMel(1000) = %v, want ~999.99", mel)
	}
	hz := melToHz(mel)
	if math.Abs(hz-1000) > 0.1 {
		t.Errorf("melToHz(hzToMel(1000)) = %v, want 1000", hz)
	}
}

func TestMelFilterBankShape(t *testing.T) {
	bank, _ := melFilterBank(80, 512, 16000, 0, 8000)
	if len(bank) != 80 {
		t.Fatalf("want 80 filters, got %d", len(bank))
	}
	halfFFT := 512/2 + 1
	for i, f := range bank {
		if len(f) != halfFFT {
			t.Fatalf("filter %d: want %d bins, got %d", i, halfFFT, len(f))
		}
	}
}

func TestNumFramesSnipEdgesTrue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnipEdges = true
	got := numFrames(16000, cfg.FrameLength, cfg.FrameShift, cfg.SnipEdges)
	want := 1 + (16000-cfg.FrameLength)/cfg.FrameShift
	if got != want {
		t.Errorf("numFrames = %d, want %d", got, want)
	}
}

func TestNumFramesSnipEdgesFalse(t *testing.T) {
	cfg := DefaultConfig()
	got := numFrames(16000, cfg.FrameLength, cfg.FrameShift, cfg.SnipEdges)
	want := (16000+cfg.FrameShift/2-cfg.FrameLength/2)/cfg.FrameShift + 1
	if got != want {
		t.Errorf("numFrames = %d, want %d", got, want)
	}
}

func TestExtractShapeAndFiniteness(t *testing.T) {
	ext, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n := 16000
	pcm := make([]float32, n)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	features := ext.Extract(pcm, nil)
	if len(features) != ext.NumFrames(n) {
		t.Fatalf("want %d frames, got %d", ext.NumFrames(n), len(features))
	}
	if len(features[0]) != 80 {
		t.Fatalf("want 80 mel bins, got %d", len(features[0]))
	}
	for i, row := range features {
		for j, v := range row {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("features[%d][%d] = %v, not finite", i, j, v)
			}
		}
	}
}

func TestExtractAppliesCMVN(t *testing.T) {
	ext, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pcm := make([]float32, 16000)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2*math.Pi*440*float64(i)/16000)) * 0.5
	}

	raw := ext.Extract(pcm, nil)
	mean := make([]float64, 80)
	variance := make([]float64, 80)
	for m := 0; m < 80; m++ {
		var sum float64
		for _, row := range raw {
			sum += float64(row[m])
		}
		mean[m] = sum / float64(len(raw))
		var varSum float64
		for _, row := range raw {
			d := float64(row[m]) - mean[m]
			varSum += d * d
		}
		variance[m] = varSum / float64(len(raw))
	}

	normalized := ext.Extract(pcm, &CmvnStats{Mean: mean, Variance: variance})
	for m := 0; m < 80; m++ {
		var sum float64
		for _, row := range normalized {
			sum += float64(row[m])
		}
		got := sum / float64(len(normalized))
		if math.Abs(got) > 0.05 {
			t.Errorf("mel[%d] normalized mean = %v, want ~0", m, got)
		}
	}
}

func TestExtractTooShortReturnsNilOnSnipEdges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnipEdges = true
	ext, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	features := ext.Extract(make([]float32, 10), nil)
	if features != nil {
		t.Fatalf("want nil for too-short input, got %d frames", len(features))
	}
}

func TestFlatten(t *testing.T) {
	features := [][]float32{{1, 2, 3}, {4, 5, 6}}
	flat := Flatten(features)
	want := []float32{1, 2, 3, 4, 5, 6}
	if len(flat) != len(want) {
		t.Fatalf("want len %d, got %d", len(want), len(flat))
	}
	for i, v := range flat {
		if v != want[i] {
			t.Errorf("flat[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestDegenerateBinsReported(t *testing.T) {
	// An absurdly narrow mel range at a low FFT size collapses several
	// filters to zero width; New must surface that, not hide it.
	ext, err := New(Config{
		SampleRate: 16000, FrameLength: 32, FrameShift: 16,
		FFTSize: 32, NumMelBins: 80, LowFreq: 0, HighFreq: 8000,
		RemoveDCOffset: true, SnipEdges: false,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(ext.DegenerateBins()) == 0 {
		t.Fatal("expected some degenerate bins at fftSize=32 with 80 mel bins")
	}
}
