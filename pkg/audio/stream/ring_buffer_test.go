package stream

import "testing"

func TestNewRingBufferRejectsOverlapGEChunk(t *testing.T) {
	if _, err := NewRingBuffer(1000, 100, 100); err == nil {
		t.Fatal("expected error when overlap == chunk size")
	}
	if _, err := NewRingBuffer(1000, 100, 150); err == nil {
		t.Fatal("expected error when overlap > chunk size")
	}
}

func TestAppendDropsExcessWithoutBlocking(t *testing.T) {
	rb, err := NewRingBuffer(10, 5, 2)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	data := make([]float32, 15)
	for i := range data {
		data[i] = float32(i)
	}
	written := rb.Append(data)
	if written != 10 {
		t.Fatalf("want 10 written (capacity), got %d", written)
	}
	if rb.Available() != 10 {
		t.Fatalf("want 10 available, got %d", rb.Available())
	}
}

func TestHasChunkAndNextChunkAdvanceByChunkMinusOverlap(t *testing.T) {
	rb, err := NewRingBuffer(100, 10, 3)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	data := make([]float32, 10)
	for i := range data {
		data[i] = float32(i)
	}
	rb.Append(data)

	if !rb.HasChunk() {
		t.Fatal("expected HasChunk true")
	}
	out, ok := rb.NextChunk(nil)
	if !ok {
		t.Fatal("expected NextChunk to succeed")
	}
	if len(out) != 10 {
		t.Fatalf("want chunk len 10, got %d", len(out))
	}
	for i, v := range out {
		if v != float32(i) {
			t.Fatalf("out[%d] = %v, want %v", i, v, float32(i))
		}
	}

	// Retained overlap of 3 samples; need 7 more to fill a second chunk.
	if rb.Available() != 3 {
		t.Fatalf("want 3 samples retained as overlap, got %d", rb.Available())
	}
	if rb.HasChunk() {
		t.Fatal("expected HasChunk false with only overlap remaining")
	}
}

func TestNextChunkFalseWhenInsufficientData(t *testing.T) {
	rb, err := NewRingBuffer(100, 10, 3)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	rb.Append(make([]float32, 5))
	if _, ok := rb.NextChunk(nil); ok {
		t.Fatal("expected NextChunk to fail with insufficient data")
	}
}

func TestDrainEmptiesBuffer(t *testing.T) {
	rb, err := NewRingBuffer(100, 10, 3)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	rb.Append([]float32{1, 2, 3, 4})
	out := rb.Drain(nil)
	if len(out) != 4 {
		t.Fatalf("want 4 drained samples, got %d", len(out))
	}
	if rb.Available() != 0 {
		t.Fatalf("want buffer empty after drain, got %d available", rb.Available())
	}
}

func TestClearResetsWithoutFreeingBackingArray(t *testing.T) {
	rb, err := NewRingBuffer(100, 10, 3)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	rb.Append([]float32{1, 2, 3})
	rb.Clear()
	if rb.Available() != 0 {
		t.Fatalf("want 0 available after Clear, got %d", rb.Available())
	}
	if rb.HasChunk() {
		t.Fatal("expected HasChunk false after Clear")
	}
}

func TestRingBufferWrapsAroundCapacity(t *testing.T) {
	rb, err := NewRingBuffer(10, 4, 1)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	for round := 0; round < 5; round++ {
		rb.Append([]float32{float32(round)*10 + 1, float32(round)*10 + 2, float32(round)*10 + 3})
		for rb.HasChunk() {
			if _, ok := rb.NextChunk(nil); !ok {
				t.Fatal("HasChunk true but NextChunk failed")
			}
		}
	}
}
