package codec

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodePCM16InterleavedStereoSplit(t *testing.T) {
	// L0 R0 L1 R1 L2 R2
	samples := []int16{100, -100, 200, -200, 300, -300}
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	buf, err := DecodePCM16(data, 2, Options{Interleaved: true})
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	if len(buf.Left) != 3 || len(buf.Right) != 3 {
		t.Fatalf("want 3 samples per channel, got left=%d right=%d", len(buf.Left), len(buf.Right))
	}
	for _, v := range append(append([]float32{}, buf.Left...), buf.Right...) {
		if v < -1 || v > 1 {
			t.Fatalf("normalized sample out of [-1,1] range: %v", v)
		}
	}
	if buf.Left[1] <= 0 || buf.Right[1] >= 0 {
		t.Fatalf("channel split mismatched: left=%v right=%v", buf.Left, buf.Right)
	}
}

func TestDecodePCM16OddByteCountRejected(t *testing.T) {
	_, err := DecodePCM16([]byte{0x01, 0x02, 0x03}, 1, Options{})
	if err == nil {
		t.Fatal("expected error for odd byte count, got nil")
	}
}

func TestDecodePCM16EmptyInput(t *testing.T) {
	buf, err := DecodePCM16(nil, 1, Options{})
	if err != nil {
		t.Fatalf("DecodePCM16 empty: %v", err)
	}
	if len(buf.Left) != 0 {
		t.Fatalf("want empty output, got %d samples", len(buf.Left))
	}
}

func TestChunkValidateSizeDivisibility(t *testing.T) {
	c := Chunk{Data: make([]byte, 5), BitsPerSample: 16, Channels: 2}
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for non-divisible size")
	}

	c.Data = make([]byte, 8)
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestUpsampleLinearDoublesRate(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	out, err := UpsampleLinear(in, 2)
	if err != nil {
		t.Fatalf("UpsampleLinear: %v", err)
	}
	wantLen := (len(in)-1)*2 + 1
	if len(out) != wantLen {
		t.Fatalf("want %d samples, got %d", wantLen, len(out))
	}
	// midpoint between 0 and 1 must be 0.5
	if math.Abs(float64(out[1])-0.5) > 1e-6 {
		t.Fatalf("want midpoint 0.5, got %v", out[1])
	}
	if out[0] != in[0] || out[len(out)-1] != in[len(in)-1] {
		t.Fatal("endpoints must be preserved exactly")
	}
}

func TestResampleRejectsDownsample(t *testing.T) {
	_, err := Resample([]float32{0, 1, 2, 3}, 16000, 8000)
	if err == nil {
		t.Fatal("expected error for downsample request")
	}
}

func TestResample8kTo16k(t *testing.T) {
	in := make([]float32, 10)
	for i := range in {
		in[i] = float32(i)
	}
	out, err := Resample(in, 8000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	wantLen := (len(in)-1)*2 + 1
	if len(out) != wantLen {
		t.Fatalf("want %d samples, got %d", wantLen, len(out))
	}
}

func TestULawRoundTripBoundedError(t *testing.T) {
	in := make([]float32, 256)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) / 10))
	}
	encoded := EncodeULaw(in)
	buf, err := DecodeULaw(encoded, 1, Options{})
	if err != nil {
		t.Fatalf("DecodeULaw: %v", err)
	}
	decoded := buf.Left
	if len(decoded) != len(in) {
		t.Fatalf("round trip length mismatch: want %d got %d", len(in), len(decoded))
	}
	var maxErr float64
	for i := range in {
		e := math.Abs(float64(in[i]) - float64(decoded[i]))
		if e > maxErr {
			maxErr = e
		}
	}
	// mu-law is a lossy 8-bit codec; quantization error should stay well
	// under full scale.
	if maxErr > 0.1 {
		t.Fatalf("mu-law round trip error too large: %v", maxErr)
	}
}

func TestALawRoundTripBoundedError(t *testing.T) {
	in := make([]float32, 256)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) / 10))
	}
	encoded := EncodeALaw(in)
	buf, err := DecodeALaw(encoded, 1, Options{})
	if err != nil {
		t.Fatalf("DecodeALaw: %v", err)
	}
	decoded := buf.Left
	var maxErr float64
	for i := range in {
		e := math.Abs(float64(in[i]) - float64(decoded[i]))
		if e > maxErr {
			maxErr = e
		}
	}
	if maxErr > 0.1 {
		t.Fatalf("A-law round trip error too large: %v", maxErr)
	}
}

func TestDecodeULawOddSizedNonInterleavedRoundsDownSplit(t *testing.T) {
	// 5 mu-law bytes, non-interleaved stereo: the channel split takes
	// len/2 bytes per side, so the 5th byte belongs to neither channel.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	buf, err := DecodeULaw(data, 2, Options{Interleaved: false})
	if err != nil {
		t.Fatalf("DecodeULaw: %v", err)
	}
	if len(buf.Left) != 2 || len(buf.Right) != 2 {
		t.Fatalf("want 2 samples per channel from 5-byte split, got left=%d right=%d", len(buf.Left), len(buf.Right))
	}
}

func TestSplitStereoRoles(t *testing.T) {
	// 2 frames, 16-bit stereo interleaved
	data := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	c := Chunk{Data: data, Channels: 2, BitsPerSample: 16, SampleRate: 8000}
	caller, agent, err := SplitStereoRoles(c, true)
	if err != nil {
		t.Fatalf("SplitStereoRoles: %v", err)
	}
	if caller.ChannelRole != "caller" || agent.ChannelRole != "agent" {
		t.Fatalf("unexpected roles: caller=%s agent=%s", caller.ChannelRole, agent.ChannelRole)
	}
	if len(caller.Data) != 4 || len(agent.Data) != 4 {
		t.Fatalf("want 4 bytes per mono channel, got caller=%d agent=%d", len(caller.Data), len(agent.Data))
	}
	if caller.Channels != 1 || agent.Channels != 1 {
		t.Fatal("split channels must be mono")
	}
}

func TestSplitStereoRolesRejectsNonStereo(t *testing.T) {
	c := Chunk{Data: make([]byte, 4), Channels: 1, BitsPerSample: 16}
	_, _, err := SplitStereoRoles(c, true)
	if err == nil {
		t.Fatal("expected error for mono input")
	}
}

func TestStripWAVHeaderFindsDataChunk(t *testing.T) {
	payload := []byte{0x11, 0x22, 0x33, 0x44}
	wav := buildMinimalWAV(payload)

	out, err := StripWAVHeader(wav)
	if err != nil {
		t.Fatalf("StripWAVHeader: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("want %v, got %v", payload, out)
	}
}

func TestStripWAVHeaderPassesThroughNonWAV(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := StripWAVHeader(raw)
	if err != nil {
		t.Fatalf("StripWAVHeader: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("want passthrough, got %v", out)
	}
}

func buildMinimalWAV(payload []byte) []byte {
	fmtChunk := make([]byte, 24)
	copy(fmtChunk[0:4], "fmt ")
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 16)

	dataChunk := make([]byte, 8+len(payload))
	copy(dataChunk[0:4], "data")
	binary.LittleEndian.PutUint32(dataChunk[4:8], uint32(len(payload)))
	copy(dataChunk[8:], payload)

	body := append(fmtChunk, dataChunk...)
	out := make([]byte, 12+len(body))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(4+len(body)))
	copy(out[8:12], "WAVE")
	copy(out[12:], body)
	return out
}
