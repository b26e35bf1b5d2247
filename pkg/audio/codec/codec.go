// Package codec decodes raw audio bytes — PCM16, PCM8, and G.711
// telephony codecs — into unit-scaled float32 PCM, and performs the
// channel splitting and linear upsampling the streaming pipeline needs
// before features can be extracted.
//
// Every decode function normalizes its output into [-1, 1] unless the
// caller opts out via [Options.SkipNormalize]. Downsampling is
// explicitly unsupported: this package only ever needs to bring
// narrowband telephony audio (8kHz) up to the model's 16kHz input
// rate, never the reverse.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Encoding identifies the wire format of an [Chunk]'s raw bytes.
type Encoding int

const (
	PCM16 Encoding = iota
	PCM8
	ULaw
	ALaw
)

func (e Encoding) String() string {
	switch e {
	case PCM16:
		return "pcm16"
	case PCM8:
		return "pcm8"
	case ULaw:
		return "ulaw"
	case ALaw:
		return "alaw"
	default:
		return "unknown"
	}
}

// Chunk is an immutable bag of raw audio bytes plus the metadata needed
// to interpret them, matching the AudioChunk data model.
type Chunk struct {
	Data          []byte
	Encoding      Encoding
	SampleRate    int
	Channels      int
	BitsPerSample int
	TimestampMS   int64

	// ChannelIndex and ChannelRole optionally identify which leg of a
	// multi-channel telephony capture this chunk is. ChannelIndex is -1
	// for mono or already-mixed audio.
	ChannelIndex int
	ChannelRole  string
}

// Validate checks the size-divisibility invariant: size_bytes must be
// divisible by (bits_per_sample/8) * channels.
func (c Chunk) Validate() error {
	if c.BitsPerSample <= 0 || c.BitsPerSample%8 != 0 {
		return fmt.Errorf("codec: invalid bits per sample %d", c.BitsPerSample)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("codec: invalid channel count %d", c.Channels)
	}
	frameBytes := (c.BitsPerSample / 8) * c.Channels
	if len(c.Data)%frameBytes != 0 {
		return fmt.Errorf("codec: size %d not divisible by frame size %d", len(c.Data), frameBytes)
	}
	return nil
}

// Options controls decode behavior common to all formats.
type Options struct {
	// Interleaved indicates multi-channel data is interleaved
	// sample-by-sample (LRLRLR...). When false, the first half of the
	// input is channel 0 and the second half is channel 1.
	Interleaved bool

	// SkipNormalize leaves samples in their native integer range rather
	// than scaling to [-1, 1]. Default (false) normalizes.
	SkipNormalize bool
}

// ChannelBuffers holds decoded, normalized float32 samples per channel.
// Mono input produces a single-element Left-only buffer with Right nil.
type ChannelBuffers struct {
	Left  []float32
	Right []float32
}

// ErrUnsupportedOperation is returned for operations this package
// deliberately declines to implement, such as downsampling.
var ErrUnsupportedOperation = errors.New("codec: unsupported operation")

// DecodePCM16 interprets bytes as little-endian int16 and splits
// interleaved or non-interleaved stereo into Left/Right. An odd byte
// count is an InvalidArgument-class error.
func DecodePCM16(data []byte, channels int, opts Options) (ChannelBuffers, error) {
	if len(data)%2 != 0 {
		return ChannelBuffers{}, fmt.Errorf("codec: pcm16 requires even byte count, got %d", len(data))
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return splitAndNormalizeInt16(samples, channels, opts)
}

// DecodePCM8 interprets bytes as unsigned-8 PCM offset by 128 and splits
// channels per opts.
func DecodePCM8(data []byte, channels int, opts Options) (ChannelBuffers, error) {
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = int16(b) - 128
	}
	return splitAndNormalizeInt16(samples, channels, opts, withScale(128))
}

type splitConfig struct {
	scale float32
}

func withScale(s float32) func(*splitConfig) {
	return func(c *splitConfig) { c.scale = s }
}

// splitAndNormalizeInt16 splits a flat int16 sample stream into
// per-channel float32 buffers, normalizing by the given scale (default
// 32768 for 16-bit full scale).
func splitAndNormalizeInt16(samples []int16, channels int, opts Options, mods ...func(*splitConfig)) (ChannelBuffers, error) {
	cfg := splitConfig{scale: 32768}
	for _, m := range mods {
		m(&cfg)
	}

	if len(samples) == 0 {
		return ChannelBuffers{}, nil
	}

	if channels <= 1 {
		return ChannelBuffers{Left: normalize(samples, cfg.scale, opts.SkipNormalize)}, nil
	}
	if channels != 2 {
		return ChannelBuffers{}, fmt.Errorf("codec: unsupported channel count %d", channels)
	}

	var left, right []int16
	if opts.Interleaved {
		if len(samples)%2 != 0 {
			return ChannelBuffers{}, fmt.Errorf("codec: interleaved stereo requires even sample count, got %d", len(samples))
		}
		n := len(samples) / 2
		left = make([]int16, n)
		right = make([]int16, n)
		for i := 0; i < n; i++ {
			left[i] = samples[i*2]
			right[i] = samples[i*2+1]
		}
	} else {
		half := len(samples) / 2
		left = samples[:half]
		right = samples[half : half*2]
	}

	return ChannelBuffers{
		Left:  normalize(left, cfg.scale, opts.SkipNormalize),
		Right: normalize(right, cfg.scale, opts.SkipNormalize),
	}, nil
}

func normalize(samples []int16, scale float32, skip bool) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		if skip {
			out[i] = float32(s)
		} else {
			out[i] = float32(s) / scale
		}
	}
	return out
}

// UpsampleLinear performs linear interpolation to raise the sample rate
// by the given integer factor. factor must be >= 1; factor == 1 is the
// identity. Downsampling is explicitly out of scope — callers that need
// factor < 1 get ErrUnsupportedOperation.
func UpsampleLinear(samples []float32, factor int) ([]float32, error) {
	if factor < 1 {
		return nil, fmt.Errorf("codec: upsample factor must be >= 1, got %d: %w", factor, ErrUnsupportedOperation)
	}
	if factor == 1 || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	n := len(samples)
	out := make([]float32, (n-1)*factor+1)
	for i := 0; i < n-1; i++ {
		a, b := samples[i], samples[i+1]
		base := i * factor
		for k := 0; k < factor; k++ {
			t := float32(k) / float32(factor)
			out[base+k] = a + (b-a)*t
		}
	}
	out[len(out)-1] = samples[n-1]
	return out, nil
}

// Resample dispatches to UpsampleLinear when toHz > fromHz. Downsampling
// (toHz < fromHz) is rejected with ErrUnsupportedOperation, matching the
// spec's narrowed scope: this pipeline only ever upsamples telephony
// audio into the model's 16kHz input rate.
func Resample(samples []float32, fromHz, toHz int) ([]float32, error) {
	if fromHz <= 0 || toHz <= 0 {
		return nil, fmt.Errorf("codec: invalid sample rate fromHz=%d toHz=%d", fromHz, toHz)
	}
	if toHz == fromHz {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}
	if toHz < fromHz {
		return nil, fmt.Errorf("codec: downsampling %d->%d not supported: %w", fromHz, toHz, ErrUnsupportedOperation)
	}
	if toHz%fromHz != 0 {
		return nil, fmt.Errorf("codec: non-integer upsample ratio %d->%d not supported: %w", fromHz, toHz, ErrUnsupportedOperation)
	}
	return UpsampleLinear(samples, toHz/fromHz)
}

// SplitStereoRoles splits a two-channel Chunk into caller/agent mono
// chunks, tagging ChannelRole on each. callerFirst selects whether
// channel 0 is the "caller" (true) or the "agent" (false) — telephony
// capture convention varies by PBX vendor.
func SplitStereoRoles(c Chunk, callerFirst bool) (caller, agent Chunk, err error) {
	if c.Channels != 2 {
		return Chunk{}, Chunk{}, fmt.Errorf("codec: SplitStereoRoles requires 2 channels, got %d", c.Channels)
	}
	if err := c.Validate(); err != nil {
		return Chunk{}, Chunk{}, err
	}

	bytesPerSample := c.BitsPerSample / 8
	frameBytes := bytesPerSample * 2
	numFrames := len(c.Data) / frameBytes

	ch0 := make([]byte, numFrames*bytesPerSample)
	ch1 := make([]byte, numFrames*bytesPerSample)
	for i := 0; i < numFrames; i++ {
		off := i * frameBytes
		copy(ch0[i*bytesPerSample:], c.Data[off:off+bytesPerSample])
		copy(ch1[i*bytesPerSample:], c.Data[off+bytesPerSample:off+frameBytes])
	}

	base := c
	base.Channels = 1
	callerData, agentData := ch0, ch1
	callerIndex, agentIndex := 0, 1
	if !callerFirst {
		callerData, agentData = ch1, ch0
		callerIndex, agentIndex = 1, 0
	}

	caller = base
	caller.Data = callerData
	caller.ChannelIndex = callerIndex
	caller.ChannelRole = "caller"

	agent = base
	agent.Data = agentData
	agent.ChannelIndex = agentIndex
	agent.ChannelRole = "agent"
	return caller, agent, nil
}

// StripWAVHeader returns the raw PCM payload of a WAV file, or the input
// unchanged if it does not look like a WAV container. Only the "data"
// subchunk is extracted; other subchunks (fmt, LIST, ...) are skipped.
func StripWAVHeader(data []byte) ([]byte, error) {
	if len(data) < 12 {
		return data, nil
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data, nil
	}

	i := 12
	for i+8 <= len(data) {
		id := string(data[i : i+4])
		size := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		next := i + 8 + size
		if id == "data" {
			if next > len(data) {
				return nil, fmt.Errorf("codec: wav data chunk exceeds buffer length")
			}
			return data[i+8 : next], nil
		}
		if size%2 != 0 {
			next++
		}
		if next > len(data) {
			break
		}
		i = next
	}
	return nil, fmt.Errorf("codec: wav data chunk not found")
}
