package inference

import (
	"fmt"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/onnxrt"
)

// CacheShapes describes the two opaque cache tensors a cache-aware
// streaming conformer carries across calls: cache_last_channel
// [L, 1, C_ch, H] and cache_last_time [L, 1, H, C_t]. These are probed
// from the graph's declared shapes at initialization and treated as
// opaque blobs — the driver never interprets their contents, only
// zeroes them at reset and threads the previous call's output back in
// as the next call's input.
type CacheShapes struct {
	LastChannelShape []int64
	LastTimeShape    []int64

	LastChannelInputName  string
	LastChannelOutputName string
	LastTimeInputName     string
	LastTimeOutputName    string
}

// DefaultCacheNames returns the conventional tensor names for the cache
// pair.
func DefaultCacheNames() CacheShapes {
	return CacheShapes{
		LastChannelInputName:  "cache_last_channel",
		LastChannelOutputName: "cache_last_channel_next",
		LastTimeInputName:     "cache_last_time",
		LastTimeOutputName:    "cache_last_time_next",
	}
}

// CacheAwareDriver is a distinct mode from [Driver]: it additionally
// threads cache_last_channel/cache_last_time tensors through every
// call, which a plain full-utterance or fixed-frame graph has no
// notion of. It is kept as a separate type rather than a flag on Driver
// because the two cache tensors change Run's input/output set and lifecycle
// (reset-to-zero, persist-across-calls) in a way a shared code path
// would only obscure.
type CacheAwareDriver struct {
	session onnxrt.Session
	cfg     Config
	cache   CacheShapes

	lastChannel onnxrt.Tensor
	lastTime    onnxrt.Tensor
}

// NewCacheAware wraps session with cfg and cache, initializing both
// cache tensors to zero per cache.*Shape.
func NewCacheAware(session onnxrt.Session, cfg Config, cache CacheShapes) (*CacheAwareDriver, error) {
	d := &CacheAwareDriver{session: session, cfg: cfg, cache: cache}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset zeroes both cache tensors, matching spec §4.D's
// "initialized to zero at reset" requirement.
func (d *CacheAwareDriver) Reset() error {
	lc, err := zeroTensor(d.cache.LastChannelShape)
	if err != nil {
		return fmt.Errorf("inference: zero cache_last_channel: %w", err)
	}
	lt, err := zeroTensor(d.cache.LastTimeShape)
	if err != nil {
		return fmt.Errorf("inference: zero cache_last_time: %w", err)
	}
	d.lastChannel, d.lastTime = lc, lt
	return nil
}

func zeroTensor(shape []int64) (onnxrt.Tensor, error) {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return onnxrt.NewFloat32Tensor(shape, make([]float32, n))
}

// Run presents features plus the driver's current cache state to the
// graph, then overwrites the cache from the corresponding model
// outputs for the next call.
func (d *CacheAwareDriver) Run(features PaddedBatch) (Output, error) {
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
		d.cfg.SignalInputName:       signalTensor,
		d.cfg.LengthInputName:       lengthTensor,
		d.cache.LastChannelInputName: d.lastChannel,
		d.cache.LastTimeInputName:    d.lastTime,
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
	nextChannel, ok := outputs[d.cache.LastChannelOutputName]
	if !ok {
		return Output{}, fmt.Errorf("inference: output %q missing from session result", d.cache.LastChannelOutputName)
	}
	nextTime, ok := outputs[d.cache.LastTimeOutputName]
	if !ok {
		return Output{}, fmt.Errorf("inference: output %q missing from session result", d.cache.LastTimeOutputName)
	}

	if len(logProbsT.Shape) != 3 {
		return Output{}, fmt.Errorf("inference: logprobs output has %d dims, want 3", len(logProbsT.Shape))
	}
	encLens := encLenT.Int64s()
	if len(encLens) == 0 {
		return Output{}, fmt.Errorf("inference: encoded_lengths output is empty")
	}

	d.lastChannel, d.lastTime = nextChannel, nextTime

	return Output{
		LogProbs:   logProbsT.Float32s(),
		EncodedLen: int(encLens[0]),
		VocabSize:  int(logProbsT.Shape[2]),
	}, nil
}

// Close releases the underlying session.
func (d *CacheAwareDriver) Close() error {
	return d.session.Close()
}
