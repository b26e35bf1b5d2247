package stt

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/audio/codec"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/audio/fbank"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/audio/stream"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/ctcdecode"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/inference"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/onnxrt"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/vocab"
)

// canonicalCapabilities is the fixed capability set spec §6.1 names for
// the FastConformer-CTC backend.
func canonicalCapabilities() Capabilities {
	return Capabilities{
		SupportsStreaming:     true,
		SupportsWordTimings:   false,
		SupportsSpeakerLabels: false,
		SupportsCustomModels:  false,
		SupportedLanguages:    []string{"en-US", "en-GB", "en-IN", "en-AU"},
		SupportedEncodings:    []Encoding{EncodingPCM16},
		MinSampleRate:         16000,
		MaxSampleRate:         16000,
		MaxChannels:           1,
		Features:              map[string]string{"backend": "fastconformer-ctc"},
	}
}

// runner is the subset of inference.Driver/inference.CacheAwareDriver
// the facade needs — satisfied by both, so the facade doesn't care
// which operational variant initialize selected.
type runner interface {
	Run(inference.PaddedBatch) (inference.Output, error)
}

// streamSampleRate/streamingWindowSeconds size the PCM-level ring
// buffer (spec §4.C): a 2-second analysis window with overlap equal to
// frame_length - frame_shift, so framing stays continuous across chunk
// boundaries regardless of how the caller cuts their audio.
const (
	streamSampleRate       = 16000
	streamingWindowSeconds = 2
)

// FastConformerBackend implements [Backend] for the canonical
// FastConformer-CTC acoustic model, wiring together pkg/audio/codec,
// pkg/audio/fbank, pkg/audio/stream, pkg/inference, pkg/ctcdecode, and
// pkg/vocab behind the uniform streaming interface spec §4.F defines.
//
// Initialize is fatal on failure; every other call recovers locally
// per spec §7 — the session stays usable after an input-validation or
// inference error.
type FastConformerBackend struct {
	mu sync.Mutex

	env    onnxrt.Env
	logger *slog.Logger

	session onnxrt.Session
	driver  runner
	// cacheDriver is non-nil only when the graph probed as cache-aware
	// conformer at initialize; it's the same object as driver, kept
	// separately so Reset can call its distinct Reset method.
	cacheDriver *inference.CacheAwareDriver

	extractor *fbank.Extractor
	cmvn      *fbank.CmvnStats
	vocabulary *vocab.Vocabulary
	blankID   int

	ring        *stream.RingBuffer
	frameLength int
	frameShift  int
	mode        inference.Mode
	fixedFrames int

	initialized bool
	caps        Capabilities
	sessionID   string

	// activeChannelRole selects which leg of an un-split two-channel
	// telephony chunk this backend transcribes ("caller" or "agent");
	// the other leg is dropped rather than averaged in, since averaging
	// two different speakers' audio together produces features neither
	// speaker's acoustic model was trained on. Chunks the caller has
	// already split (Channels==1, ChannelIndex set) bypass this
	// entirely and are transcribed as given.
	activeChannelRole string
	lastChannelIndex  int
	lastChannelRole   string

	accumulatedText string
	confidenceSum   float64
	confidenceCount int
	chunkIndex      int
}

// NewFastConformerBackend constructs an uninitialized backend bound to
// env (the ONNX Runtime environment used to load the model at
// Initialize) and logger (structured diagnostics; spec §9 requires all
// observability flow through an injected logger, never stdio). Passing
// a *onnxrt.MockEnv lets tests exercise the full pipeline without a
// real model file.
func NewFastConformerBackend(env onnxrt.Env, logger *slog.Logger) *FastConformerBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &FastConformerBackend{env: env, logger: logger}
}

func (b *FastConformerBackend) Initialize(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	modelPath := cfg.String("modelPath", "")
	vocabPath := cfg.String("vocabPath", "")
	if modelPath == "" {
		return fmt.Errorf("stt: missing required config key %q", "modelPath")
	}
	if vocabPath == "" {
		return fmt.Errorf("stt: missing required config key %q", "vocabPath")
	}

	cmvnFile := cfg.String("cmvnFile", "none")
	numThreads := cfg.Int("numThreads", 4)
	blankID := cfg.Int("blankId", 1024)
	channelRole := cfg.String("channelRole", "caller")
	if channelRole != "caller" && channelRole != "agent" {
		channelRole = "caller"
	}

	vocabulary, err := vocab.Load(vocabPath)
	if err != nil {
		return fmt.Errorf("stt: load vocabulary: %w", err)
	}

	var cmvn *fbank.CmvnStats
	if cmvnFile != "none" && cmvnFile != "" {
		stats, err := vocab.LoadCmvn(cmvnFile)
		if err != nil {
			return fmt.Errorf("stt: load cmvn stats: %w", err)
		}
		cmvn = &fbank.CmvnStats{Mean: stats.Mean, Variance: stats.Variance}
	}

	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return fmt.Errorf("stt: read model file: %w", err)
	}

	session, err := b.env.NewSession(modelData, numThreads)
	if err != nil {
		return fmt.Errorf("stt: load onnx session: %w", err)
	}

	driverCfg := inference.DefaultConfig()
	mode, fixedFrames, cacheShapes := probeGraph(session)
	driverCfg.Mode = mode
	driverCfg.FixedFrames = fixedFrames

	var cacheDriver *inference.CacheAwareDriver
	var r runner
	if cacheShapes != nil {
		cacheDriver, err = inference.NewCacheAware(session, driverCfg, *cacheShapes)
		if err != nil {
			return fmt.Errorf("stt: initialize cache-aware driver: %w", err)
		}
		r = cacheDriver
	} else {
		r = inference.New(session, driverCfg)
	}

	extractorCfg := fbank.DefaultConfig()
	extractor, err := fbank.New(extractorCfg)
	if err != nil {
		return fmt.Errorf("stt: build feature extractor: %w", err)
	}
	if degenerate := extractor.DegenerateBins(); len(degenerate) > 0 {
		b.logger.Warn("mel filterbank has degenerate filters", "bins", degenerate)
	}

	windowSamples := streamingWindowSeconds * streamSampleRate
	overlapSamples := extractorCfg.FrameLength - extractorCfg.FrameShift
	ring, err := stream.NewRingBuffer(windowSamples*2, windowSamples, overlapSamples)
	if err != nil {
		return fmt.Errorf("stt: build ring buffer: %w", err)
	}

	b.session = session
	b.driver = r
	b.cacheDriver = cacheDriver
	b.extractor = extractor
	b.cmvn = cmvn
	b.vocabulary = vocabulary
	b.blankID = blankID
	b.ring = ring
	b.frameLength = extractorCfg.FrameLength
	b.frameShift = extractorCfg.FrameShift
	b.mode = mode
	b.fixedFrames = fixedFrames
	b.caps = canonicalCapabilities()
	b.initialized = true
	b.accumulatedText = ""
	b.sessionID = uuid.NewString()
	b.activeChannelRole = channelRole
	b.lastChannelIndex = -1

	b.logger.Info("fastconformer backend initialized",
		"sessionId", b.sessionID, "modelPath", modelPath, "vocabSize", vocabulary.Size(), "blankID", blankID,
		"mode", mode, "cacheAware", cacheShapes != nil)
	return nil
}

// probeGraph inspects the session's probed input/output info to choose
// an operational mode without hard-coding either the 125-frame or
// 500-frame export, per spec §9's open question. A "processed_signal"
// input whose time dimension is a fixed positive number selects
// FixedFrame; -1 or absent selects FullUtterance. A
// "cache_last_channel" or "cache_last_time" input present at all
// selects the cache-aware variant, with shapes taken directly from the
// graph.
func probeGraph(session onnxrt.Session) (mode inference.Mode, fixedFrames int, cache *inference.CacheShapes) {
	mode = inference.FullUtterance
	for _, in := range session.InputInfo() {
		if in.Name == "processed_signal" && len(in.Shape) == 3 && in.Shape[2] > 0 {
			mode = inference.FixedFrame
			fixedFrames = int(in.Shape[2])
		}
		if in.Name == "cache_last_channel" {
			if cache == nil {
				cache = &inference.CacheShapes{}
				*cache = inference.DefaultCacheNames()
			}
			cache.LastChannelShape = in.Shape
		}
		if in.Name == "cache_last_time" {
			if cache == nil {
				cache = &inference.CacheShapes{}
				*cache = inference.DefaultCacheNames()
			}
			cache.LastTimeShape = in.Shape
		}
	}
	return mode, fixedFrames, cache
}

func (b *FastConformerBackend) ProcessAudio(chunk AudioChunk, opts TranscriptionOptions) TranscriptionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return errorResult(ErrNotInitialized, "backend has not been initialized")
	}

	samples, channelIndex, channelRole, code, err := b.decodeToMono16k(chunk)
	if err != nil {
		return errorResult(code, err.Error())
	}
	b.lastChannelIndex = channelIndex
	b.lastChannelRole = channelRole

	b.ring.Append(samples)

	for b.ring.HasChunk() {
		pcm, ok := b.ring.NextChunk(nil)
		if !ok {
			break
		}
		if err := b.runInferenceOnSamples(pcm); err != nil {
			b.logger.Error("inference failed", "error", err, "chunkIndex", b.chunkIndex)
			return errorResult(ErrProcessingError, err.Error())
		}
		b.chunkIndex++
	}

	return TranscriptionResult{
		Text:       b.accumulatedText,
		Confidence: b.averageConfidence(),
		IsFinal:    false,
		Metadata:   b.channelMetadata(),
	}
}

// channelMetadata reports which telephony leg fed the last processed
// chunk, mirroring how CloudBackend surfaces channelIndex/channelRole
// in its result metadata. Absent for sessions that never saw
// multi-channel input.
func (b *FastConformerBackend) channelMetadata() map[string]string {
	if b.lastChannelRole == "" {
		return nil
	}
	return map[string]string{
		"channelIndex": fmt.Sprintf("%d", b.lastChannelIndex),
		"channelRole":  b.lastChannelRole,
	}
}

func (b *FastConformerBackend) Finalize() TranscriptionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return errorResult(ErrNotInitialized, "backend has not been initialized")
	}

	remainder := b.ring.Drain(nil)
	if len(remainder) >= b.frameLength {
		if err := b.runInferenceOnSamples(remainder); err != nil {
			b.logger.Error("finalize inference failed", "error", err)
			// Per spec §7, finalize always returns whatever text has
			// accumulated even if the last chunk errored.
		}
	}

	result := TranscriptionResult{
		Text:       b.accumulatedText,
		Confidence: b.averageConfidence(),
		IsFinal:    true,
		Metadata:   b.channelMetadata(),
	}
	b.resetLocked()
	return result
}

func (b *FastConformerBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *FastConformerBackend) resetLocked() {
	if b.ring != nil {
		b.ring.Clear()
	}
	if b.cacheDriver != nil {
		if err := b.cacheDriver.Reset(); err != nil {
			b.logger.Error("cache reset failed", "error", err)
		}
	}
	b.accumulatedText = ""
	b.confidenceSum = 0
	b.confidenceCount = 0
	b.chunkIndex = 0
	b.lastChannelIndex = -1
	b.lastChannelRole = ""
}

func (b *FastConformerBackend) Capabilities() Capabilities {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caps
}

func (b *FastConformerBackend) IsHealthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *FastConformerBackend) Status() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]string{
		"healthy":           fmt.Sprintf("%t", b.initialized),
		"backendType":       "fastconformer-ctc",
		"chunksProcessed":   fmt.Sprintf("%d", b.chunkIndex),
		"cacheAware":        fmt.Sprintf("%t", b.cacheDriver != nil),
		"sessionId":         b.sessionID,
		"activeChannelRole": b.activeChannelRole,
	}
}

// decodeToMono16k checks chunk's encoding (any format pkg/audio/codec
// decodes) and channel count (mono, or stereo to be split), which admits
// more than the advertised capability matrix, and
// decodes it to normalized mono float32 @ 16kHz, upsampling narrowband
// telephony audio where needed. It also returns the channel identity
// (index and role) the decoded samples came from, so callers can carry
// it into session state and result metadata instead of letting it
// evaporate at the decode boundary.
func (b *FastConformerBackend) decodeToMono16k(chunk AudioChunk) (samples []float32, channelIndex int, channelRole string, code string, err error) {
	if chunk.Encoding != EncodingPCM16 && chunk.Encoding != EncodingPCM8 &&
		chunk.Encoding != EncodingULaw && chunk.Encoding != EncodingALaw {
		return nil, -1, "", ErrInvalidEncoding, fmt.Errorf("unsupported encoding %q", chunk.Encoding)
	}
	if chunk.Channels > b.caps.MaxChannels && chunk.Channels != 2 {
		return nil, -1, "", ErrInvalidChannels, fmt.Errorf("unsupported channel count %d", chunk.Channels)
	}

	leg, channelIndex, channelRole, err := b.selectChannelLeg(chunk)
	if err != nil {
		return nil, -1, "", ErrInvalidChannels, err
	}

	var mono []float32
	switch leg.Encoding {
	case EncodingPCM16:
		buf, derr := codec.DecodePCM16(leg.Data, 1, codec.Options{})
		err = derr
		mono = mixToMono(buf)
	case EncodingPCM8:
		buf, derr := codec.DecodePCM8(leg.Data, 1, codec.Options{})
		err = derr
		mono = mixToMono(buf)
	case EncodingULaw:
		buf, derr := codec.DecodeULaw(leg.Data, 1, codec.Options{})
		err = derr
		mono = mixToMono(buf)
	case EncodingALaw:
		buf, derr := codec.DecodeALaw(leg.Data, 1, codec.Options{})
		err = derr
		mono = mixToMono(buf)
	}
	if err != nil {
		return nil, -1, "", ErrInvalidEncoding, err
	}

	if leg.SampleRate != streamSampleRate {
		mono, err = codec.Resample(mono, leg.SampleRate, streamSampleRate)
		if err != nil {
			return nil, -1, "", ErrInvalidSampleRate, err
		}
	}
	return mono, channelIndex, channelRole, "", nil
}

// selectChannelLeg returns the single mono leg decodeToMono16k should
// transcribe, plus that leg's channel identity. A chunk the caller has
// already split down to one channel (Channels==1) passes through
// unchanged, carrying whatever ChannelIndex/ChannelRole the caller set.
// A genuine two-channel chunk is split via [codec.SplitStereoRoles] and
// the backend's configured activeChannelRole leg is kept; the other
// leg's audio is dropped here rather than averaged into it, since
// averaging a caller and an agent's speech together degrades both.
func (b *FastConformerBackend) selectChannelLeg(chunk AudioChunk) (AudioChunk, int, string, error) {
	if chunk.Channels != 2 {
		return chunk, chunk.ChannelIndex, chunk.ChannelRole, nil
	}

	raw := codec.Chunk{
		Data:          chunk.Data,
		Encoding:      codec.PCM16,
		SampleRate:    chunk.SampleRate,
		Channels:      chunk.Channels,
		BitsPerSample: chunk.BitsPerSample,
	}
	caller, agent, err := codec.SplitStereoRoles(raw, true)
	if err != nil {
		return AudioChunk{}, -1, "", err
	}

	leg := caller
	if b.activeChannelRole == "agent" {
		leg = agent
	}

	out := chunk
	out.Data = leg.Data
	out.Channels = 1
	out.ChannelIndex = leg.ChannelIndex
	out.ChannelRole = leg.ChannelRole
	return out, leg.ChannelIndex, leg.ChannelRole, nil
}

func mixToMono(buf codec.ChannelBuffers) []float32 {
	if buf.Right == nil {
		return buf.Left
	}
	n := len(buf.Left)
	if len(buf.Right) < n {
		n = len(buf.Right)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = (buf.Left[i] + buf.Right[i]) / 2
	}
	return out
}

// runInferenceOnSamples extracts features from pcm, runs the acoustic
// graph, greedily decodes the result, and appends any newly decoded
// text to the running transcript.
func (b *FastConformerBackend) runInferenceOnSamples(pcm []float32) error {
	features := b.extractor.Extract(pcm, b.cmvn)
	if len(features) == 0 {
		return nil
	}

	matrix, err := inference.NewTimeMelMatrix(features)
	if err != nil {
		return fmt.Errorf("build feature matrix: %w", err)
	}
	tensor := inference.Transpose(matrix)

	var batch inference.PaddedBatch
	if b.mode == inference.FixedFrame {
		batch, err = inference.PadTo(tensor, b.fixedFrames)
	} else {
		batch, err = inference.NewPaddedBatch(tensor, tensor.NumFrames)
	}
	if err != nil {
		return fmt.Errorf("build padded batch: %w", err)
	}

	out, err := b.driver.Run(batch)
	if err != nil {
		return fmt.Errorf("driver run: %w", err)
	}

	decoded := ctcdecode.GreedyDecode(out.LogProbs, out.EncodedLen, out.VocabSize, b.blankID)
	text, err := ctcdecode.Detokenize(decoded.TokenIDs, b.vocabulary)
	if err != nil {
		return fmt.Errorf("detokenize: %w", err)
	}

	if text != "" {
		if b.accumulatedText != "" {
			b.accumulatedText += " "
		}
		b.accumulatedText += text
	}
	b.confidenceSum += float64(decoded.Confidence)
	b.confidenceCount++
	return nil
}

func (b *FastConformerBackend) averageConfidence() float64 {
	if b.confidenceCount == 0 {
		return 0
	}
	return b.confidenceSum / float64(b.confidenceCount)
}

// RegisterFastConformer adds a "fastconformer" factory to the default
// registry, binding every backend it constructs to env and logger.
// Callers choose env at startup — a CGo ONNX Runtime environment in
// production, a *onnxrt.MockEnv in tests — since the registry itself
// has no way to construct one on its own.
func RegisterFastConformer(env onnxrt.Env, logger *slog.Logger) {
	Register("fastconformer", func(cfg Config) (Backend, error) {
		b := NewFastConformerBackend(env, logger)
		if err := b.Initialize(cfg); err != nil {
			return nil, err
		}
		return b, nil
	})
}
