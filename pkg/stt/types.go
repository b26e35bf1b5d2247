// Package stt implements the backend facade: the uniform streaming
// interface (initialize/process_audio/finalize/reset/capabilities/
// status) consumers observe, a name-keyed backend registry, and the
// FastConformer-CTC backend built from this module's audio/fbank/
// inference/ctcdecode packages.
package stt

import (
	"strconv"
	"time"
)

// Encoding enumerates the audio encodings the facade accepts at its
// API boundary: exactly the formats pkg/audio/codec can decode.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm16"
	EncodingPCM8  Encoding = "pcm8"
	EncodingULaw  Encoding = "ulaw"
	EncodingALaw  Encoding = "alaw"
)

// AudioChunk mirrors the original backend adapter's AudioChunk: raw
// bytes plus the metadata needed to validate and decode them.
type AudioChunk struct {
	Data          []byte
	Encoding      Encoding
	SampleRate    int
	Channels      int
	BitsPerSample int
	Timestamp     time.Duration

	ChannelIndex int // -1 for mono/mixed
	ChannelRole  string
	Metadata     map[string]string
}

// WordTiming is carried for API completeness; the canonical
// FastConformer-CTC backend never populates it (capabilities report
// supportsWordTimings=false), but a cloud adapter might.
type WordTiming struct {
	Word       string
	StartTime  time.Duration
	EndTime    time.Duration
	Confidence float64
}

// SpeakerInfo is carried for API completeness; unused by the canonical
// backend.
type SpeakerInfo struct {
	SpeakerID    int
	SpeakerLabel string
	Confidence   float64
}

// TranscriptionResult is what every facade operation returns. Per spec
// §7, a result either carries populated Text/Confidence/IsFinal, or a
// non-empty ErrorCode/ErrorMessage with HasError true — never both.
type TranscriptionResult struct {
	Text             string
	Confidence       float64
	IsFinal          bool
	WordTimings      []WordTiming
	Speakers         []SpeakerInfo
	StartTime        time.Duration
	EndTime          time.Duration
	DetectedLanguage string
	Metadata         map[string]string
	Alternatives     []string

	HasError     bool
	ErrorCode    string
	ErrorMessage string
}

// errorResult builds a TranscriptionResult carrying only error state,
// enforcing the "never mix partial text with an error" rule at a single
// call site.
func errorResult(code, message string) TranscriptionResult {
	return TranscriptionResult{HasError: true, ErrorCode: code, ErrorMessage: message}
}

// Error codes named in spec §6.1/§7.
const (
	ErrNotInitialized     = "NOT_INITIALIZED"
	ErrInvalidEncoding    = "INVALID_ENCODING"
	ErrInvalidSampleRate  = "INVALID_SAMPLE_RATE"
	ErrInvalidChannels    = "INVALID_CHANNELS"
	ErrProcessingError    = "PROCESSING_ERROR"
	ErrFinalizationError  = "FINALIZATION_ERROR"
)

// TranscriptionOptions carries per-call options. Neither backend in this
// package reads any of its fields, LanguageCode included; they exist
// for interface parity with richer cloud backends.
type TranscriptionOptions struct {
	LanguageCode          string
	EnableWordTimings     bool
	EnablePunctuation     bool
	EnableSpeakerLabels   bool
	EnableProfanityFilter bool
	MaxAlternatives       int
	CustomOptions         map[string]string
}

// Capabilities describes what a backend supports, reported verbatim
// from capabilities().
type Capabilities struct {
	SupportsStreaming     bool
	SupportsWordTimings   bool
	SupportsSpeakerLabels bool
	SupportsCustomModels  bool
	SupportedLanguages    []string
	SupportedEncodings    []Encoding
	MinSampleRate         int
	MaxSampleRate         int
	MaxChannels           int
	Features              map[string]string
}

// Config is the string-keyed configuration map passed to Initialize,
// matching the original BackendConfig's parameters+credentials split
// with typed accessors (getString/getInt/getBool) rather than raw map
// lookups at every call site.
type Config struct {
	BackendType string
	Parameters  map[string]string
	Credentials map[string]string
}

func (c Config) String(key, defaultValue string) string {
	if v, ok := c.Parameters[key]; ok {
		return v
	}
	return defaultValue
}

func (c Config) Int(key string, defaultValue int) int {
	v, ok := c.Parameters[key]
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func (c Config) Bool(key string, defaultValue bool) bool {
	v, ok := c.Parameters[key]
	if !ok {
		return defaultValue
	}
	return v == "true" || v == "1"
}
