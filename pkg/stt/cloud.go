package stt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CloudConfig holds the Watson-style cloud STT parameters this
// placeholder adapter accepts, parsed out of a Config's
// Parameters/Credentials maps.
type CloudConfig struct {
	APIKey                    string
	ServiceURL                string
	Model                     string
	AcousticCustomizationID   string
	LanguageCustomizationID   string
	SmartFormatting           bool
	ProfanityFilter           bool
	EnableSpeakerLabels       bool
	SpeechDetectorSensitivity float64
	BackgroundAudioSuppression float64
}

func parseCloudConfig(cfg Config) CloudConfig {
	c := CloudConfig{
		ServiceURL: "wss://api.us-south.speech-to-text.watson.cloud.ibm.com",
		Model:      "en-US_BroadbandModel",
	}
	if v, ok := cfg.Credentials["apiKey"]; ok {
		c.APIKey = v
	}
	c.ServiceURL = cfg.String("apiEndpoint", c.ServiceURL)
	c.Model = cfg.String("model", c.Model)
	c.AcousticCustomizationID = cfg.String("acousticCustomizationId", "")
	c.LanguageCustomizationID = cfg.String("languageCustomizationId", "")
	c.SmartFormatting = cfg.Bool("smartFormatting", true)
	c.ProfanityFilter = cfg.Bool("profanityFilter", false)
	c.EnableSpeakerLabels = cfg.Bool("enableSpeakerLabels", false)
	c.SpeechDetectorSensitivity = float64(cfg.Int("speechDetectorSensitivity", 50)) / 100.0
	c.BackgroundAudioSuppression = float64(cfg.Int("backgroundAudioSuppression", 50)) / 100.0
	return c
}

type cloudState struct {
	sessionID       string
	accumulatedText string
	startTime       time.Duration
	currentTime     time.Duration
	channelIndex    int
	channelRole     string
}

func (s *cloudState) reset() {
	*s = cloudState{channelIndex: -1}
}

// CloudBackend is a placeholder for a WebSocket-based cloud speech
// service (modeled on IBM Watson STT's streaming API): it validates
// configuration and tracks session/channel state correctly, but has no
// transport: ProcessAudio returns NOT_IMPLEMENTED on every call and
// Finalize returns a fixed placeholder text. It
// exists so the registry and CLI have a second backend to select
// between, and so the facade's config-driven dispatch has more than one
// real implementation to prove it against.
type CloudBackend struct {
	mu     sync.Mutex
	logger *slog.Logger

	cfg       CloudConfig
	connected bool
	listening bool
	state     cloudState

	initialized bool
}

// NewCloudBackend constructs an uninitialized CloudBackend.
func NewCloudBackend(logger *slog.Logger) *CloudBackend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &CloudBackend{logger: logger}
	b.state.reset()
	return b
}

func (b *CloudBackend) Initialize(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cfg = parseCloudConfig(cfg)
	if b.cfg.APIKey == "" {
		return fmt.Errorf("stt: cloud backend requires credentials[\"apiKey\"]")
	}

	b.logger.Info("cloud backend initialized (placeholder, no transport)",
		"serviceURL", b.cfg.ServiceURL, "model", b.cfg.Model)
	b.initialized = true
	return nil
}

func (b *CloudBackend) ProcessAudio(chunk AudioChunk, opts TranscriptionOptions) TranscriptionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return errorResult(ErrNotInitialized, "backend has not been initialized")
	}

	if b.state.sessionID == "" {
		b.state.sessionID = uuid.NewString()
		b.state.startTime = chunk.Timestamp
	}
	b.state.currentTime = chunk.Timestamp
	b.state.channelIndex = chunk.ChannelIndex
	b.state.channelRole = chunk.ChannelRole

	return errorResult("NOT_IMPLEMENTED", "cloud backend transport is not implemented yet")
}

func (b *CloudBackend) Finalize() TranscriptionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return errorResult(ErrNotInitialized, "backend has not been initialized")
	}

	result := TranscriptionResult{
		Text:       "[cloud backend placeholder - no actual transcription]",
		Confidence: 0,
		IsFinal:    true,
		StartTime:  b.state.startTime,
		EndTime:    b.state.currentTime,
		Metadata: map[string]string{
			"channelIndex": fmt.Sprintf("%d", b.state.channelIndex),
			"channelRole":  b.state.channelRole,
			"backend":      "watson",
			"model":        b.cfg.Model,
			"sessionId":    b.state.sessionID,
		},
	}
	b.state.reset()
	return result
}

func (b *CloudBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.reset()
}

func (b *CloudBackend) Capabilities() Capabilities {
	return Capabilities{
		SupportsStreaming:     true,
		SupportsWordTimings:   true,
		SupportsSpeakerLabels: true,
		SupportsCustomModels:  true,
		SupportedLanguages: []string{
			"en-US", "en-GB", "en-AU", "en-IN",
			"es-ES", "es-MX", "es-AR",
			"fr-FR", "fr-CA",
			"de-DE", "ja-JP", "ko-KR", "pt-BR", "zh-CN", "it-IT", "nl-NL",
		},
		// Encoding is a closed enum covering only the raw PCM/G.711
		// formats this module decodes itself; the cloud service's own
		// compressed-format support (opus, mp3, flac, ...) has no
		// representation here since nothing in this module decodes
		// them — advertised instead through Features.
		SupportedEncodings: []Encoding{EncodingPCM16, EncodingPCM8, EncodingULaw, EncodingALaw},
		MinSampleRate:      8000,
		MaxSampleRate:      48000,
		MaxChannels:        1,
		Features: map[string]string{
			"smartFormatting": "true",
			"profanityFilter": "true",
			"keywords":        "true",
			"wordAlternatives": "true",
			"timestamps":      "true",
			"extendedEncodings": "opus,ogg,mp3,mpeg,webm,flac",
		},
	}
}

func (b *CloudBackend) IsHealthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	// A real transport would report the WebSocket connection state;
	// without one, this backend is never healthy.
	return false
}

func (b *CloudBackend) Status() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	sessionID := b.state.sessionID
	if sessionID == "" {
		sessionID = "none"
	}
	return map[string]string{
		"healthy":        "false",
		"backend":        "watson",
		"implementation": "placeholder",
		"serviceUrl":     b.cfg.ServiceURL,
		"model":          b.cfg.Model,
		"connected":      fmt.Sprintf("%t", b.connected),
		"listening":      fmt.Sprintf("%t", b.listening),
		"sessionId":      sessionID,
	}
}

func init() {
	Register("watson", func(cfg Config) (Backend, error) {
		b := NewCloudBackend(nil)
		if err := b.Initialize(cfg); err != nil {
			return nil, err
		}
		return b, nil
	})
}
