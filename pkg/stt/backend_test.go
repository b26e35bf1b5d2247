package stt

import "testing"

type stubBackend struct{ initErr error }

func (s *stubBackend) Initialize(cfg Config) error { return s.initErr }
func (s *stubBackend) ProcessAudio(chunk AudioChunk, opts TranscriptionOptions) TranscriptionResult {
	return TranscriptionResult{Text: "stub"}
}
func (s *stubBackend) Finalize() TranscriptionResult { return TranscriptionResult{IsFinal: true} }
func (s *stubBackend) Reset()                        {}
func (s *stubBackend) Capabilities() Capabilities    { return Capabilities{} }
func (s *stubBackend) IsHealthy() bool                { return true }
func (s *stubBackend) Status() map[string]string     { return nil }

func TestRegisterAndCreateRoundTrip(t *testing.T) {
	Register("stub-backend-test", func(cfg Config) (Backend, error) {
		return &stubBackend{}, nil
	})
	if !IsAvailable("stub-backend-test") {
		t.Fatal("expected stub-backend-test to be available after Register")
	}
	backend, err := Create("stub-backend-test", Config{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result := backend.ProcessAudio(AudioChunk{}, TranscriptionOptions{})
	if result.Text != "stub" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCreateUnknownBackendReturnsError(t *testing.T) {
	if _, err := Create("does-not-exist", Config{}); err == nil {
		t.Fatal("expected error for unknown backend type")
	}
}

func TestAvailableBackendsSortedAndIncludesWatson(t *testing.T) {
	names := AvailableBackends()
	found := false
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("AvailableBackends not sorted: %v", names)
		}
	}
	for _, n := range names {
		if n == "watson" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected \"watson\" among available backends")
	}
}

func TestErrorResultNeverMixesTextAndError(t *testing.T) {
	r := errorResult(ErrProcessingError, "boom")
	if !r.HasError || r.Text != "" || r.Confidence != 0 {
		t.Fatalf("errorResult must carry only error state: %+v", r)
	}
}
