package vocab

import (
	"strings"
	"testing"
)

func TestLoadFromReaderAssignsBlankIDPastEnd(t *testing.T) {
	v, err := LoadFromReader(strings.NewReader("<unk>\n▁the\n▁quick\nfox\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if v.Size() != 4 {
		t.Fatalf("want 4 tokens, got %d", v.Size())
	}
	if v.BlankID() != 4 {
		t.Fatalf("want blank id 4, got %d", v.BlankID())
	}
	tok, err := v.Token(1)
	if err != nil {
		t.Fatalf("Token(1): %v", err)
	}
	if tok != "▁the" {
		t.Fatalf("want %q, got %q", "▁the", tok)
	}
}

func TestTokenOnBlankIDErrors(t *testing.T) {
	v, _ := LoadFromReader(strings.NewReader("a\nb\n"))
	if _, err := v.Token(v.BlankID()); err == nil {
		t.Fatal("expected error requesting token string for blank id")
	}
}

func TestTokenOutOfRangeErrors(t *testing.T) {
	v, _ := LoadFromReader(strings.NewReader("a\nb\n"))
	if _, err := v.Token(-1); err == nil {
		t.Fatal("expected error for negative id")
	}
	if _, err := v.Token(99); err == nil {
		t.Fatal("expected error for out-of-range id")
	}
}

func TestLoadFromReaderRejectsEmpty(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty vocabulary")
	}
}

func TestLoadCmvnFromReaderParsesMeanAndVariance(t *testing.T) {
	data := "# comment line\n" +
		strings.Repeat("1.0 ", 80) + "\n" +
		strings.Repeat("2.0 ", 80) + "\n" +
		"12345\n"
	stats, err := LoadCmvnFromReader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadCmvnFromReader: %v", err)
	}
	if len(stats.Mean) != 80 || len(stats.Variance) != 80 {
		t.Fatalf("want 80-length vectors, got mean=%d variance=%d", len(stats.Mean), len(stats.Variance))
	}
	if stats.Mean[0] != 1.0 || stats.Variance[0] != 2.0 {
		t.Fatalf("want mean[0]=1.0 variance[0]=2.0, got %v %v", stats.Mean[0], stats.Variance[0])
	}
	if stats.NumFrames != 12345 {
		t.Fatalf("want NumFrames 12345, got %d", stats.NumFrames)
	}
}

func TestLoadCmvnFromReaderRejectsLengthMismatch(t *testing.T) {
	data := "1.0 2.0 3.0\n4.0 5.0\n"
	if _, err := LoadCmvnFromReader(strings.NewReader(data)); err == nil {
		t.Fatal("expected error for mean/variance length mismatch")
	}
}

func TestLoadCmvnFromReaderRequiresTwoLines(t *testing.T) {
	if _, err := LoadCmvnFromReader(strings.NewReader("1.0 2.0\n")); err == nil {
		t.Fatal("expected error with only one data line")
	}
}
