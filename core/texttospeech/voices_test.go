package texttospeech

import (
	"slices"
	"testing"
)

func TestVoicesEndpointReplacesSpeechSuffix(t *testing.T) {
	got, err := VoicesEndpoint("http://localhost:8880/v1/audio/speech")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "http://localhost:8880/v1/audio/voices"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVoicesEndpointKeepsPathPrefix(t *testing.T) {
	got, err := VoicesEndpoint("https://tts.example.com/proxy/v1/audio/speech?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "https://tts.example.com/proxy/v1/audio/voices"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVoicesEndpointFallsBackToDefaultPath(t *testing.T) {
	got, err := VoicesEndpoint("http://10.0.0.5:9000/api/tts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "http://10.0.0.5:9000/v1/audio/voices"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVoicesEndpointTrailingSlashFallsBack(t *testing.T) {
	got, err := VoicesEndpoint("http://localhost:8880/proxy/v1/audio/speech/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "http://localhost:8880/v1/audio/voices"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVoicesEndpointRejectsRelativeURL(t *testing.T) {
	if _, err := VoicesEndpoint("/v1/audio/speech"); err == nil {
		t.Fatalf("expected relative endpoint to be rejected")
	}
}

func TestVoicesEndpointIsDeterministic(t *testing.T) {
	first, _ := VoicesEndpoint("http://localhost:8880/v1/audio/speech")
	second, _ := VoicesEndpoint("http://localhost:8880/v1/audio/speech")
	if first != second {
		t.Fatalf("expected repeated rewrites to match, got %q and %q", first, second)
	}
}

func TestParseVoicesBareList(t *testing.T) {
	if got := ParseVoices([]byte(`["a","b"]`)); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestParseVoicesObjectWithVoicesField(t *testing.T) {
	if got := ParseVoices([]byte(`{"voices":["a","b"]}`)); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestParseVoicesObjectKeys(t *testing.T) {
	if got := ParseVoices([]byte(`{"b":{},"a":{}}`)); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestParseVoicesMalformed(t *testing.T) {
	for _, input := range []string{`{"voices": [`, ``, `not json`} {
		got := ParseVoices([]byte(input))
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty list for %q, got %v", input, got)
		}
	}
}

func TestParseVoicesScalarIsEmpty(t *testing.T) {
	if got := ParseVoices([]byte(`"af_bella"`)); len(got) != 0 {
		t.Fatalf("expected empty list for a bare string, got %v", got)
	}
}

func TestParseVoicesNonStringItems(t *testing.T) {
	got := ParseVoices([]byte(`["a", 3]`))
	if !slices.Equal(got, []string{"a", "3"}) {
		t.Fatalf("expected non-string items to be kept as text, got %v", got)
	}
}
