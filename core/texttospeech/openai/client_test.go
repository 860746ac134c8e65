package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/texttospeech"
)

func TestFetchAudioSendsSynthesisRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("expected /v1/audio/speech, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}

		var body speechRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body.Model != DefaultModel || body.Input != "Hello world" || body.Voice != "af_bella" {
			t.Errorf("unexpected request body %+v", body)
		}
		if body.ResponseFormat != "mp3" || body.Speed != 1.25 {
			t.Errorf("unexpected format or speed in %+v", body)
		}

		w.Write([]byte("mock audio data"))
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL+"/v1/audio/speech"), WithAPIKey("secret"))
	source, err := client.FetchAudio(context.Background(), texttospeech.SynthesisRequest{
		Text:  "Hello world",
		Voice: "af_bella",
		Speed: 1.25,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer source.Close()

	if source.Format != audio.ContainerMP3 {
		t.Fatalf("expected mp3 source, got %q", source.Format)
	}
	data, err := io.ReadAll(source.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if string(data) != "mock audio data" {
		t.Fatalf("expected mock audio data, got %q", data)
	}
}

func TestFetchAudioDefaultsSpeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body speechRequestBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Speed != 1.0 {
			t.Errorf("expected default speed 1.0, got %v", body.Speed)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no authorization header without an API key")
		}
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL))
	source, err := client.FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "hi", Speed: -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source.Close()
}

func TestFetchAudioUsesResponseContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF"))
	}))
	defer server.Close()

	source, err := NewClient(WithEndpoint(server.URL)).FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer source.Close()

	if source.Format != audio.ContainerWAV {
		t.Fatalf("expected wav from content type, got %q", source.Format)
	}
}

func TestFetchAudioNonSuccessStatusIsSynthesisError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"unknown voice"}`))
	}))
	defer server.Close()

	_, err := NewClient(WithEndpoint(server.URL)).FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "hi", Voice: "nobody"})

	var synthesisErr *texttospeech.SynthesisError
	if !errors.As(err, &synthesisErr) {
		t.Fatalf("expected SynthesisError, got %T: %v", err, err)
	}
	if synthesisErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", synthesisErr.StatusCode)
	}
	if synthesisErr.Body != `{"detail":"unknown voice"}` {
		t.Fatalf("expected server body to be surfaced, got %q", synthesisErr.Body)
	}
}

func TestFetchAudioUnreachableIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := NewClient(WithEndpoint(endpoint)).FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "hi"})

	var transportErr *texttospeech.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}

func TestFetchAudioCancellationAbortsRequest(t *testing.T) {
	requestStarted := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reading the body lets the server notice the client going away.
		io.Copy(io.Discard, r.Body)
		close(requestStarted)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := NewClient(WithEndpoint(server.URL)).FetchAudio(ctx, texttospeech.SynthesisRequest{Text: "hi"})
		result <- err
	}()

	<-requestStarted
	cancel()

	select {
	case err := <-result:
		var transportErr *texttospeech.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %T: %v", err, err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation to be visible, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for cancelled request to return")
	}
}

func TestFetchAudioRejectsEmptyText(t *testing.T) {
	_, err := NewClient().FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "  "})
	if !errors.Is(err, texttospeech.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestFetchAudioRequiresEndpoint(t *testing.T) {
	_, err := NewClient(WithEndpoint("")).FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "hi"})
	if !errors.Is(err, texttospeech.ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestFetchVoicesUsesDerivedEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/audio/voices" {
			t.Errorf("expected /v1/audio/voices, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"voices":["af_bella","am_adam"]}`))
	}))
	defer server.Close()

	voices := NewClient(WithEndpoint(server.URL + "/v1/audio/speech")).FetchVoices(context.Background())
	if !slices.Equal(voices, []string{"af_bella", "am_adam"}) {
		t.Fatalf("expected voices from server, got %v", voices)
	}
}

func TestFetchVoicesFallsBackToDefaultPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/voices" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`["a","b"]`))
	}))
	defer server.Close()

	voices := NewClient(WithEndpoint(server.URL + "/tts")).FetchVoices(context.Background())
	if !slices.Equal(voices, []string{"a", "b"}) {
		t.Fatalf("expected voices from default path, got %v", voices)
	}
}

func TestFetchVoicesDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if voices := NewClient(WithEndpoint(server.URL + "/v1/audio/speech")).FetchVoices(context.Background()); voices == nil || len(voices) != 0 {
		t.Fatalf("expected empty list on server error, got %v", voices)
	}

	if voices := NewClient(WithEndpoint("not a url")).FetchVoices(context.Background()); voices == nil || len(voices) != 0 {
		t.Fatalf("expected empty list for an invalid endpoint, got %v", voices)
	}
}

func TestSetEndpointAppliesToNextRequest(t *testing.T) {
	client := NewClient()
	client.SetEndpoint(" http://example.com/v1/audio/speech ")
	if got := client.Endpoint(); got != "http://example.com/v1/audio/speech" {
		t.Fatalf("expected trimmed endpoint, got %q", got)
	}
}

func TestSetAPIKeyAndModelApplyToNextRequest(t *testing.T) {
	type seen struct {
		authorization string
		model         string
	}
	requests := make(chan seen, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		requests <- seen{authorization: r.Header.Get("Authorization"), model: body.Model}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL+"/v1/audio/speech"), WithAPIKey("first"))
	fetch := func() {
		source, err := client.FetchAudio(context.Background(), texttospeech.SynthesisRequest{Text: "hi"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		source.Close()
	}

	fetch()
	if got := <-requests; got.authorization != "Bearer first" || got.model != DefaultModel {
		t.Fatalf("unexpected first request %+v", got)
	}

	client.SetAPIKey("second")
	client.SetModel("tts-1")
	fetch()
	if got := <-requests; got.authorization != "Bearer second" || got.model != "tts-1" {
		t.Fatalf("expected updated key and model, got %+v", got)
	}

	client.SetAPIKey("")
	client.SetModel("  ")
	fetch()
	if got := <-requests; got.authorization != "" || got.model != "tts-1" {
		t.Fatalf("expected cleared key and unchanged model, got %+v", got)
	}
}
