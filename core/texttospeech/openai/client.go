package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultEndpoint is the Kokoro-FastAPI speech endpoint
	DefaultEndpoint = "http://localhost:8880/v1/audio/speech"
	// DefaultModel is sent as the model field, OpenAI-compatible servers
	// require one even when they only serve a single model
	DefaultModel = "kokoro"

	defaultTimeout = 30 * time.Second

	maxErrorBodySize = 64 << 10
	maxVoicesSize    = 1 << 20
)

// Client talks to an OpenAI-compatible /audio/speech endpoint.
//
// Endpoint, API key and model can be changed at any time; requests already
// in flight keep the values they started with.
type Client struct {
	httpClient *http.Client

	mu       sync.RWMutex
	endpoint string
	apiKey   string
	model    string
}

type ClientOption func(*Client)

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = strings.TrimSpace(endpoint) }
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the instrumented default client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds how long to wait for the response headers. The body is
// streamed afterwards and is only bounded by the request context.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = newHTTPClient(timeout)
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: newHTTPClient(defaultTimeout),
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func newHTTPClient(responseHeaderTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = responseHeaderTimeout
	return &http.Client{Transport: otelhttp.NewTransport(transport)}
}

func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = strings.TrimSpace(endpoint)
}

// SetAPIKey replaces the bearer token. An empty key sends no Authorization
// header.
func (c *Client) SetAPIKey(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(apiKey)
}

// SetModel replaces the model field. A blank model keeps the current one.
func (c *Client) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

func (c *Client) snapshot() (endpoint, apiKey, model string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint, c.apiKey, c.model
}

type speechRequestBody struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// FetchAudio requests synthesis of req.Text. On success the returned source
// streams the response body and the caller owns it.
//
// Cancelling ctx aborts the request, including a body that is still being
// read.
func (c *Client) FetchAudio(ctx context.Context, req texttospeech.SynthesisRequest) (*audio.Source, error) {
	ctx, span := tracer.Start(ctx, "fetch speech audio")
	defer span.End()

	req = req.Normalized()
	if strings.TrimSpace(req.Text) == "" {
		return nil, recordError(span, texttospeech.ErrEmptyText)
	}

	endpoint, apiKey, model := c.snapshot()
	if endpoint == "" {
		return nil, recordError(span, texttospeech.ErrNoEndpoint)
	}

	span.SetAttributes(
		attribute.String("request.url", endpoint),
		attribute.String("request.model", model),
		attribute.String("request.voice", req.Voice),
		attribute.Float64("request.speed", req.Speed),
		attribute.String("request.response_format", req.Format.String()),
		attribute.Int("request.input_length", len(req.Text)),
	)

	requestBodyBytes, err := json.Marshal(speechRequestBody{
		Model:          model,
		Input:          req.Text,
		Voice:          req.Voice,
		ResponseFormat: req.Format.String(),
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, recordError(span, &texttospeech.TransportError{Endpoint: endpoint, Err: err})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, recordError(span, &texttospeech.TransportError{Endpoint: endpoint, Err: err})
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errorBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			logger.Debug("failed to read synthesis error body", slog.String("error", readErr.Error()))
		}
		return nil, recordError(span, &texttospeech.SynthesisError{StatusCode: resp.StatusCode, Body: string(errorBody)})
	}

	format := req.Format
	if detected, ok := containerFromContentType(resp.Header.Get("Content-Type")); ok {
		format = detected
	}
	span.SetAttributes(attribute.String("response.format", format.String()))

	return &audio.Source{Body: resp.Body, Format: format}, nil
}

// FetchVoices lists the voices the service offers. It never fails, any
// problem degrades to an empty list.
func (c *Client) FetchVoices(ctx context.Context) []string {
	ctx, span := tracer.Start(ctx, "fetch voices")
	defer span.End()

	endpoint, apiKey, _ := c.snapshot()
	voicesURL, err := texttospeech.VoicesEndpoint(endpoint)
	if err != nil {
		_ = recordError(span, err)
		return []string{}
	}
	span.SetAttributes(attribute.String("request.url", voicesURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesURL, nil)
	if err != nil {
		_ = recordError(span, err)
		return []string{}
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("failed to fetch voices", slog.String("url", voicesURL), slog.String("error", err.Error()))
		_ = recordError(span, err)
		return []string{}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = recordError(span, fmt.Errorf("non-OK HTTP status: %s", resp.Status))
		return []string{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVoicesSize))
	if err != nil {
		_ = recordError(span, fmt.Errorf("error reading response body: %w", err))
		return []string{}
	}

	voices := texttospeech.ParseVoices(body)
	span.SetAttributes(attribute.Int("response.voice_count", len(voices)))
	return voices
}

func containerFromContentType(contentType string) (audio.Container, bool) {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(mediaType) {
	case "audio/mpeg", "audio/mp3":
		return audio.ContainerMP3, true
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return audio.ContainerWAV, true
	}
	return "", false
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
