package texttospeech

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoEndpoint is returned when no synthesis endpoint is configured.
	ErrNoEndpoint = errors.New("synthesis endpoint is not configured")
)

// TransportError means the synthesis service could not be reached or the
// exchange was cut short (timeout, reset, cancellation).
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("synthesis request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SynthesisError is a non-success response from the synthesis service.
type SynthesisError struct {
	StatusCode int
	Body       string
}

func (e *SynthesisError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("synthesis failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("synthesis failed with status %d: %s", e.StatusCode, body)
}
