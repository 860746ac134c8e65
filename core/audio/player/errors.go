package player

import (
	"errors"
	"strings"

	"github.com/koscakluka/clipspeak/core/audio"
)

// ErrNoSource is returned by Play when there is nothing to play.
var ErrNoSource = errors.New("no audio source to play")

// FormatError is reported when the audio stream could not be decoded as any
// of the attempted containers.
type FormatError struct {
	Tried []audio.Container
	Err   error
}

func (e *FormatError) Error() string {
	names := make([]string, 0, len(e.Tried))
	for _, c := range e.Tried {
		names = append(names, c.String())
	}
	msg := "audio stream could not be decoded as " + strings.Join(names, " or ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// DeviceError is reported when the output device could not be opened or
// failed while rendering.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return "audio device " + e.Op + " failed"
	}
	return "audio device " + e.Op + " failed: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error { return e.Err }
