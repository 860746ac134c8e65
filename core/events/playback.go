package events

import "github.com/koscakluka/clipspeak/core/audio"

const (
	// KindPlaybackStarted identifies the start of a playback session.
	KindPlaybackStarted Kind = "playback.started"
	// KindPlaybackEnded identifies the end of a playback session.
	KindPlaybackEnded Kind = "playback.ended"
	// KindPlaybackFailed identifies a playback that could not start or
	// failed while rendering.
	KindPlaybackFailed Kind = "playback.failed"
)

// PlaybackStarted marks the start of a playback session.
type PlaybackStarted struct {
	Base
	CycleID   string
	Container audio.Container
}

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted(cycleID string, container audio.Container) PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted), CycleID: cycleID, Container: container}
}

// PlaybackEnded marks the end of a playback session.
type PlaybackEnded struct {
	Base
	CycleID string
	Stopped bool
}

// NewPlaybackEnded creates a playback ended event.
func NewPlaybackEnded(cycleID string, stopped bool) PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded), CycleID: cycleID, Stopped: stopped}
}

// PlaybackFailed carries the error of a failed playback.
type PlaybackFailed struct {
	Base
	CycleID string
	Err     error
}

// NewPlaybackFailed creates a playback failed event.
func NewPlaybackFailed(cycleID string, err error) PlaybackFailed {
	return PlaybackFailed{Base: NewBase(KindPlaybackFailed), CycleID: cycleID, Err: err}
}
