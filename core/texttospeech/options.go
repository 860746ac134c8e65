package texttospeech

import "github.com/koscakluka/clipspeak/core/audio"

const DefaultSpeed = 1.0

// SynthesisRequest is everything needed to turn one piece of text into
// audio. It is built fresh for every cycle.
type SynthesisRequest struct {
	Text  string
	Voice string
	// Speed is the playback speed factor requested from the service,
	// non-positive values fall back to [DefaultSpeed]
	Speed float64
	// Format is the container the service is asked to produce, empty falls
	// back to [audio.DefaultContainer]
	Format audio.Container
}

// Normalized returns a copy of r with defaults applied.
func (r SynthesisRequest) Normalized() SynthesisRequest {
	if r.Speed <= 0 {
		r.Speed = DefaultSpeed
	}
	if r.Format == "" {
		r.Format = audio.DefaultContainer
	}
	return r
}
