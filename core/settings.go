package orchestration

import (
	"strings"

	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/texttospeech"
)

// Settings are the user-facing knobs of the pipeline. A snapshot is taken
// whenever a cycle starts, so changes to Voice, Speed and Format apply to the
// next cycle. Volume is applied to the active session right away.
type Settings struct {
	Endpoint string
	// APIKey and Model are pushed to the speech client as soon as they change
	APIKey  string
	Model   string
	Voice   string
	Speed   float64
	Volume  float64
	Enabled bool
	// Format is the container requested from the speech service
	Format audio.Container
}

func DefaultSettings() Settings {
	return Settings{
		Speed:   texttospeech.DefaultSpeed,
		Volume:  1,
		Enabled: true,
		Format:  audio.DefaultContainer,
	}
}

func (s Settings) normalized() Settings {
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.Model = strings.TrimSpace(s.Model)
	s.Voice = strings.TrimSpace(s.Voice)
	if s.Speed <= 0 {
		s.Speed = texttospeech.DefaultSpeed
	}
	s.Volume = audio.ClampVolume(s.Volume)
	if s.Format == "" {
		s.Format = audio.DefaultContainer
	}
	return s
}

func (s Settings) synthesisRequest(text string) texttospeech.SynthesisRequest {
	return texttospeech.SynthesisRequest{
		Text:   text,
		Voice:  s.Voice,
		Speed:  s.Speed,
		Format: s.Format,
	}.Normalized()
}
