package orchestration

import (
	"context"

	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/audio/player"
	"github.com/koscakluka/clipspeak/core/events"
	"github.com/koscakluka/clipspeak/core/textsource"
	"github.com/koscakluka/clipspeak/core/texttospeech"
)

type CoordinatorOption func(*Coordinator)

// TextChangeSource reports changes of a watched text buffer.
type TextChangeSource interface {
	Start(ctx context.Context, onChange func(textsource.Event)) error
	Stop() error
}

func WithTextChangeSource(source TextChangeSource) CoordinatorOption {
	return func(c *Coordinator) { c.source = source }
}

// SpeechClient turns text into an audio stream.
type SpeechClient interface {
	FetchAudio(ctx context.Context, req texttospeech.SynthesisRequest) (*audio.Source, error)
	// FetchVoices never fails, it returns an empty list instead
	FetchVoices(ctx context.Context) []string
}

// endpointSetter is implemented by speech clients whose endpoint can be
// changed while running.
type endpointSetter interface {
	SetEndpoint(endpoint string)
}

type apiKeySetter interface {
	SetAPIKey(apiKey string)
}

type modelSetter interface {
	SetModel(model string)
}

func WithSpeechClient(client SpeechClient) CoordinatorOption {
	return func(c *Coordinator) { c.speech = client }
}

// AudioPlayer plays one audio source at a time.
type AudioPlayer interface {
	Play(source *audio.Source, opts ...player.PlayOption) error
	Stop()
	SetVolume(v float64)
}

func WithAudioPlayer(audioPlayer AudioPlayer) CoordinatorOption {
	return func(c *Coordinator) { c.player = audioPlayer }
}

func WithSettings(settings Settings) CoordinatorOption {
	return func(c *Coordinator) { c.settings = settings.normalized() }
}

type OrchestrateOptions struct {
	onEvent             func(events.Event)
	onTextChanged       func(text string)
	onProcessingStarted func(text string)
	onFetchError        func(err error)
	onPlaybackStarted   func(container audio.Container)
	onPlaybackError     func(err error)
	onPlaybackEnded     func(stopped bool)
	onCancellation      func()
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventHandler registers a handler receiving every pipeline event.
//
// Handlers run on the pipeline goroutine. They must not block and must not
// call [Coordinator.Stop] synchronously.
func WithEventHandler(handler func(events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = handler
	}
}

// WithTextChangedCallback registers a callback for every text change the
// source reports, including changes ignored while disabled.
func WithTextChangedCallback(callback func(text string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTextChanged = callback
	}
}

// WithProcessingStartedCallback registers a callback fired when a cycle
// starts synthesising text.
func WithProcessingStartedCallback(callback func(text string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onProcessingStarted = callback
	}
}

// WithFetchErrorCallback registers a callback for failed synthesis requests
// of the current cycle. Requests abandoned because of newer text are not
// reported.
func WithFetchErrorCallback(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onFetchError = callback
	}
}

func WithPlaybackStartedCallback(callback func(container audio.Container)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackStarted = callback
	}
}

// WithPlaybackErrorCallback registers a callback for audio of the current
// cycle that could not be decoded or rendered.
func WithPlaybackErrorCallback(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackError = callback
	}
}

func WithPlaybackEndedCallback(callback func(stopped bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackEnded = callback
	}
}

func WithCancellationCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCancellation = callback
	}
}
