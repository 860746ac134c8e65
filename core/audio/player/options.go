package player

import "github.com/koscakluka/clipspeak/core/audio"

// Report describes how a started playback session ended.
type Report struct {
	// Container is the format the stream was decoded as.
	Container audio.Container
	// Stopped is set when the session was cut short by Stop.
	Stopped bool
	// Err is set when rendering failed mid-flight.
	Err error
}

type PlayOptions struct {
	// StartedCallback is called once the session is rendering
	StartedCallback func(audio.Container)
	// FinishedCallback is called exactly once for every started session,
	// after its device and decoder have been released
	FinishedCallback func(Report)
	// ErrorCallback is called when no session could be started, either
	// because the stream could not be decoded ([FormatError]) or the device
	// could not be opened ([DeviceError])
	ErrorCallback func(error)
}

type PlayOption func(*PlayOptions)

func WithStartedCallback(callback func(audio.Container)) PlayOption {
	return func(o *PlayOptions) { o.StartedCallback = callback }
}

func WithFinishedCallback(callback func(Report)) PlayOption {
	return func(o *PlayOptions) { o.FinishedCallback = callback }
}

func WithErrorCallback(callback func(error)) PlayOption {
	return func(o *PlayOptions) { o.ErrorCallback = callback }
}

func (o PlayOptions) started(container audio.Container) {
	if o.StartedCallback != nil {
		o.StartedCallback(container)
	}
}

func (o PlayOptions) finished(report Report) {
	if o.FinishedCallback != nil {
		o.FinishedCallback(report)
	}
}

func (o PlayOptions) failed(err error) {
	if o.ErrorCallback != nil {
		o.ErrorCallback(err)
	}
}
