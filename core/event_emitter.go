package orchestration

import (
	"log/slog"

	"github.com/koscakluka/clipspeak/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		logger.Debug("pipeline event",
			slog.String("kind", string(event.Kind())),
			slog.String("namespace", event.Kind().Namespace()),
		)

		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.TextChanged:
			if opts.onTextChanged != nil {
				opts.onTextChanged(typedEvent.Text)
			}
		case events.CycleStarted:
			if opts.onProcessingStarted != nil {
				opts.onProcessingStarted(typedEvent.Text)
			}
		case events.CycleCancelled:
			if opts.onCancellation != nil {
				opts.onCancellation()
			}
		case events.SynthesisFailed:
			if opts.onFetchError != nil {
				opts.onFetchError(typedEvent.Err)
			}
		case events.PlaybackStarted:
			if opts.onPlaybackStarted != nil {
				opts.onPlaybackStarted(typedEvent.Container)
			}
		case events.PlaybackFailed:
			if opts.onPlaybackError != nil {
				opts.onPlaybackError(typedEvent.Err)
			}
		case events.PlaybackEnded:
			if opts.onPlaybackEnded != nil {
				opts.onPlaybackEnded(typedEvent.Stopped)
			}
		}
	}
}
