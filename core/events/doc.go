// Package events defines the typed notification contract of the speech
// pipeline.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - text_source.*
//   - cycle.*
//   - synthesis.*
//   - playback.*
//
// text_source events
//
//   - TextChanged (text_source.changed): the source reported new text. Emitted
//     for every change, including those ignored while the pipeline is
//     disabled.
//
// cycle events
//
//   - CycleStarted (cycle.started): a new cycle took over and its synthesis
//     request was sent ("processing started").
//   - CycleCancelled (cycle.cancelled): the running cycle was superseded by
//     new text or stopped explicitly.
//
// synthesis events
//
//   - SynthesisFailed (synthesis.failed): the synthesis request of the
//     current cycle failed ("fetch error"). The pipeline is idle afterwards.
//
// playback events
//
//   - PlaybackStarted (playback.started): a playback session started for the
//     current cycle.
//   - PlaybackEnded (playback.ended): the session of the current cycle
//     finished, either naturally or because it was stopped.
//   - PlaybackFailed (playback.failed): audio of the current cycle could not
//     be decoded or rendered ("playback error").
//
// Events belonging to superseded cycles are never delivered.
package events
