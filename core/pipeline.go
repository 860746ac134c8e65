package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/audio/player"
	"github.com/koscakluka/clipspeak/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// playbackNoticeCapacity covers everything one Play call can report: a start
// followed by either an end or a failure.
const playbackNoticeCapacity = 4

// pipeline is the state owned by the pipeline goroutine. Nothing outside
// process and shutdown touches it.
type pipeline struct {
	coordinator *Coordinator
	emit        eventEmitter

	generation uint64
	state      State
	cycle      *cycle
}

// cycle is the unit of work started by one text change.
type cycle struct {
	id         string
	generation uint64
	text       string
	ctx        context.Context
	cancel     context.CancelFunc
	span       trace.Span
}

func newPipeline(c *Coordinator) *pipeline {
	return &pipeline{coordinator: c, emit: noopEventEmitter}
}

func (p *pipeline) process(command any) {
	switch command := command.(type) {
	case textCommand:
		p.handleText(command)
	case stopCommand:
		p.generation++
		p.abandonCycle()
		close(command.done)
	case fetchResult:
		p.handleFetchResult(command)
	case playbackStarted:
		p.handlePlaybackStarted(command)
	case playbackFinished:
		p.handlePlaybackFinished(command)
	case playbackFailed:
		p.handlePlaybackFailed(command)
	default:
		logger.Warn("unknown pipeline command", slog.String("type", fmt.Sprintf("%T", command)))
	}
}

func (p *pipeline) shutdown() {
	p.generation++
	p.abandonCycle()
}

func (p *pipeline) handleText(command textCommand) {
	settings := p.coordinator.Settings()
	p.emit(events.NewTextChanged(command.event.Text, command.event.Seq, !settings.Enabled))
	if !settings.Enabled {
		logger.Debug("pipeline disabled, ignoring text change", slog.Uint64("seq", command.event.Seq))
		return
	}

	p.generation++
	p.abandonCycle()

	ctx, span := tracer.Start(p.coordinator.baseContext, "process text cycle")
	ctx, cancel := context.WithCancel(ctx)

	current := &cycle{
		id:         uuid.NewString(),
		generation: p.generation,
		text:       command.event.Text,
		ctx:        ctx,
		cancel:     cancel,
		span:       span,
	}
	p.cycle = current

	queuedTime := time.Since(command.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("pipeline_cycle.queued_time", queuedTime)))
	span.SetAttributes(
		attribute.String("pipeline_cycle.id", current.id),
		attribute.Int64("pipeline_cycle.generation", int64(current.generation)),
		attribute.Int("pipeline_cycle.text_length", len(current.text)),
		attribute.Int64("pipeline_cycle.text_seq", int64(command.event.Seq)),
		attribute.String("pipeline_cycle.voice", settings.Voice),
		attribute.Float64("pipeline_cycle.speed", settings.Speed),
		attribute.Int("pipeline_cycle.queued_commands", p.coordinator.runtime.queuedCommandCount()),
	)

	p.setState(StateFetching)
	p.emit(events.NewCycleStarted(current.id, current.generation, current.text))

	request := settings.synthesisRequest(current.text)
	speech := p.coordinator.speech
	runtime := p.coordinator.runtime
	go func() {
		source, err := speech.FetchAudio(ctx, request)
		if !runtime.enqueue(fetchResult{generation: current.generation, source: source, err: err}) {
			source.Close()
		}
	}()
}

func (p *pipeline) handleFetchResult(result fetchResult) {
	if !p.isCurrent(result.generation) || p.state != StateFetching {
		result.source.Close()
		logger.Debug("dropping stale synthesis result", slog.Uint64("generation", result.generation))
		return
	}

	current := p.cycle
	if result.err != nil {
		err := fmt.Errorf("failed to fetch speech audio: %w", result.err)
		current.span.RecordError(err)
		current.span.SetStatus(codes.Error, err.Error())
		logger.Warn("synthesis failed", slog.String("cycle_id", current.id), slog.String("error", result.err.Error()))
		p.emit(events.NewSynthesisFailed(current.id, result.err))
		p.finishCycle()
		return
	}

	notices := make(chan any, playbackNoticeCapacity)
	notify := func(notice any) {
		select {
		case notices <- notice:
		default:
		}
	}
	go p.relayPlaybackNotices(current.ctx, notices)

	current.span.AddEvent("synthesis done")
	if err := p.coordinator.player.Play(result.source,
		player.WithStartedCallback(func(container audio.Container) {
			notify(playbackStarted{generation: current.generation, container: container})
		}),
		player.WithFinishedCallback(func(report player.Report) {
			notify(playbackFinished{generation: current.generation, report: report})
		}),
		player.WithErrorCallback(func(err error) {
			notify(playbackFailed{generation: current.generation, err: err})
		}),
	); err != nil {
		result.source.Close()
		p.failPlayback(err)
		return
	}

	p.setState(StatePlaying)
}

// relayPlaybackNotices forwards player callbacks to the pipeline queue in the
// order they were made. Callbacks never block, so the player is free to
// report from inside Stop.
func (p *pipeline) relayPlaybackNotices(ctx context.Context, notices <-chan any) {
	runtime := p.coordinator.runtime
	for {
		select {
		case <-ctx.Done():
			return
		case <-runtime.closeCh:
			return
		case notice := <-notices:
			if !runtime.enqueue(notice) {
				return
			}
			switch notice.(type) {
			case playbackFinished, playbackFailed:
				return
			}
		}
	}
}

func (p *pipeline) handlePlaybackStarted(notice playbackStarted) {
	if !p.isCurrent(notice.generation) || p.state != StatePlaying {
		return
	}

	p.cycle.span.AddEvent("playback started", trace.WithAttributes(attribute.String("audio.container", notice.container.String())))
	p.emit(events.NewPlaybackStarted(p.cycle.id, notice.container))
}

func (p *pipeline) handlePlaybackFinished(notice playbackFinished) {
	if !p.isCurrent(notice.generation) || p.state != StatePlaying {
		return
	}

	if notice.report.Err != nil {
		p.failPlayback(notice.report.Err)
		return
	}

	p.cycle.span.SetAttributes(attribute.Bool("pipeline_cycle.playback_stopped", notice.report.Stopped))
	p.emit(events.NewPlaybackEnded(p.cycle.id, notice.report.Stopped))
	p.finishCycle()
}

func (p *pipeline) handlePlaybackFailed(notice playbackFailed) {
	if !p.isCurrent(notice.generation) || p.state != StatePlaying {
		return
	}

	p.failPlayback(notice.err)
}

func (p *pipeline) failPlayback(err error) {
	current := p.cycle
	recordedErr := fmt.Errorf("failed to play speech audio: %w", err)
	current.span.RecordError(recordedErr)
	current.span.SetStatus(codes.Error, recordedErr.Error())
	logger.Warn("playback failed", slog.String("cycle_id", current.id), slog.String("error", err.Error()))
	p.emit(events.NewPlaybackFailed(current.id, err))
	p.finishCycle()
}

// abandonCycle stops playback and cancels the outstanding fetch, whatever
// state the pipeline is in.
func (p *pipeline) abandonCycle() {
	p.coordinator.player.Stop()

	if current := p.cycle; current != nil {
		current.span.AddEvent("cycle cancelled")
		p.emit(events.NewCycleCancelled(current.id, current.generation))
	}
	p.finishCycle()
}

func (p *pipeline) finishCycle() {
	if current := p.cycle; current != nil {
		current.cancel()
		current.span.End()
		p.cycle = nil
	}
	p.setState(StateIdle)
}

func (p *pipeline) isCurrent(generation uint64) bool {
	return p.cycle != nil && p.cycle.generation == generation && generation == p.generation
}

func (p *pipeline) setState(state State) {
	p.state = state

	status := Status{State: state, Generation: p.generation}
	if state != StateIdle && p.cycle != nil {
		status.CycleID = p.cycle.id
	}
	p.coordinator.setStatus(status)
}
