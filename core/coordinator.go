package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/clipspeak/core/textsource"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrClosed         = errors.New("coordinator closed")
	ErrAlreadyStarted = errors.New("coordinator already started")
	ErrNoSpeechClient = errors.New("no speech client configured")
	ErrNoAudioPlayer  = errors.New("no audio player configured")
)

// State is the phase of the current pipeline cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	State      State
	Generation uint64
	// CycleID identifies the running cycle, empty when idle
	CycleID string
}

// Coordinator turns text changes into speech. Every change starts a new
// cycle that fetches audio for the text and plays it, superseding whatever
// the previous cycle was doing.
type Coordinator struct {
	source TextChangeSource
	speech SpeechClient
	player AudioPlayer

	settingsMu sync.RWMutex
	settings   Settings

	closeOnce          sync.Once
	runtime            *pipelineRuntime
	pipeline           *pipeline
	orchestrateOptions OrchestrateOptions
	baseContext        context.Context

	statusMu sync.RWMutex
	status   Status
}

func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		settings:    DefaultSettings(),
		runtime:     newPipelineRuntime(),
		baseContext: context.Background(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.pipeline = newPipeline(c)
	return c
}

// Orchestrate starts the pipeline and the configured text source.
//
// ctx is the base context of every cycle; cancelling it closes the
// coordinator. Orchestrate can only be called once.
func (c *Coordinator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) error {
	if c.runtime.isClosed() {
		return ErrClosed
	}
	if c.speech == nil {
		return ErrNoSpeechClient
	}
	if c.player == nil {
		return ErrNoAudioPlayer
	}

	options := OrchestrateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if c.runtime.started.Load() {
		return ErrAlreadyStarted
	}
	c.orchestrateOptions = options
	c.baseContext = ctx
	c.pipeline.emit = newCallbackEventEmitter(options)
	c.player.SetVolume(c.Settings().Volume)

	if started := c.runtime.start(c.pipeline.process, c.pipeline.shutdown); !started {
		if c.runtime.isClosed() {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.runtime.done:
		}
	}()

	if c.source != nil {
		if err := c.source.Start(ctx, c.HandleTextEvent); err != nil {
			recordedErr := fmt.Errorf("failed to start text source: %w", err)
			span := trace.SpanFromContext(ctx)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
			return recordedErr
		}
	}

	return nil
}

// Close stops the text source, abandons the running cycle and waits for the
// pipeline to wind down. Safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.source != nil {
			if err := c.source.Stop(); err != nil {
				recordedErr := fmt.Errorf("failed to stop text source: %w", err)
				span := trace.SpanFromContext(c.baseContext)
				span.RecordError(recordedErr)
				span.SetStatus(codes.Error, recordedErr.Error())
			}
		}

		c.runtime.end()
		if c.runtime.started.Load() {
			c.runtime.waitUntilEnded()
		} else if c.player != nil {
			c.player.Stop()
		}
	})
}

// HandleTextEvent queues a text change as if the text source reported it.
// Once the pipeline runs it waits for room in the queue.
func (c *Coordinator) HandleTextEvent(event textsource.Event) {
	c.runtime.enqueue(textCommand{event: event, queuedAt: time.Now()})
}

// SpeakText queues text directly, skipping the text source. It never
// blocks: blank text, a full queue or a closed coordinator report false.
func (c *Coordinator) SpeakText(text string) bool {
	if textsource.IsBlank(text) {
		return false
	}
	return c.runtime.tryEnqueue(textCommand{event: textsource.Event{Text: text}, queuedAt: time.Now()})
}

// Voices lists the voices the speech service offers, or an empty list when
// they cannot be retrieved.
func (c *Coordinator) Voices(ctx context.Context) []string {
	if c.speech == nil {
		return []string{}
	}
	return c.speech.FetchVoices(ctx)
}

func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

func (c *Coordinator) setStatus(status Status) {
	c.statusMu.Lock()
	c.status = status
	c.statusMu.Unlock()
}
