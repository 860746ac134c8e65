package orchestration

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/audio/player"
	"github.com/koscakluka/clipspeak/core/textsource"
)

const pipelineCommandQueueCapacity = 16

// Commands processed by the pipeline goroutine. Results of background work
// carry the generation they were started for.
type (
	textCommand struct {
		event    textsource.Event
		queuedAt time.Time
	}

	stopCommand struct {
		done chan struct{}
	}

	fetchResult struct {
		generation uint64
		source     *audio.Source
		err        error
	}

	playbackStarted struct {
		generation uint64
		container  audio.Container
	}

	playbackFinished struct {
		generation uint64
		report     player.Report
	}

	playbackFailed struct {
		generation uint64
		err        error
	}
)

type pipelineRuntime struct {
	queue   chan any
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newPipelineRuntime() *pipelineRuntime {
	return &pipelineRuntime{
		queue:   make(chan any, pipelineCommandQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start runs process for every queued command on a single goroutine until
// the runtime is ended. onEnd runs on that goroutine before done is closed.
func (runtime *pipelineRuntime) start(process func(command any), onEnd func()) (started bool) {
	if runtime.isClosed() {
		return false
	}

	runtime.startOnce.Do(func() {
		if runtime.isClosed() {
			return
		}

		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)
			defer onEnd()

			for {
				select {
				case <-runtime.closeCh:
					return
				case command := <-runtime.queue:
					if runtime.isClosed() {
						return
					}
					process(command)
				}
			}
		}()
	})

	return started
}

func (runtime *pipelineRuntime) end() {
	runtime.endOnce.Do(func() {
		close(runtime.closeCh)
	})
}

func (runtime *pipelineRuntime) waitUntilEnded() {
	if runtime.started.Load() {
		<-runtime.done
	}
}

// enqueue blocks until the command is queued or the runtime is ended. Before
// the runtime is started commands are buffered up to the queue capacity and
// anything beyond that is dropped, since nothing would ever drain it.
func (runtime *pipelineRuntime) enqueue(command any) bool {
	if runtime.isClosed() {
		return false
	}
	if !runtime.started.Load() {
		return runtime.tryEnqueue(command)
	}

	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- command:
		return true
	}
}

// tryEnqueue queues the command only if there is room right now.
func (runtime *pipelineRuntime) tryEnqueue(command any) bool {
	if runtime.isClosed() {
		return false
	}

	select {
	case runtime.queue <- command:
		return true
	default:
		return false
	}
}

// call enqueues a command carrying done and waits until the pipeline
// goroutine has handled it.
func (runtime *pipelineRuntime) call(command any, done chan struct{}) bool {
	if !runtime.started.Load() || !runtime.enqueue(command) {
		return false
	}

	select {
	case <-done:
		return true
	case <-runtime.done:
		return false
	}
}

func (runtime *pipelineRuntime) isClosed() bool {
	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}

func (runtime *pipelineRuntime) queuedCommandCount() int {
	return len(runtime.queue)
}
