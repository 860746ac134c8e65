// Package clipboard watches the system clipboard by polling it.
package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/koscakluka/clipspeak/core/textsource"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const (
	scopeName = "github.com/koscakluka/clipspeak/core/textsource/clipboard"

	DefaultPollInterval = 250 * time.Millisecond
)

var (
	logger = otelslog.NewLogger(scopeName)

	ErrUnsupported    = errors.New("clipboard is not supported on this system")
	ErrAlreadyStarted = errors.New("clipboard source already started")
)

// Source reports clipboard content changes. Whatever is on the clipboard
// when monitoring starts is treated as already seen.
type Source struct {
	interval time.Duration
	read     func() (string, error)
	emitter  textsource.Emitter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Source)

func WithPollInterval(interval time.Duration) Option {
	return func(s *Source) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithReader replaces the system clipboard, mostly useful in tests
func WithReader(read func() (string, error)) Option {
	return func(s *Source) {
		if read != nil {
			s.read = read
		}
	}
}

func New(opts ...Option) *Source {
	s := &Source{interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Start(ctx context.Context, onChange func(textsource.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	read := s.read
	if read == nil {
		if clipboard.Unsupported {
			return ErrUnsupported
		}
		read = clipboard.ReadAll
	}

	// A failed baseline read just means the first successful read counts as
	// a change
	last, _ := read()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.poll(ctx, read, last, onChange)
	}()

	return nil
}

func (s *Source) poll(ctx context.Context, read func() (string, error), last string, onChange func(textsource.Event)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		text, err := read()
		if err != nil {
			// Usually another process holding the clipboard
			logger.Debug("clipboard read failed", slog.String("error", err.Error()))
			continue
		}
		if text == last {
			continue
		}
		last = text

		if ctx.Err() != nil {
			return
		}
		s.emitter.Emit(text, onChange)
	}
}

// Stop ends monitoring and waits for the poller to exit. Calling it more than
// once, or before Start, is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
