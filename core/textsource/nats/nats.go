// Package nats receives text to speak from a NATS subject, letting other
// processes feed the pipeline.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/koscakluka/clipspeak/core/textsource"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const (
	scopeName = "github.com/koscakluka/clipspeak/core/textsource/nats"

	DefaultSubject = "clipspeak.text"
)

var (
	logger = otelslog.NewLogger(scopeName)

	ErrAlreadyStarted = errors.New("nats source already started")
)

// Source treats every message on subject as a text change.
type Source struct {
	conn     *nats.Conn
	ownsConn bool
	subject  string
	emitter  textsource.Emitter

	mu  sync.Mutex
	sub *nats.Subscription
}

// New uses an existing connection, which stays open after Close.
func New(conn *nats.Conn, subject string) *Source {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Source{conn: conn, subject: subject}
}

// Connect dials url and returns a source owning the connection.
func Connect(url, subject string, opts ...nats.Option) (*Source, error) {
	opts = append([]nats.Option{nats.Name("clipspeak")}, opts...)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	source := New(conn, subject)
	source.ownsConn = true
	logger.Info("connected to NATS", slog.String("url", url), slog.String("subject", source.subject))
	return source, nil
}

func (s *Source) Start(ctx context.Context, onChange func(textsource.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return ErrAlreadyStarted
	}

	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		s.emitter.Emit(string(msg.Data), onChange)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub

	return nil
}

// Stop unsubscribes. Calling it more than once, or before Start, is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
		return fmt.Errorf("unsubscribe from %s: %w", s.subject, err)
	}
	return nil
}

// Close stops the source and drains the connection if the source dialled it.
func (s *Source) Close() error {
	err := s.Stop()
	if s.ownsConn {
		if drainErr := s.conn.Drain(); drainErr != nil && !errors.Is(drainErr, nats.ErrConnectionClosed) {
			err = errors.Join(err, drainErr)
		}
	}
	return err
}
