package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/clipspeak/core/textsource"
)

type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *fakeClipboard) set(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.err = nil
}

func (c *fakeClipboard) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeClipboard) read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.err
}

func waitForEvent(t *testing.T, events <-chan textsource.Event) textsource.Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for clipboard event")
		return textsource.Event{}
	}
}

func expectNoEvent(t *testing.T, events <-chan textsource.Event) {
	t.Helper()
	select {
	case event := <-events:
		t.Fatalf("expected no event, got %+v", event)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSourceEmitsOncePerChange(t *testing.T) {
	board := &fakeClipboard{text: "already there"}
	source := New(WithReader(board.read), WithPollInterval(time.Millisecond))

	events := make(chan textsource.Event, 10)
	if err := source.Start(context.Background(), func(e textsource.Event) { events <- e }); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer source.Stop()

	expectNoEvent(t, events)

	board.set("hello")
	if event := waitForEvent(t, events); event.Text != "hello" {
		t.Fatalf("expected hello, got %q", event.Text)
	}
	expectNoEvent(t, events)

	board.set("world")
	if event := waitForEvent(t, events); event.Text != "world" {
		t.Fatalf("expected world, got %q", event.Text)
	}
}

func TestSourceSkipsWhitespaceAndReadFailures(t *testing.T) {
	board := &fakeClipboard{}
	source := New(WithReader(board.read), WithPollInterval(time.Millisecond))

	events := make(chan textsource.Event, 10)
	_ = source.Start(context.Background(), func(e textsource.Event) { events <- e })
	defer source.Stop()

	board.set("   \n")
	expectNoEvent(t, events)

	board.fail(errors.New("clipboard locked"))
	expectNoEvent(t, events)

	board.set("text")
	if event := waitForEvent(t, events); event.Text != "text" {
		t.Fatalf("expected text after recovering, got %q", event.Text)
	}
}

func TestSourceStopIsIdempotent(t *testing.T) {
	board := &fakeClipboard{}
	source := New(WithReader(board.read), WithPollInterval(time.Millisecond))

	if err := source.Stop(); err != nil {
		t.Fatalf("expected stop before start to be a no-op, got %v", err)
	}

	events := make(chan textsource.Event, 10)
	_ = source.Start(context.Background(), func(e textsource.Event) { events <- e })
	if err := source.Start(context.Background(), func(textsource.Event) {}); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	_ = source.Stop()
	_ = source.Stop()

	board.set("after stop")
	expectNoEvent(t, events)
}
