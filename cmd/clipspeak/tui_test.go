package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/clipspeak/core"
	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/core/events"
)

type fakeController struct {
	mu       sync.Mutex
	settings orchestration.Settings
	status   orchestration.Status
	stops    int
	spoken   []string
	busy     bool
	voices   []string
}

func newFakeController() *fakeController {
	settings := orchestration.DefaultSettings()
	settings.Voice = "af_bella"
	settings.Volume = 0.5
	return &fakeController{settings: settings}
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeController) SpeakText(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.spoken = append(f.spoken, text)
	return true
}

func (f *fakeController) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.Enabled = enabled
}

func (f *fakeController) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Enabled
}

func (f *fakeController) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.Volume = min(max(v, 0), 1)
}

func (f *fakeController) Settings() orchestration.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeController) Status() orchestration.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Voices(context.Context) []string {
	return f.voices
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestStopKeyRunsStopOutsideUpdate(t *testing.T) {
	c := newFakeController()
	m := newModel(c, make(chan events.Event))

	_, cmd := m.Update(keyPress('s'))
	if cmd == nil {
		t.Fatalf("expected stop to be returned as a command")
	}
	if c.stops != 0 {
		t.Fatalf("expected stop not to run inside Update")
	}

	msg := cmd()
	if _, ok := msg.(stoppedMsg); !ok {
		t.Fatalf("expected stoppedMsg, got %T", msg)
	}
	if c.stops != 1 {
		t.Fatalf("expected one stop, got %d", c.stops)
	}
}

func TestPauseKeyTogglesEnabled(t *testing.T) {
	c := newFakeController()
	m := newModel(c, make(chan events.Event))

	m.Update(keyPress('p'))
	if c.Enabled() {
		t.Fatalf("expected monitoring to be paused")
	}
	if !strings.Contains(m.View(), "(paused)") {
		t.Fatalf("expected view to show paused state")
	}

	m.Update(keyPress('p'))
	if !c.Enabled() {
		t.Fatalf("expected monitoring to be resumed")
	}
}

func TestVolumeKeysStepVolume(t *testing.T) {
	c := newFakeController()
	m := newModel(c, make(chan events.Event))

	m.Update(keyPress('+'))
	if got := c.Settings().Volume; got < 0.549 || got > 0.551 {
		t.Fatalf("expected volume 0.55, got %v", got)
	}

	m.Update(keyPress('-'))
	m.Update(keyPress('-'))
	if got := c.Settings().Volume; got < 0.449 || got > 0.451 {
		t.Fatalf("expected volume 0.45, got %v", got)
	}
}

func TestVoicesKeyFetchesVoices(t *testing.T) {
	c := newFakeController()
	c.voices = []string{"af_bella", "am_adam"}
	m := newModel(c, make(chan events.Event))

	_, cmd := m.Update(keyPress('v'))
	if cmd == nil {
		t.Fatalf("expected voices command")
	}
	m.Update(cmd())

	if view := m.View(); !strings.Contains(view, "am_adam") {
		t.Fatalf("expected voices in view, got %q", view)
	}
}

func TestQuitKey(t *testing.T) {
	m := newModel(newFakeController(), make(chan events.Event))

	_, cmd := m.Update(keyPress('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestPipelineEventsUpdateView(t *testing.T) {
	c := newFakeController()
	m := newModel(c, make(chan events.Event))

	_, cmd := m.Update(pipelineEventMsg{event: events.NewCycleStarted("cycle", 1, "hello\nclipboard")})
	if cmd == nil {
		t.Fatalf("expected listener to be re-armed")
	}
	if view := m.View(); !strings.Contains(view, "hello clipboard") {
		t.Fatalf("expected last text on one line, got %q", view)
	}

	m.Update(pipelineEventMsg{event: events.NewPlaybackStarted("cycle", audio.ContainerMP3)})
	m.Update(pipelineEventMsg{event: events.NewSynthesisFailed("cycle", errors.New("endpoint unreachable"))})
	view := m.View()
	if !strings.Contains(view, "endpoint unreachable") {
		t.Fatalf("expected error in view, got %q", view)
	}
	if !strings.Contains(view, "playing mp3") {
		t.Fatalf("expected playback activity in view, got %q", view)
	}
}

func TestActivityIsBounded(t *testing.T) {
	m := newModel(newFakeController(), make(chan events.Event))
	for range maxActivityRows + 4 {
		m.Update(pipelineEventMsg{event: events.NewCycleCancelled("cycle", 1)})
	}
	if len(m.activity) != maxActivityRows {
		t.Fatalf("expected %d activity rows, got %d", maxActivityRows, len(m.activity))
	}
}

func TestEventForwarderNeverBlocks(t *testing.T) {
	forward, ch := eventForwarder()
	for range eventBufferSize + 10 {
		forward(events.NewCycleCancelled("cycle", 1))
	}
	if len(ch) != eventBufferSize {
		t.Fatalf("expected buffer to be full at %d, got %d", eventBufferSize, len(ch))
	}
}

func TestWaitForPipelineEvent(t *testing.T) {
	ch := make(chan events.Event, 1)
	ch <- events.NewCycleCancelled("cycle", 3)

	msg, ok := waitForPipelineEvent(ch)().(pipelineEventMsg)
	if !ok {
		t.Fatalf("expected pipelineEventMsg")
	}
	if cancelled, ok := msg.event.(events.CycleCancelled); !ok || cancelled.Generation != 3 {
		t.Fatalf("unexpected event %#v", msg.event)
	}

	close(ch)
	if msg := waitForPipelineEvent(ch)(); msg != nil {
		t.Fatalf("expected nil message once the channel closes, got %T", msg)
	}
}

func TestRepeatKeySpeaksLastTextOutsideUpdate(t *testing.T) {
	c := newFakeController()
	m := newModel(c, make(chan events.Event))

	if _, cmd := m.Update(keyPress('r')); cmd != nil {
		t.Fatalf("expected nothing to repeat yet")
	}

	m.Update(pipelineEventMsg{event: events.NewCycleStarted("cycle", 1, "say it again")})
	_, cmd := m.Update(keyPress('r'))
	if cmd == nil {
		t.Fatalf("expected repeat to be returned as a command")
	}
	if len(c.spoken) != 0 {
		t.Fatalf("expected repeat not to run inside Update")
	}

	m.Update(cmd())
	if len(c.spoken) != 1 || c.spoken[0] != "say it again" {
		t.Fatalf("expected last text to be repeated, got %v", c.spoken)
	}
}

func TestRepeatWhileBusyIsReported(t *testing.T) {
	c := newFakeController()
	c.busy = true
	m := newModel(c, make(chan events.Event))

	m.Update(pipelineEventMsg{event: events.NewCycleStarted("cycle", 1, "say it again")})
	_, cmd := m.Update(keyPress('r'))
	m.Update(cmd())

	if view := m.View(); !strings.Contains(view, "repeat dropped") {
		t.Fatalf("expected dropped repeat in view, got %q", view)
	}
}
