package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/clipspeak/core"
	"github.com/koscakluka/clipspeak/core/events"
	"github.com/muesli/reflow/truncate"
)

const (
	volumeStep      = 0.05
	maxActivityRows = 6
	voicesTimeout   = 10 * time.Second
	eventBufferSize = 64
	defaultWidth    = 80
)

// controller is the part of the coordinator the terminal UI drives.
type controller interface {
	Stop()
	SpeakText(text string) bool
	SetEnabled(enabled bool)
	Enabled() bool
	SetVolume(v float64)
	Settings() orchestration.Settings
	Status() orchestration.Status
	Voices(ctx context.Context) []string
}

type keyMap struct {
	Stop       key.Binding
	Repeat     key.Binding
	Pause      key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Voices     key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Stop:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop speech")),
		Repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat last")),
		Pause:      key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "=", "up"), key.WithHelp("+", "louder")),
		VolumeDown: key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("-", "quieter")),
		Voices:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "list voices")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Repeat, k.Pause, k.VolumeUp, k.VolumeDown, k.Voices, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type (
	pipelineEventMsg struct{ event events.Event }
	voicesMsg        []string
	stoppedMsg       struct{}
	repeatMsg        struct{ queued bool }
)

type model struct {
	controller controller
	pipeline   <-chan events.Event

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width    int
	lastText string
	lastErr  string
	voices   []string
	activity []string
}

func newModel(c controller, pipeline <-chan events.Event) *model {
	return &model{
		controller: c,
		pipeline:   pipeline,
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:      defaultWidth,
	}
}

// eventForwarder returns a handler for the coordinator that hands events to
// the UI without ever blocking the pipeline, and the channel the UI reads
// them from.
func eventForwarder() (func(events.Event), <-chan events.Event) {
	ch := make(chan events.Event, eventBufferSize)
	return func(event events.Event) {
		select {
		case ch <- event:
		default:
		}
	}, ch
}

func waitForPipelineEvent(pipeline <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-pipeline
		if !ok {
			return nil
		}
		return pipelineEventMsg{event: event}
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForPipelineEvent(m.pipeline))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pipelineEventMsg:
		m.handleEvent(msg.event)
		return m, waitForPipelineEvent(m.pipeline)

	case voicesMsg:
		m.voices = msg
		if len(msg) == 0 {
			m.addActivity("no voices available")
		} else {
			m.addActivity(fmt.Sprintf("%d voices available", len(msg)))
		}
		return m, nil

	case stoppedMsg:
		m.addActivity("speech stopped")
		return m, nil

	case repeatMsg:
		if !msg.queued {
			m.addActivity("pipeline busy, repeat dropped")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey runs every coordinator call that goes through the pipeline queue
// inside a command, so a busy pipeline never stalls the UI.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		c := m.controller
		return m, func() tea.Msg {
			c.Stop()
			return stoppedMsg{}
		}

	case key.Matches(msg, m.keys.Repeat):
		if m.lastText == "" {
			return m, nil
		}
		c, text := m.controller, m.lastText
		return m, func() tea.Msg {
			return repeatMsg{queued: c.SpeakText(text)}
		}

	case key.Matches(msg, m.keys.Pause):
		enabled := !m.controller.Enabled()
		m.controller.SetEnabled(enabled)
		if enabled {
			m.addActivity("monitoring resumed")
		} else {
			m.addActivity("monitoring paused")
		}
		return m, nil

	case key.Matches(msg, m.keys.VolumeUp):
		m.controller.SetVolume(m.controller.Settings().Volume + volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.VolumeDown):
		m.controller.SetVolume(m.controller.Settings().Volume - volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.Voices):
		c := m.controller
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), voicesTimeout)
			defer cancel()
			return voicesMsg(c.Voices(ctx))
		}
	}

	return m, nil
}

func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.TextChanged:
		if e.Ignored {
			m.addActivity("ignored text while paused")
		}
	case events.CycleStarted:
		m.lastText = e.Text
		m.lastErr = ""
		m.addActivity("synthesising")
	case events.CycleCancelled:
		m.addActivity("superseded")
	case events.SynthesisFailed:
		m.lastErr = e.Err.Error()
		m.addActivity("synthesis failed")
	case events.PlaybackStarted:
		m.addActivity(fmt.Sprintf("playing %s", e.Container))
	case events.PlaybackEnded:
		if !e.Stopped {
			m.addActivity("finished")
		}
	case events.PlaybackFailed:
		m.lastErr = e.Err.Error()
		m.addActivity("playback failed")
	}
}

func (m *model) addActivity(line string) {
	m.activity = append(m.activity, time.Now().Format("15:04:05")+" "+line)
	if len(m.activity) > maxActivityRows {
		m.activity = m.activity[len(m.activity)-maxActivityRows:]
	}
}

func (m *model) View() string {
	width := max(m.width-4, 20)
	settings := m.controller.Settings()
	status := m.controller.Status()

	var b strings.Builder
	b.WriteString(titleStyle.Render("clipspeak"))
	b.WriteString("\n\n")

	state := status.State.String()
	if status.State != orchestration.StateIdle {
		state = m.spinner.View() + " " + state
	}
	if !settings.Enabled {
		state += " " + pausedStyle.Render("(paused)")
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("state: "), state)
	fmt.Fprintf(&b, "%s %s  %s %.2fx  %s %d%%\n",
		labelStyle.Render("voice: "), orDash(settings.Voice),
		labelStyle.Render("speed:"), settings.Speed,
		labelStyle.Render("volume:"), int(settings.Volume*100+0.5))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("last:  "), truncate.StringWithTail(oneLine(orDash(m.lastText)), uint(width-8), "…"))
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(truncate.StringWithTail(oneLine(m.lastErr), uint(width), "…")))
		b.WriteString("\n")
	}
	if len(m.voices) > 0 {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("voices:"), truncate.StringWithTail(strings.Join(m.voices, ", "), uint(width-8), "…"))
	}

	if len(m.activity) > 0 {
		b.WriteString("\n")
		b.WriteString(activityStyle.Render(strings.Join(m.activity, "\n")))
		b.WriteString("\n")
	}

	return panelStyle.Width(width).Render(b.String()) + "\n" + m.help.View(m.keys) + "\n"
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func orDash(text string) string {
	if strings.TrimSpace(text) == "" {
		return "-"
	}
	return text
}
