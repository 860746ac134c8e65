// Package textsource holds what every text change source shares: the event
// type and the rule for which changes are worth reporting.
package textsource

import (
	"strings"
	"sync/atomic"
)

// Event is one observed change of the watched text buffer.
type Event struct {
	Text string
	// Seq increases with every event emitted by the same source
	Seq uint64
}

// Emitter filters changes and stamps the ones that pass with a sequence
// number. The zero value is ready to use.
type Emitter struct {
	seq atomic.Uint64
}

// Emit calls onChange for text unless it is empty or only whitespace. It
// reports whether an event was emitted.
func (e *Emitter) Emit(text string, onChange func(Event)) bool {
	if IsBlank(text) || onChange == nil {
		return false
	}
	onChange(Event{Text: text, Seq: e.seq.Add(1)})
	return true
}

func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
