package events

// KindSynthesisFailed identifies a failed synthesis request.
const KindSynthesisFailed Kind = "synthesis.failed"

// SynthesisFailed carries the error of a failed synthesis request.
type SynthesisFailed struct {
	Base
	CycleID string
	Err     error
}

// NewSynthesisFailed creates a synthesis failed event.
func NewSynthesisFailed(cycleID string, err error) SynthesisFailed {
	return SynthesisFailed{Base: NewBase(KindSynthesisFailed), CycleID: cycleID, Err: err}
}
