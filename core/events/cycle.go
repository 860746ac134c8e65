package events

const (
	// KindCycleStarted identifies the start of a new pipeline cycle.
	KindCycleStarted Kind = "cycle.started"
	// KindCycleCancelled identifies a cycle that was superseded or stopped.
	KindCycleCancelled Kind = "cycle.cancelled"
)

// CycleStarted marks that a cycle took over and started synthesis.
type CycleStarted struct {
	Base
	CycleID    string
	Generation uint64
	Text       string
}

// NewCycleStarted creates a cycle started event.
func NewCycleStarted(cycleID string, generation uint64, text string) CycleStarted {
	return CycleStarted{
		Base:       NewBase(KindCycleStarted),
		CycleID:    cycleID,
		Generation: generation,
		Text:       text,
	}
}

// CycleCancelled marks that a running cycle was abandoned.
type CycleCancelled struct {
	Base
	CycleID    string
	Generation uint64
}

// NewCycleCancelled creates a cycle cancelled event.
func NewCycleCancelled(cycleID string, generation uint64) CycleCancelled {
	return CycleCancelled{Base: NewBase(KindCycleCancelled), CycleID: cycleID, Generation: generation}
}
