package driver

import (
	"time"

	"refaudit/internal/observ"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a pipeline phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Compile and Audit.
type PhaseObserver func(PhaseEvent)

// phaseTracker records phases on a timer and mirrors them to an observer.
type phaseTracker struct {
	timer    *observ.Timer
	observer PhaseObserver
}

// begin starts a phase; the returned func ends it with a note.
func (p phaseTracker) begin(name string) func(note string) {
	idx := p.timer.Begin(name)
	if p.observer != nil {
		p.observer(PhaseEvent{Name: name, Status: PhaseStart})
	}
	start := time.Now()
	return func(note string) {
		p.timer.End(idx, note)
		if p.observer != nil {
			p.observer(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
		}
	}
}
