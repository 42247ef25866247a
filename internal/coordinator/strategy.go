package coordinator

import (
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

// Strategy decides which state should be current. Implementations must be
// pure: the same snapshot and instant always yield the same state.
type Strategy interface {
	// Initial returns the state entered at power-up or on a switch into mode.
	Initial(mode logic.Mode) logic.State
	// Reseed returns the state to enter when switching into mode.
	Reseed(s Snapshot, mode logic.Mode) logic.State
	// Evaluate returns the state that should be current at now, and the
	// cause if it differs from s.Record.State.
	Evaluate(s Snapshot, now time.Time) (logic.State, logic.Cause)
}

// Level is the flood monitor discipline: the state is a pure function of the
// latest reading, replaced on every reading with no dwell and no debounce.
type Level struct {
	Classifier interface {
		Classify(logic.Reading) logic.State
	}
}

// Initial is always STABLE; mode does not select a table for level states.
func (Level) Initial(logic.Mode) logic.State {
	return logic.StateStable
}

// Reseed keeps the current state: readings, not the mode, drive level states.
func (Level) Reseed(s Snapshot, _ logic.Mode) logic.State {
	return s.Record.State
}

// Evaluate classifies the latest reading.
func (l Level) Evaluate(s Snapshot, _ time.Time) (logic.State, logic.Cause) {
	if s.Reading == nil {
		return s.Record.State, ""
	}
	return l.Classifier.Classify(*s.Reading), logic.CauseReading
}

// Timed is the traffic light discipline: states advance when their dwell time
// has elapsed since entry.
type Timed struct {
	Table logic.CycleTable
}

// Initial returns the mode's entry state.
func (t Timed) Initial(mode logic.Mode) logic.State {
	return t.Table.First(mode)
}

// Reseed forces entry into the target mode's first state.
func (t Timed) Reseed(_ Snapshot, mode logic.Mode) logic.State {
	return t.Table.First(mode)
}

// Evaluate moves at most one step along the table.
func (t Timed) Evaluate(s Snapshot, now time.Time) (logic.State, logic.Cause) {
	if !t.Table.Due(s.Record, now) {
		return s.Record.State, ""
	}
	return t.Table.Next(s.Record.State, s.Mode), logic.CauseDwell
}
