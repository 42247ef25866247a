package logic

import "time"

// CycleTimings are the dwell times of the timed cycle.
type CycleTimings struct {
	Green    time.Duration
	Yellow   time.Duration
	Red      time.Duration
	NightOn  time.Duration
	NightOff time.Duration
}

// CycleTable is the transition table of the traffic light.
//
//	Normal: GREEN -> YELLOW -> RED -> GREEN
//	Night:  NIGHT_BLINK_ON -> NIGHT_BLINK_OFF -> NIGHT_BLINK_ON
type CycleTable struct {
	timings CycleTimings
}

// NewCycleTable creates a table with the given dwell times.
func NewCycleTable(t CycleTimings) CycleTable {
	return CycleTable{timings: t}
}

// First returns the entry state of a mode.
func (c CycleTable) First(mode Mode) State {
	if mode == ModeAlternate {
		return StateNightBlinkOn
	}
	return StateGreen
}

// Next returns the successor of s within mode. A state that does not belong
// to mode leads back to the mode's first state.
func (c CycleTable) Next(s State, mode Mode) State {
	if mode == ModeAlternate {
		switch s {
		case StateNightBlinkOn:
			return StateNightBlinkOff
		default:
			return StateNightBlinkOn
		}
	}

	switch s {
	case StateGreen:
		return StateYellow
	case StateYellow:
		return StateRed
	default:
		return StateGreen
	}
}

// Dwell returns how long s stays current. Unknown states have zero dwell so
// the next Advance moves them back onto the table.
func (c CycleTable) Dwell(s State) time.Duration {
	switch s {
	case StateGreen:
		return c.timings.Green
	case StateYellow:
		return c.timings.Yellow
	case StateRed:
		return c.timings.Red
	case StateNightBlinkOn:
		return c.timings.NightOn
	case StateNightBlinkOff:
		return c.timings.NightOff
	default:
		return 0
	}
}

// Due reports whether rec has dwelt long enough at now.
func (c CycleTable) Due(rec StateRecord, now time.Time) bool {
	return now.Sub(rec.Since) >= c.Dwell(rec.State)
}
