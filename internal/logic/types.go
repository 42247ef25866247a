// Package logic contains the pure controller logic: classification, timed
// cycles and input debouncing.
// This package has NO peripheral, network or OS dependencies and never sleeps.
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is one discrete alert or light state. Both controller variants share
// the type so they can share one state record.
type State string

// Flood monitor states.
const (
	StateStable        State = "STABLE"
	StateWaterOverflow State = "WATER_OVERFLOW"
	StateHeavyRain     State = "HEAVY_RAIN"
	StateBothCritical  State = "BOTH_CRITICAL"
)

// Traffic light states.
const (
	StateGreen         State = "GREEN"
	StateYellow        State = "YELLOW"
	StateRed           State = "RED"
	StateNightBlinkOn  State = "NIGHT_BLINK_ON"
	StateNightBlinkOff State = "NIGHT_BLINK_OFF"
)

// FloodStates lists the level-driven states in severity order.
var FloodStates = []State{StateStable, StateWaterOverflow, StateHeavyRain, StateBothCritical}

// TrafficStates lists every timed-cycle state.
var TrafficStates = []State{StateGreen, StateYellow, StateRed, StateNightBlinkOn, StateNightBlinkOff}

// Mode selects which transition table governs the timed cycle.
type Mode string

const (
	ModeNormal    Mode = "NORMAL"
	ModeAlternate Mode = "NIGHT"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeAlternate {
		return ModeNormal
	}
	return ModeAlternate
}

// Variant names a controller instance.
type Variant string

const (
	VariantFlood   Variant = "flood"
	VariantTraffic Variant = "traffic"
)

// Channel identifies an analog input.
type Channel int

// RawSample is one pair of bounded axis readings. Y feeds the water level and
// X the rain level.
type RawSample struct {
	Y  uint16
	X  uint16
	At time.Time
}

// Reading holds calibrated percentages. Values are not clamped to [0, 100].
type Reading struct {
	WaterLevel float64
	RainLevel  float64
	At         time.Time
}

// StateRecord is the current state and the instant it was entered.
// It is only ever replaced whole.
type StateRecord struct {
	State State
	Since time.Time
}

// Cause explains why a transition happened.
type Cause string

const (
	CauseReading Cause = "reading"
	CauseDwell   Cause = "dwell"
	CauseMode    Cause = "mode"
)

// Transition describes one replacement of the state record.
type Transition struct {
	Timestamp time.Time
	From      State
	To        State
	FromMode  Mode
	ToMode    Mode
	Cause     Cause
	Reading   *Reading
}

// ModeChanged reports whether the transition switched mode.
func (t Transition) ModeChanged() bool {
	return t.FromMode != t.ToMode
}
