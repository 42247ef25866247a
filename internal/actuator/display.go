package actuator

import (
	"fmt"
	"time"

	"github.com/sweeney/signalctl/internal/coordinator"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/periph"
)

// Formatter turns a snapshot into display lines.
type Formatter func(coordinator.Snapshot) []string

// Display repaints immediately when the state or mode changes and otherwise
// once per cadence.
type Display struct {
	src     Source
	out     periph.Display
	cadence time.Duration
	format  Formatter

	started bool
	state   logic.State
	mode    logic.Mode
	paintAt time.Time
}

// NewDisplay creates a display driver.
func NewDisplay(src Source, out periph.Display, cadence time.Duration, format Formatter) *Display {
	return &Display{
		src:     src,
		out:     out,
		cadence: cadence,
		format:  format,
	}
}

// Step repaints if the state changed or the cadence elapsed.
func (d *Display) Step(now time.Time) {
	snap := d.src.Snapshot()

	changed := !d.started || snap.Record.State != d.state || snap.Mode != d.mode
	if !changed && now.Sub(d.paintAt) < d.cadence {
		return
	}

	d.started = true
	d.state = snap.Record.State
	d.mode = snap.Mode
	d.paintAt = now
	d.out.RenderText(d.format(snap))
}

// Off clears the display.
func (d *Display) Off() {
	d.out.ClearDisplay()
	d.started = false
}

var stateLabels = map[logic.State]string{
	logic.StateStable:        "Stable",
	logic.StateWaterOverflow: "Water overflow!",
	logic.StateHeavyRain:     "Heavy rain!",
	logic.StateBothCritical:  "FLOOD ALERT",
	logic.StateGreen:         "Go",
	logic.StateYellow:        "Caution",
	logic.StateRed:           "Stop",
	logic.StateNightBlinkOn:  "Night: caution",
	logic.StateNightBlinkOff: "Night: caution",
}

// Label returns the human-readable name of s, or the raw name if unknown.
func Label(s logic.State) string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return string(s)
}

// FloodLines shows both levels and the alert.
func FloodLines(s coordinator.Snapshot) []string {
	water, rain := "Water: --", "Rain: --"
	if r := s.Reading; r != nil {
		water = fmt.Sprintf("Water: %.1f%%", r.WaterLevel)
		rain = fmt.Sprintf("Rain: %.1f%%", r.RainLevel)
	}
	return []string{water, rain, Label(s.Record.State)}
}

// TrafficLines shows the light and mode.
func TrafficLines(s coordinator.Snapshot) []string {
	return []string{
		"Traffic light",
		"State: " + Label(s.Record.State),
		"Mode: " + string(s.Mode),
	}
}
