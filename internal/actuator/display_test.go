package actuator

import (
	"testing"

	"github.com/sweeney/signalctl/internal/coordinator"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/periph"
)

func TestDisplayThrottlesToCadence(t *testing.T) {
	src := newStubSource(logic.StateStable)
	fd := periph.NewFakeDisplay()
	d := NewDisplay(src, fd, ms(50), FloodLines)

	for at := 0; at <= 100; at += 10 {
		d.Step(t0.Add(ms(at)))
	}

	// 0, 50, 100
	if n := len(fd.Renders()); n != 3 {
		t.Errorf("renders: got %d, want 3", n)
	}
}

func TestDisplayRepaintsOnStateChange(t *testing.T) {
	src := newStubSource(logic.StateStable)
	fd := periph.NewFakeDisplay()
	d := NewDisplay(src, fd, ms(50), FloodLines)

	d.Step(t0)
	src.set(logic.StateHeavyRain)
	d.Step(t0.Add(ms(20)))
	if got := fd.Last()[2]; got != "Heavy rain!" {
		t.Errorf("label: got %q, want %q", got, "Heavy rain!")
	}

	// Cadence restarts from the repaint.
	d.Step(t0.Add(ms(60)))
	d.Step(t0.Add(ms(70)))
	if n := len(fd.Renders()); n != 3 {
		t.Errorf("renders: got %d, want 3", n)
	}
}

func TestDisplayRepaintsOnModeChange(t *testing.T) {
	src := newStubSource(logic.StateGreen)
	fd := periph.NewFakeDisplay()
	d := NewDisplay(src, fd, ms(1000), TrafficLines)

	d.Step(t0)
	src.setMode(logic.ModeAlternate)
	d.Step(t0.Add(ms(10)))

	if got := fd.Last()[2]; got != "Mode: NIGHT" {
		t.Errorf("mode line: got %q, want %q", got, "Mode: NIGHT")
	}
}

func TestFloodLines(t *testing.T) {
	src := newStubSource(logic.StateWaterOverflow)
	src.setReading(logic.Reading{WaterLevel: 85, RainLevel: 40})

	got := FloodLines(src.Snapshot())
	want := []string{"Water: 85.0%", "Rain: 40.0%", "Water overflow!"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFloodLinesBeforeFirstReading(t *testing.T) {
	got := FloodLines(coordinator.Snapshot{Record: logic.StateRecord{State: logic.StateStable}})
	if got[0] != "Water: --" || got[1] != "Rain: --" {
		t.Errorf("got %q", got)
	}
}

func TestLabelUnknownState(t *testing.T) {
	if got := Label("ODD"); got != "ODD" {
		t.Errorf("got %q, want ODD", got)
	}
}

func TestDisplayOff(t *testing.T) {
	src := newStubSource(logic.StateGreen)
	fd := periph.NewFakeDisplay()
	d := NewDisplay(src, fd, ms(1000), TrafficLines)

	d.Step(t0)
	d.Off()
	if fd.Clears() != 1 {
		t.Errorf("clears: got %d, want 1", fd.Clears())
	}
}
