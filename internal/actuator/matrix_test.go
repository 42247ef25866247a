package actuator

import (
	"testing"

	"github.com/sweeney/signalctl/internal/frames"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/periph"
)

func TestMatrixIndexAdvancesAndWraps(t *testing.T) {
	src := newStubSource(logic.StateWaterOverflow)
	fm := periph.NewFakeMatrix()
	m := NewMatrix(src, fm, FloodFamilies(), ms(10), 1, nil)

	n := len(frames.Wave.Frames)
	for i := 0; i < 2*n+1; i++ {
		m.Step(t0.Add(ms(10 * i)))
		if want := i % n; m.Index() != want {
			t.Fatalf("pass %d: index %d, want %d", i, m.Index(), want)
		}
	}
	if got := len(fm.Frames()); got != 2*n+1 {
		t.Errorf("frames rendered: got %d, want %d", got, 2*n+1)
	}
}

func TestMatrixHoldsFrameWithinPeriod(t *testing.T) {
	src := newStubSource(logic.StateWaterOverflow)
	m := NewMatrix(src, periph.NewFakeMatrix(), FloodFamilies(), ms(10), 1, nil)

	m.Step(t0)
	m.Step(t0.Add(ms(5)))
	if m.Index() != 0 {
		t.Errorf("index advanced before period: %d", m.Index())
	}
}

func TestMatrixSameFamilyKeepsIndex(t *testing.T) {
	src := newStubSource(logic.StateWaterOverflow)
	m := NewMatrix(src, periph.NewFakeMatrix(), FloodFamilies(), ms(10), 1, nil)

	m.Step(t0)
	m.Step(t0.Add(ms(10)))
	m.Step(t0.Add(ms(20)))

	src.set(logic.StateBothCritical)
	m.Step(t0.Add(ms(30)))
	if m.Index() != 3 {
		t.Errorf("index after same-family change: got %d, want 3", m.Index())
	}
}

func TestMatrixFamilyChangeResets(t *testing.T) {
	src := newStubSource(logic.StateWaterOverflow)
	fm := periph.NewFakeMatrix()
	m := NewMatrix(src, fm, FloodFamilies(), ms(10), 1, nil)

	m.Step(t0)
	m.Step(t0.Add(ms(10)))
	m.Step(t0.Add(ms(20)))

	src.set(logic.StateStable)
	m.Step(t0.Add(ms(25)))
	if m.Index() != 0 || m.Family() != frames.Dark.Name {
		t.Errorf("after Stable: family %s index %d", m.Family(), m.Index())
	}
	if fm.Clears() != 1 {
		t.Errorf("clears: got %d, want 1", fm.Clears())
	}

	src.set(logic.StateHeavyRain)
	m.Step(t0.Add(ms(30)))
	if m.Index() != 0 || m.Family() != frames.Wave.Name {
		t.Errorf("after re-alert: family %s index %d", m.Family(), m.Index())
	}
}

func TestMatrixNightBlink(t *testing.T) {
	src := newStubSource(logic.StateNightBlinkOn)
	fm := periph.NewFakeMatrix()
	m := NewMatrix(src, fm, TrafficFamilies(), ms(38), 0.5, nil)

	m.Step(t0)
	if len(fm.Frames()) != 1 || fm.Frames()[0][0][0] != frames.Yellow.Scale(0.5) {
		t.Fatalf("blink on: got %v", fm.Frames())
	}

	src.set(logic.StateNightBlinkOff)
	m.Step(t0.Add(ms(1500)))
	if fm.Clears() != 1 {
		t.Errorf("blink off should clear, clears=%d", fm.Clears())
	}
}

func TestMatrixStaticFamilyRendersOnce(t *testing.T) {
	src := newStubSource(logic.StateRed)
	fm := periph.NewFakeMatrix()
	m := NewMatrix(src, fm, TrafficFamilies(), ms(38), 1, nil)

	for i := 0; i < 10; i++ {
		m.Step(t0.Add(ms(38 * i)))
	}
	if got := len(fm.Frames()); got != 1 {
		t.Errorf("solid light rendered %d times, want 1", got)
	}
}

func TestMatrixOutOfRangeIndexClamped(t *testing.T) {
	src := newStubSource(logic.StateWaterOverflow)
	reg := metrics.New()
	fm := periph.NewFakeMatrix()
	m := NewMatrix(src, fm, FloodFamilies(), ms(10), 1, reg)

	m.Step(t0)
	m.index = 99
	m.render()

	if m.Index() != 0 {
		t.Errorf("index: got %d, want 0", m.Index())
	}
	if got := counterValue(t, reg, "signalctl_actuator_clamps_total"); got != 1 {
		t.Errorf("clamps: got %v, want 1", got)
	}
	if got := len(fm.Frames()); got != 2 {
		t.Errorf("rendering should continue after clamp, frames=%d", got)
	}
}

func TestMatrixUnknownStateDark(t *testing.T) {
	src := newStubSource(logic.State("MYSTERY"))
	reg := metrics.New()
	fm := periph.NewFakeMatrix()
	m := NewMatrix(src, fm, FloodFamilies(), ms(10), 1, reg)

	for i := 0; i < 5; i++ {
		m.Step(t0.Add(ms(10 * i)))
	}
	if m.Family() != frames.Dark.Name {
		t.Errorf("family: got %s, want dark", m.Family())
	}
	if got := counterValue(t, reg, "signalctl_actuator_clamps_total"); got != 1 {
		t.Errorf("clamps: got %v, want 1", got)
	}
}
