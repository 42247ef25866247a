package coordinator

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logic"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

func trafficTable() logic.CycleTable {
	return logic.NewCycleTable(logic.CycleTimings{
		Green:    10000 * time.Millisecond,
		Yellow:   2000 * time.Millisecond,
		Red:      5000 * time.Millisecond,
		NightOn:  1500 * time.Millisecond,
		NightOff: 500 * time.Millisecond,
	})
}

func newTraffic(reset bool) *Coordinator {
	return New(Timed{Table: trafficTable()}, Options{
		Start:                  t0,
		Debounce:               200 * time.Millisecond,
		ResetDwellOnModeSwitch: reset,
	})
}

func newFlood(t *testing.T) *Coordinator {
	t.Helper()
	cls, err := logic.NewClassifier(
		logic.Bounds{Min: 11, Max: 4074},
		logic.Calibration{CenterY: 2000, CenterX: 2000},
		logic.Thresholds{Water: 70, Rain: 80},
	)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return New(Level{Classifier: cls}, Options{Start: t0, Debounce: 200 * time.Millisecond})
}

func TestInitialState(t *testing.T) {
	st, mode := newTraffic(true).Current()
	if st != logic.StateGreen || mode != logic.ModeNormal {
		t.Errorf("traffic: got (%s, %s), want (GREEN, NORMAL)", st, mode)
	}
	st, mode = newFlood(t).Current()
	if st != logic.StateStable || mode != logic.ModeNormal {
		t.Errorf("flood: got (%s, %s), want (STABLE, NORMAL)", st, mode)
	}
}

func TestAdvanceGreenToYellowAtDwell(t *testing.T) {
	c := newTraffic(true)

	if _, ok := c.Advance(ms(9999)); ok {
		t.Fatal("transition before dwell elapsed")
	}
	if st, _ := c.Current(); st != logic.StateGreen {
		t.Fatalf("at 9999ms: got %s, want GREEN", st)
	}

	tr, ok := c.Advance(ms(10000))
	if !ok {
		t.Fatal("expected transition at 10000ms")
	}
	if tr.From != logic.StateGreen || tr.To != logic.StateYellow {
		t.Errorf("transition: got %s->%s, want GREEN->YELLOW", tr.From, tr.To)
	}
	if tr.Cause != logic.CauseDwell {
		t.Errorf("cause: got %s, want dwell", tr.Cause)
	}
	snap := c.Snapshot()
	if !snap.Record.Since.Equal(ms(10000)) {
		t.Errorf("Since: got %v, want %v", snap.Record.Since, ms(10000))
	}
}

func TestAdvanceIsIdempotentBeforeDue(t *testing.T) {
	c := newTraffic(true)
	before := c.Snapshot()
	for i := 0; i < 100; i++ {
		c.Advance(ms(i * 99))
	}
	after := c.Snapshot()
	if after.Seq != before.Seq || after.Record != before.Record {
		t.Errorf("snapshot changed before due: %+v -> %+v", before, after)
	}
}

func TestAdvanceNeverDoubleSteps(t *testing.T) {
	c := newTraffic(true)
	// Far past GREEN+YELLOW+RED: still exactly one step.
	tr, ok := c.Advance(ms(60000))
	if !ok || tr.To != logic.StateYellow {
		t.Fatalf("got (%v, %s), want one step to YELLOW", ok, tr.To)
	}
	if _, ok := c.Advance(ms(60000)); ok {
		t.Error("second Advance at the same instant must be a no-op")
	}
}

func TestAdvanceFullCycle(t *testing.T) {
	c := newTraffic(true)
	steps := []struct {
		at   int
		want logic.State
	}{
		{10000, logic.StateYellow},
		{11999, logic.StateYellow},
		{12000, logic.StateRed},
		{16999, logic.StateRed},
		{17000, logic.StateGreen},
	}
	for _, s := range steps {
		c.Advance(ms(s.at))
		if st, _ := c.Current(); st != s.want {
			t.Errorf("at %dms: got %s, want %s", s.at, st, s.want)
		}
	}
}

func TestToggleModeReseedsNight(t *testing.T) {
	c := newTraffic(true)
	c.Advance(ms(10000)) // YELLOW

	tr, err := c.ToggleMode(ms(10500))
	if err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	if tr.From != logic.StateYellow || tr.To != logic.StateNightBlinkOn {
		t.Errorf("transition: got %s->%s, want YELLOW->NIGHT_BLINK_ON", tr.From, tr.To)
	}
	if !tr.ModeChanged() || tr.ToMode != logic.ModeAlternate {
		t.Errorf("mode: got %s->%s", tr.FromMode, tr.ToMode)
	}

	snap := c.Snapshot()
	if !snap.Record.Since.Equal(ms(10500)) {
		t.Errorf("Since: got %v, want switch instant", snap.Record.Since)
	}
	if !snap.ModeChangedAt.Equal(ms(10500)) {
		t.Errorf("ModeChangedAt: got %v", snap.ModeChangedAt)
	}

	// Night cycle: ON for 1500ms then OFF for 500ms.
	c.Advance(ms(11999))
	if st, _ := c.Current(); st != logic.StateNightBlinkOn {
		t.Errorf("at 11999ms: got %s, want NIGHT_BLINK_ON", st)
	}
	c.Advance(ms(12000))
	if st, _ := c.Current(); st != logic.StateNightBlinkOff {
		t.Errorf("at 12000ms: got %s, want NIGHT_BLINK_OFF", st)
	}
	c.Advance(ms(12500))
	if st, _ := c.Current(); st != logic.StateNightBlinkOn {
		t.Errorf("at 12500ms: got %s, want NIGHT_BLINK_ON", st)
	}

	// Back to normal restarts at GREEN.
	if _, err := c.ToggleMode(ms(13000)); err != nil {
		t.Fatalf("ToggleMode back: %v", err)
	}
	if st, mode := c.Current(); st != logic.StateGreen || mode != logic.ModeNormal {
		t.Errorf("after toggle back: got (%s, %s), want (GREEN, NORMAL)", st, mode)
	}
}

func TestToggleModeKeepsDwellWhenNotReset(t *testing.T) {
	c := newTraffic(false)
	if _, err := c.ToggleMode(ms(1400)); err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	snap := c.Snapshot()
	if snap.Record.State != logic.StateNightBlinkOn {
		t.Fatalf("state: got %s, want NIGHT_BLINK_ON", snap.Record.State)
	}
	if !snap.Record.Since.Equal(t0) {
		t.Errorf("Since: got %v, want original entry %v", snap.Record.Since, t0)
	}
	// Dwell counts from t0, so NIGHT_BLINK_ON (1500ms) is due at 1500ms.
	if _, ok := c.Advance(ms(1500)); !ok {
		t.Error("expected transition at 1500ms with kept dwell clock")
	}
}

func TestToggleModeDebounced(t *testing.T) {
	c := newTraffic(true)
	if _, err := c.ToggleMode(ms(1000)); err != nil {
		t.Fatalf("first toggle: %v", err)
	}

	accepted := 0
	for i := 1; i <= 10; i++ {
		_, err := c.ToggleMode(ms(1000 + i*20))
		if err == nil {
			accepted++
			continue
		}
		if !errors.HasCode(err, errors.ErrDebounceRejected) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 0 {
		t.Errorf("expected burst inside window to be rejected, %d accepted", accepted)
	}
	if _, mode := c.Current(); mode != logic.ModeAlternate {
		t.Errorf("mode: got %s, want NIGHT", mode)
	}
}

func TestObserveReevaluatesEveryReading(t *testing.T) {
	c := newFlood(t)
	high := logic.Reading{WaterLevel: 85, RainLevel: 10}
	low := logic.Reading{WaterLevel: 20, RainLevel: 10}

	transitions := 0
	for i := 0; i < 10; i++ {
		r := low
		if i%2 == 0 {
			r = high
		}
		r.At = ms(i)
		if _, ok := c.Observe(r, r.At); ok {
			transitions++
		}
	}
	if transitions != 10 {
		t.Errorf("expected a transition on every flip, got %d", transitions)
	}
}

func TestObserveWaterOverflow(t *testing.T) {
	c := newFlood(t)
	tr, ok := c.Observe(logic.Reading{WaterLevel: 85, RainLevel: 40}, ms(5))
	if !ok {
		t.Fatal("expected transition")
	}
	if tr.To != logic.StateWaterOverflow || tr.Cause != logic.CauseReading {
		t.Errorf("got %s (%s), want WATER_OVERFLOW (reading)", tr.To, tr.Cause)
	}
	if tr.Reading == nil || tr.Reading.WaterLevel != 85 {
		t.Errorf("transition reading: got %+v", tr.Reading)
	}
}

func TestObserveSameStateKeepsSince(t *testing.T) {
	c := newFlood(t)
	c.Observe(logic.Reading{WaterLevel: 90}, ms(100))
	if _, ok := c.Observe(logic.Reading{WaterLevel: 95}, ms(200)); ok {
		t.Error("unexpected transition for same state")
	}
	snap := c.Snapshot()
	if !snap.Record.Since.Equal(ms(100)) {
		t.Errorf("Since: got %v, want entry time", snap.Record.Since)
	}
	if snap.Reading == nil || snap.Reading.WaterLevel != 95 {
		t.Errorf("latest reading not published: %+v", snap.Reading)
	}
}

func TestLevelToggleKeepsState(t *testing.T) {
	c := newFlood(t)
	c.Observe(logic.Reading{WaterLevel: 90}, ms(100))
	tr, err := c.ToggleMode(ms(300))
	if err != nil {
		t.Fatalf("ToggleMode: %v", err)
	}
	if tr.To != logic.StateWaterOverflow {
		t.Errorf("state after toggle: got %s, want WATER_OVERFLOW", tr.To)
	}
	if !c.Snapshot().Record.Since.Equal(ms(100)) {
		t.Error("level state entry time must survive a mode toggle")
	}
}

// stampStrategy names every state after the instant it is evaluated at, so a
// snapshot is consistent only if State matches Since.
type stampStrategy struct{}

func (stampStrategy) Initial(logic.Mode) logic.State { return stamp(t0) }

func (stampStrategy) Reseed(s Snapshot, _ logic.Mode) logic.State { return s.Record.State }

func (stampStrategy) Evaluate(_ Snapshot, now time.Time) (logic.State, logic.Cause) {
	return stamp(now), logic.CauseDwell
}

func stamp(t time.Time) logic.State {
	return logic.State(strconv.FormatInt(t.UnixNano(), 10))
}

func TestSnapshotNeverTorn(t *testing.T) {
	c := New(stampStrategy{}, Options{Start: t0})

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 1; i <= 20000; i++ {
			c.Advance(t0.Add(time.Duration(i)))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				s := c.Snapshot()
				if s.Record.State != stamp(s.Record.Since) {
					t.Errorf("torn snapshot: state %s, since %d", s.Record.State, s.Record.Since.UnixNano())
					return
				}
			}
		}()
	}
	wg.Wait()
}
