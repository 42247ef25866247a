package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/periph"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeSleep advances clock instead of sleeping.
func fakeSleep(clock *periph.FakeClock) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.Advance(d)
		return nil
	}
}

func newTestSampler(axis periph.AxisReader, clock *periph.FakeClock, warmup time.Duration, m *metrics.Metrics) *Sampler {
	return New(axis, clock, Options{
		YChannel:       periph.DefaultYChannel,
		XChannel:       periph.DefaultXChannel,
		Interval:       10 * time.Millisecond,
		Warmup:         warmup,
		WarmupInterval: 50 * time.Millisecond,
		Sleep:          fakeSleep(clock),
	}, m)
}

func TestCalibrateAveragesWarmup(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{
		{Y: 1990, X: 2010},
		{Y: 2010, X: 1990},
		{Y: 2000, X: 2000},
		{Y: 2000, X: 2000},
	})

	s := newTestSampler(axis, clock, 200*time.Millisecond, nil)
	cal, err := s.Calibrate(context.Background())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	// 200ms window / 50ms interval = 4 readings
	if cal.Samples != 4 {
		t.Errorf("samples: got %d, want 4", cal.Samples)
	}
	if cal.CenterY != 2000 || cal.CenterX != 2000 {
		t.Errorf("center: got (%v, %v), want (2000, 2000)", cal.CenterY, cal.CenterX)
	}
}

func TestCalibrateZeroWindowIsIncomplete(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{{Y: 2000, X: 2000}})

	s := newTestSampler(axis, clock, 0, nil)
	_, err := s.Calibrate(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCalibrationIncomplete) {
		t.Errorf("got %v, want calibration_incomplete", err)
	}
	if axis.Reads != 0 {
		t.Errorf("reads: got %d, want 0", axis.Reads)
	}
}

func TestCalibrateAllReadsFailIsIncomplete(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{{Y: 2000, X: 2000}})
	axis.ReadError = errors.New("adc busy")
	m := metrics.New()

	s := newTestSampler(axis, clock, 100*time.Millisecond, m)
	_, err := s.Calibrate(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCalibrationIncomplete) {
		t.Errorf("got %v, want calibration_incomplete", err)
	}
}

func TestCalibrateCancelled(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{{Y: 2000, X: 2000}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSampler(axis, clock, time.Second, nil)
	if _, err := s.Calibrate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestReadWrapsPeripheralError(t *testing.T) {
	axis := periph.NewFakeAxisReader(nil)
	s := newTestSampler(axis, periph.NewFakeClock(t0), 0, nil)

	_, err := s.Read()
	if !apperrors.HasCode(err, apperrors.ErrPeripheralRead) {
		t.Errorf("got %v, want peripheral_read_failed", err)
	}
}

func TestRunEmitsSamplesInOrder(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{
		{Y: 1, X: 2},
		{Y: 3, X: 4},
		{Y: 5, X: 6},
	})
	s := newTestSampler(axis, clock, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan logic.RawSample, 10)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, out) }()

	want := []logic.RawSample{{Y: 1, X: 2}, {Y: 3, X: 4}, {Y: 5, X: 6}}
	for i, w := range want {
		got := <-out
		if got.Y != w.Y || got.X != w.X {
			t.Errorf("sample %d: got (%d, %d), want (%d, %d)", i, got.Y, got.X, w.Y, w.X)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v, want nil on cancel", err)
	}
}

func TestRunQueueFullBlocksWithoutLoss(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{
		{Y: 1}, {Y: 2}, {Y: 3}, {Y: 4},
	})
	m := metrics.New()
	s := newTestSampler(axis, clock, 0, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan logic.RawSample, 1)
	go s.Run(ctx, out)

	// Drain slowly; every sample must still arrive in order.
	for i := uint16(1); i <= 4; i++ {
		time.Sleep(5 * time.Millisecond)
		got := <-out
		if got.Y != i {
			t.Fatalf("sample %d: got Y=%d", i, got.Y)
		}
	}

	if got := counterValue(t, m, "signalctl_queue_full_total"); got < 1 {
		t.Errorf("queue_full_total: got %v, want >= 1", got)
	}
}

func TestRunSkipsReadErrors(t *testing.T) {
	clock := periph.NewFakeClock(t0)
	axis := periph.NewFakeAxisReader([]periph.AxisSample{{Y: 7, X: 7}})
	axis.SetReadError(errors.New("glitch"))
	s := newTestSampler(axis, clock, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan logic.RawSample, 1)
	go s.Run(ctx, out)

	time.Sleep(5 * time.Millisecond)
	select {
	case got := <-out:
		t.Fatalf("unexpected sample %+v while reads fail", got)
	default:
	}

	axis.SetReadError(nil)
	if got := <-out; got.Y != 7 {
		t.Errorf("after recovery: got Y=%d, want 7", got.Y)
	}
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
