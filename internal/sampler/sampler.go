// Package sampler acquires raw axis readings. It calibrates the neutral
// center during a warm-up window, then feeds one sample per pass into a
// bounded queue.
package sampler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logger"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/periph"
)

// Options configure a Sampler.
type Options struct {
	YChannel       logic.Channel
	XChannel       logic.Channel
	Interval       time.Duration
	Warmup         time.Duration
	WarmupInterval time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer; tests
	// substitute one that advances a fake clock.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Sampler struct {
	axis    periph.AxisReader
	clock   periph.Clock
	opts    Options
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a Sampler. m may be nil.
func New(axis periph.AxisReader, clock periph.Clock, opts Options, m *metrics.Metrics) *Sampler {
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	return &Sampler{
		axis:    axis,
		clock:   clock,
		opts:    opts,
		metrics: m,
		log:     logger.Component("sampler"),
	}
}

// Sleep waits for d, returning ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Read acquires one pair of axis readings.
func (s *Sampler) Read() (logic.RawSample, error) {
	errFactory := errors.New()

	y, err := s.axis.ReadAxis(s.opts.YChannel)
	if err != nil {
		return logic.RawSample{}, errFactory.Wrap(errors.ErrPeripheralRead, err)
	}
	x, err := s.axis.ReadAxis(s.opts.XChannel)
	if err != nil {
		return logic.RawSample{}, errFactory.Wrap(errors.ErrPeripheralRead, err)
	}
	return logic.RawSample{Y: y, X: x, At: s.clock.Now()}, nil
}

// Calibrate reads both axes until the warm-up window closes and returns the
// mean of every successful reading. A window that captures nothing is a
// calibration_incomplete error.
func (s *Sampler) Calibrate(ctx context.Context) (logic.Calibration, error) {
	var acc logic.Accumulator

	deadline := s.clock.Now().Add(s.opts.Warmup)
	for s.clock.Now().Before(deadline) {
		sample, err := s.Read()
		if err != nil {
			s.metrics.ReadError("axis")
			s.log.Debug().Err(err).Msg("warm-up read failed")
		} else {
			acc.Add(sample.Y, sample.X)
			s.log.Debug().Uint16("y", sample.Y).Uint16("x", sample.X).Msg("discarding warm-up reading")
		}

		if err := s.opts.Sleep(ctx, s.opts.WarmupInterval); err != nil {
			return logic.Calibration{}, err
		}
	}

	cal, err := acc.Center()
	if err != nil {
		return logic.Calibration{}, err
	}
	s.log.Info().
		Float64("center_y", cal.CenterY).
		Float64("center_x", cal.CenterX).
		Int("samples", cal.Samples).
		Msg("calibration complete")
	return cal, nil
}

// Run produces one sample per pass until ctx is done. A full queue is
// counted and logged, then the producer blocks until the consumer catches
// up. Read failures skip the pass.
func (s *Sampler) Run(ctx context.Context, out chan<- logic.RawSample) error {
	for {
		sample, err := s.Read()
		if err != nil {
			s.metrics.ReadError("axis")
			s.log.Debug().Err(err).Msg("read failed")
		} else if !s.send(ctx, out, sample) {
			return nil
		}

		if err := s.opts.Sleep(ctx, s.opts.Interval); err != nil {
			return nil
		}
	}
}

func (s *Sampler) send(ctx context.Context, out chan<- logic.RawSample, sample logic.RawSample) bool {
	select {
	case out <- sample:
		s.metrics.Sample()
		return true
	default:
	}

	s.metrics.QueueFull()
	s.log.Debug().Str("error_code", string(errors.ErrQueueFull)).Msg("sample queue full, waiting")

	select {
	case out <- sample:
		s.metrics.Sample()
		return true
	case <-ctx.Done():
		return false
	}
}
