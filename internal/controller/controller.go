// Package controller wires one controller variant into concurrently
// scheduled tasks: sampler, classifier, timekeeper, the three actuators,
// mode input and the transition notifier.
package controller

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/signalctl/internal/actuator"
	"github.com/sweeney/signalctl/internal/config"
	"github.com/sweeney/signalctl/internal/coordinator"
	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logger"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/mqtt"
	"github.com/sweeney/signalctl/internal/periph"
	"github.com/sweeney/signalctl/internal/sampler"
	"github.com/sweeney/signalctl/internal/status"
)

// notifyQueue bounds transitions waiting for the notifier.
const notifyQueue = 64

// Ports are the peripherals driven by the controller. Button may be nil,
// which disables mode input. Axis is only read by the flood variant.
type Ports struct {
	Axis    periph.AxisReader
	Buzzer  periph.Buzzer
	Display periph.Display
	Matrix  periph.Matrix
	Button  periph.Button
	Clock   periph.Clock
}

// Deps are the optional collaborators. Every field may be left zero.
type Deps struct {
	Publisher mqtt.Publisher
	Metrics   *metrics.Metrics
	Tracker   *status.Tracker
	// Network refreshes network info on every heartbeat.
	Network func() *status.NetworkInfo
}

// Controller runs one variant until its context ends.
type Controller struct {
	cfg   *config.Config
	ports Ports
	deps  Deps
	log   zerolog.Logger

	coord       atomic.Pointer[coordinator.Coordinator]
	transitions chan logic.Transition
}

// New checks cfg and ports and returns an idle controller.
func New(cfg *config.Config, ports Ports, deps Deps) (*Controller, error) {
	errFactory := errors.New()

	if cfg == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ports.Buzzer == nil || ports.Display == nil || ports.Matrix == nil {
		return nil, errFactory.WithMessage(errors.ErrInitFailed, "buzzer, display and matrix ports are required")
	}
	if cfg.Variant == logic.VariantFlood && ports.Axis == nil {
		return nil, errFactory.WithMessage(errors.ErrInitFailed, "flood variant needs an axis reader")
	}
	if ports.Clock == nil {
		ports.Clock = periph.SystemClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = mqtt.Discard{}
	}

	return &Controller{
		cfg:         cfg,
		ports:       ports,
		deps:        deps,
		log:         logger.Component("controller").With().Str("variant", string(cfg.Variant)).Logger(),
		transitions: make(chan logic.Transition, notifyQueue),
	}, nil
}

// Snapshot returns the coordinator view once Run has started the tasks.
func (c *Controller) Snapshot() (coordinator.Snapshot, bool) {
	coord := c.coord.Load()
	if coord == nil {
		return coordinator.Snapshot{}, false
	}
	return coord.Snapshot(), true
}

// Run calibrates (flood only), starts every task and blocks until ctx is
// done or a task fails. Calibration failures are returned before any task
// starts. On return the buzzer is off and the display and matrix are clear.
func (c *Controller) Run(ctx context.Context) error {
	pl, err := c.prepare(ctx)
	if err != nil {
		return err
	}

	coord := coordinator.New(pl.strategy, coordinator.Options{
		Start:                  c.ports.Clock.Now(),
		Debounce:               c.cfg.Mode.Debounce,
		ResetDwellOnModeSwitch: c.cfg.Cycle.ResetDwellOnModeSwitch,
	})
	c.coord.Store(coord)
	if c.deps.Tracker != nil {
		c.deps.Tracker.Attach(coord)
	}
	state, mode := coord.Current()
	c.deps.Metrics.SetState(state, mode)
	c.log.Info().Str("state", string(state)).Str("mode", string(mode)).Msg("controller started")

	buzzer, display, matrix := c.actuators(coord)
	defer func() {
		buzzer.Off()
		display.Off()
		matrix.Off()
	}()

	g, gctx := errgroup.WithContext(ctx)

	if pl.sampler != nil {
		samples := make(chan logic.RawSample, c.cfg.Sampler.QueueSize)
		g.Go(func() error { return pl.sampler.Run(gctx, samples) })
		g.Go(func() error { return c.classify(gctx, coord, pl.classifier, samples) })
	} else {
		g.Go(func() error { return c.timekeep(gctx, coord) })
	}
	g.Go(func() error { return actuator.Run(gctx, c.ports.Clock, c.cfg.Buzzer.Cadence, buzzer) })
	g.Go(func() error { return actuator.Run(gctx, c.ports.Clock, c.cfg.Display.Cadence, display) })
	g.Go(func() error { return actuator.Run(gctx, c.ports.Clock, c.cfg.Matrix.Period, matrix) })
	if c.ports.Button != nil {
		g.Go(func() error { return c.modeInput(gctx, coord) })
	}
	g.Go(func() error { return c.notify(gctx) })

	err = g.Wait()
	c.log.Info().Msg("controller stopped")
	return err
}

// pipeline is the variant-specific front end of the coordinator. sampler and
// classifier are nil for the timed cycle.
type pipeline struct {
	strategy   coordinator.Strategy
	sampler    *sampler.Sampler
	classifier *logic.Classifier
}

// prepare builds the pipeline. The flood variant calibrates first.
func (c *Controller) prepare(ctx context.Context) (pipeline, error) {
	if c.cfg.Variant == logic.VariantTraffic {
		return pipeline{strategy: coordinator.Timed{Table: logic.NewCycleTable(c.cfg.CycleTimings())}}, nil
	}

	smp := sampler.New(c.ports.Axis, c.ports.Clock, sampler.Options{
		YChannel:       logic.Channel(c.cfg.Sampler.YChannel),
		XChannel:       logic.Channel(c.cfg.Sampler.XChannel),
		Interval:       c.cfg.Sampler.Interval,
		Warmup:         c.cfg.Sampler.Warmup,
		WarmupInterval: c.cfg.Sampler.WarmupInterval,
	}, c.deps.Metrics)

	cal, err := smp.Calibrate(ctx)
	if err != nil {
		return pipeline{}, err
	}
	cls, err := logic.NewClassifier(c.cfg.Bounds(), cal, c.cfg.ClassifierThresholds())
	if err != nil {
		return pipeline{}, err
	}
	if c.deps.Tracker != nil {
		c.deps.Tracker.SetCalibration(cal)
	}
	return pipeline{strategy: coordinator.Level{Classifier: cls}, sampler: smp, classifier: cls}, nil
}

func (c *Controller) actuators(src actuator.Source) (*actuator.Buzzer, *actuator.Display, *actuator.Matrix) {
	patterns := make(map[logic.State]actuator.Pattern)
	for s, p := range c.cfg.BuzzerPatterns() {
		patterns[s] = actuator.Pattern{Pulse: p.Pulse, Interval: p.Interval}
	}

	format := actuator.FloodLines
	families := actuator.FloodFamilies()
	if c.cfg.Variant == logic.VariantTraffic {
		format = actuator.TrafficLines
		families = actuator.TrafficFamilies()
	}

	return actuator.NewBuzzer(src, c.ports.Buzzer, patterns, c.cfg.Buzzer.Intensity, c.deps.Metrics),
		actuator.NewDisplay(src, c.ports.Display, c.cfg.Display.Cadence, format),
		actuator.NewMatrix(src, c.ports.Matrix, families, c.cfg.Matrix.Period, c.cfg.Matrix.Intensity, c.deps.Metrics)
}

// classify consumes samples until ctx is done. Every sample is calibrated
// and handed to the coordinator.
func (c *Controller) classify(ctx context.Context, coord *coordinator.Coordinator, cls *logic.Classifier, samples <-chan logic.RawSample) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-samples:
			reading := cls.Calibrate(raw)
			c.deps.Metrics.Reading(reading)
			if tr, ok := coord.Observe(reading, raw.At); ok {
				c.emit(tr)
			}
		}
	}
}

// timekeep advances the timed cycle once per tick.
func (c *Controller) timekeep(ctx context.Context, coord *coordinator.Coordinator) error {
	ticker := time.NewTicker(c.cfg.Cycle.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if tr, ok := coord.Advance(c.ports.Clock.Now()); ok {
				c.emit(tr)
			}
		}
	}
}

// modeInput polls the button and toggles the mode on each press edge.
func (c *Controller) modeInput(ctx context.Context, coord *coordinator.Coordinator) error {
	log := logger.Component("mode")
	var edge logic.EdgeDetector

	ticker := time.NewTicker(c.cfg.Mode.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pressed, err := c.ports.Button.Pressed()
		if err != nil {
			c.deps.Metrics.ReadError("button")
			log.Debug().Err(err).Msg("button read failed")
			continue
		}
		if !edge.Rising(pressed) {
			continue
		}

		tr, err := coord.ToggleMode(c.ports.Clock.Now())
		if errors.HasCode(err, errors.ErrDebounceRejected) {
			c.deps.Metrics.DebounceRejected()
			log.Debug().Msg("press inside debounce window dropped")
			continue
		}
		if err != nil {
			log.Warn().Err(err).Msg("mode toggle failed")
			continue
		}
		c.emit(tr)
	}
}

// emit hands tr to the notifier without blocking the writer.
func (c *Controller) emit(tr logic.Transition) {
	select {
	case c.transitions <- tr:
	default:
		c.log.Warn().Str("from", string(tr.From)).Str("to", string(tr.To)).Msg("notifier behind, transition not reported")
	}
}

// notify reports transitions to the log, metrics, tracker and broker, and
// publishes the heartbeat.
func (c *Controller) notify(ctx context.Context) error {
	var heartbeat <-chan time.Time
	if c.cfg.Heartbeat > 0 {
		t := time.NewTicker(c.cfg.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case tr := <-c.transitions:
			c.report(tr)
		case now := <-heartbeat:
			c.heartbeat(now)
		}
	}
}

func (c *Controller) report(tr logic.Transition) {
	ev := c.log.Info().
		Str("from", string(tr.From)).
		Str("to", string(tr.To)).
		Str("mode", string(tr.ToMode)).
		Str("cause", string(tr.Cause))
	if r := tr.Reading; r != nil {
		ev = ev.Float64("water", r.WaterLevel).Float64("rain", r.RainLevel)
	}
	ev.Msg("transition")

	c.deps.Metrics.Transition(tr)
	if c.deps.Tracker != nil {
		c.deps.Tracker.Record(tr)
	}
	if err := c.deps.Publisher.PublishTransition(tr); err != nil {
		c.deps.Metrics.PublishError()
		c.log.Warn().Err(err).Msg("publish failed")
	}
	c.refreshConnection()
}

func (c *Controller) heartbeat(now time.Time) {
	event := mqtt.SystemEvent{Timestamp: now, Event: "HEARTBEAT"}
	if c.deps.Tracker != nil {
		c.refreshConnection()
		if c.deps.Network != nil {
			if info := c.deps.Network(); info != nil {
				c.deps.Tracker.SetNetwork(info)
			}
		}
		snap := c.deps.Tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
		c.log.Info().
			Str("state", string(snap.State)).
			Dur("uptime", snap.Uptime()).
			Msg("heartbeat")
	}
	if err := c.deps.Publisher.PublishSystem(event); err != nil {
		c.deps.Metrics.PublishError()
		c.log.Warn().Err(err).Msg("heartbeat publish failed")
	}
}

func (c *Controller) refreshConnection() {
	if c.deps.Tracker == nil {
		return
	}
	if cs, ok := c.deps.Publisher.(mqtt.ConnectionStatus); ok {
		c.deps.Tracker.SetMQTTConnected(cs.IsConnected())
	}
}

// PrintState writes the state the controller would start in. The flood
// variant calibrates and classifies one fresh sample.
func (c *Controller) PrintState(ctx context.Context, w io.Writer) error {
	pl, err := c.prepare(ctx)
	if err != nil {
		return err
	}
	if pl.sampler == nil {
		_, err := fmt.Fprintf(w, "variant: %s, state: %s, mode: %s\n",
			c.cfg.Variant, pl.strategy.Initial(logic.ModeNormal), logic.ModeNormal)
		return err
	}

	raw, err := pl.sampler.Read()
	if err != nil {
		return err
	}
	cls := pl.classifier
	reading := cls.Calibrate(raw)
	cal := cls.Calibration()
	_, err = fmt.Fprintf(w, "variant: %s, center: (%.1f, %.1f), water: %.1f%%, rain: %.1f%%, state: %s\n",
		c.cfg.Variant, cal.CenterY, cal.CenterX, reading.WaterLevel, reading.RainLevel, cls.Classify(reading))
	return err
}
