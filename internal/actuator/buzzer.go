package actuator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logger"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/periph"
)

// Pattern is a beep/silence duty cycle. A zero Pulse is silence.
type Pattern struct {
	Pulse    time.Duration
	Interval time.Duration
}

// Buzzer beeps the pattern of the current state. A state change forces the
// buzzer off and starts the new pattern from the switch instant.
type Buzzer struct {
	src       Source
	out       periph.Buzzer
	patterns  map[logic.State]Pattern
	intensity float64
	metrics   *metrics.Metrics
	log       zerolog.Logger

	started bool
	state   logic.State
	pattern Pattern
	on      bool
	onAt    time.Time
	nextAt  time.Time
}

// NewBuzzer creates a buzzer driver. m may be nil.
func NewBuzzer(src Source, out periph.Buzzer, patterns map[logic.State]Pattern, intensity float64, m *metrics.Metrics) *Buzzer {
	return &Buzzer{
		src:       src,
		out:       out,
		patterns:  patterns,
		intensity: periph.ClampIntensity(intensity),
		metrics:   m,
		log:       logger.Component("buzzer"),
	}
}

// Step advances the duty cycle to now.
func (b *Buzzer) Step(now time.Time) {
	state := b.src.Snapshot().Record.State

	if !b.started || state != b.state {
		b.started = true
		b.state = state
		b.pattern = b.lookup(state)
		b.out.SetBuzzer(false, 0)
		b.on = false
		b.nextAt = now
	}

	if b.pattern.Pulse <= 0 {
		return
	}

	if b.on {
		if now.Sub(b.onAt) >= b.pattern.Pulse {
			b.set(false)
			b.nextAt = now.Add(b.pattern.Interval)
		}
		return
	}

	if !now.Before(b.nextAt) {
		b.set(true)
		b.onAt = now
	}
}

// On reports whether the buzzer is currently sounding.
func (b *Buzzer) On() bool {
	return b.on
}

// Off silences the buzzer and forgets the running pattern.
func (b *Buzzer) Off() {
	b.out.SetBuzzer(false, 0)
	b.on = false
	b.started = false
}

func (b *Buzzer) lookup(state logic.State) Pattern {
	p, ok := b.patterns[state]
	if !ok {
		b.metrics.Clamp("buzzer")
		b.log.Warn().
			Str("error_code", string(errors.ErrActuatorIndexOutOfRange)).
			Str("state", string(state)).
			Msg("no buzzer pattern for state, staying silent")
		return Pattern{}
	}
	return p
}

func (b *Buzzer) set(on bool) {
	if on == b.on {
		return
	}
	b.on = on
	if on {
		b.out.SetBuzzer(true, b.intensity)
	} else {
		b.out.SetBuzzer(false, 0)
	}
}
