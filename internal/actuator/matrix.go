package actuator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/frames"
	"github.com/sweeney/signalctl/internal/logger"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/periph"
)

// Families maps each state to the animation shown while it is current.
type Families map[logic.State]frames.Family

// FloodFamilies animates every alert with the same wave; Stable is dark.
func FloodFamilies() Families {
	return Families{
		logic.StateStable:        frames.Dark,
		logic.StateWaterOverflow: frames.Wave,
		logic.StateHeavyRain:     frames.Wave,
		logic.StateBothCritical:  frames.Wave,
	}
}

// TrafficFamilies shows a solid light; night mode blinks yellow.
func TrafficFamilies() Families {
	return Families{
		logic.StateGreen:         frames.GreenLight,
		logic.StateYellow:        frames.YellowLight,
		logic.StateRed:           frames.RedLight,
		logic.StateNightBlinkOn:  frames.YellowLight,
		logic.StateNightBlinkOff: frames.Dark,
	}
}

// Matrix advances the current family's animation once per period. The frame
// index wraps within a family and resets to 0 only when the family changes.
type Matrix struct {
	src       Source
	out       periph.Matrix
	families  Families
	period    time.Duration
	intensity float64
	metrics   *metrics.Metrics
	log       zerolog.Logger

	started bool
	state   logic.State
	family  frames.Family
	index   int
	frameAt time.Time
}

// NewMatrix creates a matrix driver. m may be nil.
func NewMatrix(src Source, out periph.Matrix, families Families, period time.Duration, intensity float64, m *metrics.Metrics) *Matrix {
	return &Matrix{
		src:       src,
		out:       out,
		families:  families,
		period:    period,
		intensity: periph.ClampIntensity(intensity),
		metrics:   m,
		log:       logger.Component("matrix"),
	}
}

// Step renders the first frame of a new family, or the next frame of the
// current one once the period has elapsed.
func (m *Matrix) Step(now time.Time) {
	state := m.src.Snapshot().Record.State
	fam, ok := m.families[state]
	if !ok {
		if !m.started || state != m.state {
			m.report("no matrix family for state", state, 0)
		}
		fam = frames.Dark
	}
	m.state = state

	if !m.started || fam.Name != m.family.Name {
		m.started = true
		m.family = fam
		m.index = 0
		m.frameAt = now
		m.render()
		return
	}

	if len(fam.Frames) < 2 || now.Sub(m.frameAt) < m.period {
		return
	}
	m.index = (m.index + 1) % len(fam.Frames)
	m.frameAt = now
	m.render()
}

// Family returns the name of the family being shown.
func (m *Matrix) Family() string {
	return m.family.Name
}

// Index returns the current frame index.
func (m *Matrix) Index() int {
	return m.index
}

// Off clears the matrix.
func (m *Matrix) Off() {
	m.out.ClearMatrix()
	m.started = false
}

func (m *Matrix) render() {
	if len(m.family.Frames) == 0 {
		m.out.ClearMatrix()
		return
	}
	if m.index < 0 || m.index >= len(m.family.Frames) {
		m.report("frame index out of range, restarting family", m.state, m.index)
		m.index = 0
	}
	m.out.RenderMatrixFrame(m.family.Frames[m.index], m.intensity)
}

func (m *Matrix) report(msg string, state logic.State, index int) {
	m.metrics.Clamp("matrix")
	m.log.Warn().
		Str("error_code", string(errors.ErrActuatorIndexOutOfRange)).
		Str("state", string(state)).
		Int("index", index).
		Msg(msg)
}
