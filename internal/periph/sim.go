package periph

import (
	"math"
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

// SimAxis is a deterministic axis source for running without hardware.
// It holds both axes at the midpoint for Hold, then sweeps each axis as a
// sine wave across the full bounds. X runs at twice the frequency of Y so
// the pair visits every combination of levels.
type SimAxis struct {
	Clock    Clock
	Bounds   logic.Bounds
	Hold     time.Duration
	Period   time.Duration
	YChannel logic.Channel

	start time.Time
}

// NewSimAxis creates a SimAxis starting now.
func NewSimAxis(clock Clock, bounds logic.Bounds, hold, period time.Duration) *SimAxis {
	return &SimAxis{
		Clock:    clock,
		Bounds:   bounds,
		Hold:     hold,
		Period:   period,
		YChannel: DefaultYChannel,
		start:    clock.Now(),
	}
}

// ReadAxis never fails.
func (s *SimAxis) ReadAxis(ch logic.Channel) (uint16, error) {
	lo, hi := float64(s.Bounds.Min), float64(s.Bounds.Max)
	mid := (lo + hi) / 2
	amp := (hi - lo) / 2

	elapsed := s.Clock.Now().Sub(s.start) - s.Hold
	if elapsed <= 0 || s.Period <= 0 {
		return uint16(math.Round(mid)), nil
	}

	phase := 2 * math.Pi * float64(elapsed%s.Period) / float64(s.Period)
	if ch != s.YChannel {
		phase *= 2
	}
	return uint16(math.Round(mid + amp*math.Sin(phase))), nil
}
