// Package actuator drives the buzzer, display and matrix. Each actuator polls
// the coordinator snapshot at its own cadence and keeps a private local timer;
// nothing here is shared between actuators, so two of them may pick up a state
// change on different passes. The skew is bounded by one cadence.
package actuator

import (
	"context"
	"time"

	"github.com/sweeney/signalctl/internal/coordinator"
	"github.com/sweeney/signalctl/internal/periph"
)

// Source is the read side of the coordinator.
type Source interface {
	Snapshot() coordinator.Snapshot
}

// Stepper is one actuator pass.
type Stepper interface {
	Step(now time.Time)
}

// Run calls s.Step immediately and then once every cadence until ctx is done.
func Run(ctx context.Context, clock periph.Clock, cadence time.Duration, s Stepper) error {
	s.Step(clock.Now())

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Step(clock.Now())
		}
	}
}
