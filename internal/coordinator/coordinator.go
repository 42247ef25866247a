// Package coordinator owns the authoritative state record shared by every
// actuator. Readers take lock-free snapshots; writers are serialized and
// always publish a whole new snapshot, so state and timestamp never tear.
package coordinator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logic"
)

// Snapshot is an immutable view of the coordinator. Seq increases with every
// published snapshot.
type Snapshot struct {
	Record        logic.StateRecord
	Mode          logic.Mode
	ModeChangedAt time.Time
	Reading       *logic.Reading
	Seq           uint64
}

// Options configure a Coordinator.
type Options struct {
	// Start is the power-up instant stamped on the initial record.
	Start time.Time
	// Mode is the initial mode. Defaults to normal.
	Mode logic.Mode
	// Debounce is the minimum gap between accepted mode toggles.
	Debounce time.Duration
	// ResetDwellOnModeSwitch stamps the re-seeded state with the switch
	// instant. When false the previous entry time is kept, so time already
	// spent counts against the new state's dwell.
	ResetDwellOnModeSwitch bool
}

// Coordinator holds the current state, the mode and the latest reading.
type Coordinator struct {
	strategy Strategy
	opts     Options

	mu       sync.Mutex // serializes writers
	debounce *logic.Debouncer
	snap     atomic.Pointer[Snapshot]
}

// New creates a coordinator in the strategy's initial state.
func New(strategy Strategy, opts Options) *Coordinator {
	if opts.Mode == "" {
		opts.Mode = logic.ModeNormal
	}
	c := &Coordinator{
		strategy: strategy,
		opts:     opts,
		debounce: logic.NewDebouncer(opts.Debounce),
	}
	c.snap.Store(&Snapshot{
		Record:        logic.StateRecord{State: strategy.Initial(opts.Mode), Since: opts.Start},
		Mode:          opts.Mode,
		ModeChangedAt: opts.Start,
	})
	return c
}

// Current returns the current state and mode without blocking.
func (c *Coordinator) Current() (logic.State, logic.Mode) {
	s := c.snap.Load()
	return s.Record.State, s.Mode
}

// Snapshot returns the full current view without blocking.
func (c *Coordinator) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Observe records a new reading and re-evaluates the state. Under the level
// discipline every reading is re-classified; a flip back and forth on
// consecutive readings is expected.
func (c *Coordinator) Observe(r logic.Reading, now time.Time) (logic.Transition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *c.snap.Load()
	next.Reading = &r
	return c.commit(next, now)
}

// Advance re-evaluates the state at now. Calling it before the next transition
// is due is a no-op; a single call never moves more than one step.
func (c *Coordinator) Advance(now time.Time) (logic.Transition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commit(*c.snap.Load(), now)
}

// ToggleMode is the only way to change mode. Toggles within the debounce
// window are rejected with a debounce_rejected error. An accepted toggle lets
// the strategy re-seed the state; the timed cycle jumps to the target mode's
// entry state.
func (c *Coordinator) ToggleMode(now time.Time) (logic.Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.debounce.Accept(now) {
		return logic.Transition{}, errors.New().New(errors.ErrDebounceRejected)
	}

	cur := c.snap.Load()
	next := *cur
	next.Mode = cur.Mode.Toggle()
	next.ModeChangedAt = now
	if seeded := c.strategy.Reseed(*cur, next.Mode); seeded != cur.Record.State {
		next.Record.State = seeded
		if c.opts.ResetDwellOnModeSwitch {
			next.Record.Since = now
		}
	}
	next.Seq = cur.Seq + 1
	c.snap.Store(&next)

	return logic.Transition{
		Timestamp: now,
		From:      cur.Record.State,
		To:        next.Record.State,
		FromMode:  cur.Mode,
		ToMode:    next.Mode,
		Cause:     logic.CauseMode,
		Reading:   next.Reading,
	}, nil
}

// commit evaluates next at now and publishes it. Must hold c.mu.
func (c *Coordinator) commit(next Snapshot, now time.Time) (logic.Transition, bool) {
	cur := c.snap.Load()
	state, cause := c.strategy.Evaluate(next, now)

	changed := state != cur.Record.State
	if changed {
		next.Record = logic.StateRecord{State: state, Since: now}
	}
	if !changed && next.Reading == cur.Reading {
		return logic.Transition{}, false
	}

	next.Seq = cur.Seq + 1
	c.snap.Store(&next)

	if !changed {
		return logic.Transition{}, false
	}
	return logic.Transition{
		Timestamp: now,
		From:      cur.Record.State,
		To:        state,
		FromMode:  cur.Mode,
		ToMode:    next.Mode,
		Cause:     cause,
		Reading:   next.Reading,
	}, true
}
