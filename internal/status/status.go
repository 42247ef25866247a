// Package status provides a thread-safe status tracker for the controller.
// It is read by the HTTP handlers and by lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/signalctl/internal/coordinator"
	"github.com/sweeney/signalctl/internal/logic"
)

// Source is the read side of the coordinator.
type Source interface {
	Snapshot() coordinator.Snapshot
}

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains controller configuration for display.
type Config struct {
	Variant     string
	SampleMs    int64
	DebounceMs  int64
	HeartbeatMs int64
	Thresholds  logic.Thresholds
	Cycle       logic.CycleTimings
	ResetDwell  bool
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State          logic.State
	Mode           logic.Mode
	Since          time.Time
	Reading        *logic.Reading
	Calibration    *logic.Calibration
	Ready          bool
	Counts         map[logic.State]int
	LastTransition *logic.Transition
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// InState returns how long the current state has been held.
func (s Snapshot) InState() time.Duration {
	if s.Since.IsZero() {
		return 0
	}
	return s.Now.Sub(s.Since)
}

// Tracker holds mutable controller state behind an RWMutex. When a Source is
// attached, state, mode, entry time and reading are read live from it.
type Tracker struct {
	mu   sync.RWMutex
	src  Source
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Counts:    make(map[logic.State]int),
		},
	}
}

// Attach makes src the live source of state and mode.
func (t *Tracker) Attach(src Source) {
	t.mu.Lock()
	t.src = src
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetCalibration records the calibrated center.
func (t *Tracker) SetCalibration(cal logic.Calibration) {
	t.mu.Lock()
	t.snap.Calibration = &cal
	t.mu.Unlock()
}

// Record counts an entry into tr.To. Mode-only transitions are remembered as
// the last transition but not counted.
func (t *Tracker) Record(tr logic.Transition) {
	t.mu.Lock()
	if tr.From != tr.To {
		t.snap.Counts[tr.To]++
	}
	t.snap.LastTransition = &tr
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	src := t.src
	s.Counts = make(map[logic.State]int, len(t.snap.Counts))
	for k, v := range t.snap.Counts {
		s.Counts[k] = v
	}
	t.mu.RUnlock()

	if src != nil {
		cs := src.Snapshot()
		s.State = cs.Record.State
		s.Since = cs.Record.Since
		s.Mode = cs.Mode
		s.Reading = cs.Reading
	}
	s.Now = time.Now()
	return s
}
