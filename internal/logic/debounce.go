package logic

import "time"

// Debouncer accepts an event only if more than window has passed since the
// last accepted one. Rejected events are dropped, never queued.
type Debouncer struct {
	window   time.Duration
	last     time.Time
	accepted bool
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Accept reports whether an event at now passes the window, recording it if so.
func (d *Debouncer) Accept(now time.Time) bool {
	if d.accepted && now.Sub(d.last) <= d.window {
		return false
	}
	d.last = now
	d.accepted = true
	return true
}

// LastAccepted returns the time of the last accepted event.
func (d *Debouncer) LastAccepted() (time.Time, bool) {
	return d.last, d.accepted
}

// EdgeDetector turns a sampled level into press edges.
type EdgeDetector struct {
	prev bool
}

// Rising reports whether pressed is a new press since the previous sample.
func (e *EdgeDetector) Rising(pressed bool) bool {
	rising := pressed && !e.prev
	e.prev = pressed
	return rising
}
