// Package mqtt publishes controller telemetry. It is output only: nothing
// received over MQTT ever changes the controller state.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

// Topic is the MQTT topic for state and mode transitions.
const Topic = "signalctl/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "signalctl/system"

// timeFormat keeps millisecond resolution; timed states can last under a second.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Event names carried in transition payloads.
const (
	EventStateChange = "STATE_CHANGE"
	EventModeChange  = "MODE_CHANGE"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTransition sends a transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishTransition(t logic.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Signal SignalPayload `json:"signal"`
}

// SignalPayload contains the transition details.
type SignalPayload struct {
	Timestamp string          `json:"timestamp"`
	Variant   string          `json:"variant"`
	Event     string          `json:"event"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Mode      string          `json:"mode"`
	Cause     string          `json:"cause"`
	Reading   *ReadingPayload `json:"reading,omitempty"`
}

// ReadingPayload is the calibrated reading behind a level transition.
type ReadingPayload struct {
	WaterLevel float64 `json:"water_level"`
	RainLevel  float64 `json:"rain_level"`
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(variant logic.Variant, t logic.Transition) ([]byte, error) {
	event := EventStateChange
	if t.ModeChanged() {
		event = EventModeChange
	}

	payload := Payload{
		Signal: SignalPayload{
			Timestamp: t.Timestamp.UTC().Format(timeFormat),
			Variant:   string(variant),
			Event:     event,
			From:      string(t.From),
			To:        string(t.To),
			Mode:      string(t.ToMode),
			Cause:     string(t.Cause),
		},
	}
	if t.Reading != nil {
		payload.Signal.Reading = &ReadingPayload{
			WaterLevel: t.Reading.WaterLevel,
			RainLevel:  t.Reading.RainLevel,
		}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is a Publisher that drops everything. Used when no broker is set.
type Discard struct{}

func (Discard) PublishTransition(logic.Transition) error { return nil }
func (Discard) PublishSystem(SystemEvent) error         { return nil }
func (Discard) Close() error                            { return nil }
func (Discard) IsConnected() bool                       { return false }
