package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	tr := logic.Transition{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 500_000_000, time.UTC),
		From:      logic.StateGreen,
		To:        logic.StateYellow,
		FromMode:  logic.ModeNormal,
		ToMode:    logic.ModeNormal,
		Cause:     logic.CauseDwell,
	}

	payload, err := FormatPayload(logic.VariantTraffic, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"signal":{"timestamp":"2026-02-02T22:18:12.500Z","variant":"traffic","event":"STATE_CHANGE","from":"GREEN","to":"YELLOW","mode":"NORMAL","cause":"dwell"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadWithReading(t *testing.T) {
	tr := logic.Transition{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		From:      logic.StateStable,
		To:        logic.StateWaterOverflow,
		FromMode:  logic.ModeNormal,
		ToMode:    logic.ModeNormal,
		Cause:     logic.CauseReading,
		Reading:   &logic.Reading{WaterLevel: 85, RainLevel: 40},
	}

	payload, err := FormatPayload(logic.VariantFlood, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Signal.Reading == nil {
		t.Fatal("expected reading in payload")
	}
	if parsed.Signal.Reading.WaterLevel != 85 || parsed.Signal.Reading.RainLevel != 40 {
		t.Errorf("reading: got %+v", parsed.Signal.Reading)
	}
	if parsed.Signal.To != "WATER_OVERFLOW" {
		t.Errorf("to: got %s", parsed.Signal.To)
	}
}

func TestFormatPayloadModeChange(t *testing.T) {
	tr := logic.Transition{
		Timestamp: time.Date(2026, 2, 2, 22, 0, 0, 0, time.UTC),
		From:      logic.StateRed,
		To:        logic.StateNightBlinkOn,
		FromMode:  logic.ModeNormal,
		ToMode:    logic.ModeAlternate,
		Cause:     logic.CauseMode,
	}

	payload, _ := FormatPayload(logic.VariantTraffic, tr)

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Signal.Event != EventModeChange {
		t.Errorf("event: got %s, want %s", parsed.Signal.Event, EventModeChange)
	}
	if parsed.Signal.Mode != "NIGHT" {
		t.Errorf("mode: got %s, want NIGHT", parsed.Signal.Mode)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	tr := logic.Transition{
		Timestamp: time.Date(2026, 2, 3, 0, 18, 12, 0, loc),
		From:      logic.StateGreen,
		To:        logic.StateYellow,
	}

	payload, _ := FormatPayload(logic.VariantTraffic, tr)

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Signal.Timestamp != "2026-02-02T22:18:12.000Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Signal.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "signalctl/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "signalctl/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("got %s, want raw payload", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	f.Variant = logic.VariantFlood

	tr := logic.Transition{From: logic.StateStable, To: logic.StateHeavyRain}
	if err := f.PublishTransition(tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.RecordedTransitions()
	if len(got) != 1 || got[0].To != logic.StateHeavyRain {
		t.Errorf("transitions: got %+v", got)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")

	if err := f.PublishTransition(logic.Transition{}); err == nil {
		t.Error("expected error")
	}
	if len(f.RecordedTransitions()) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestFakePublisherSystemAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true

	f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Event: "HEARTBEAT"})
	f.Close()

	events := f.RecordedSystemEvents()
	if len(events) != 2 || !events[0].Retained || events[1].Retained {
		t.Errorf("system events: got %+v", events)
	}
	if !f.Closed || !f.IsConnected() {
		t.Error("expected closed and connected")
	}

	f.Reset()
	if len(f.RecordedSystemEvents()) != 0 || f.Closed || f.IsConnected() {
		t.Error("Reset should clear everything")
	}
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.PublishTransition(logic.Transition{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if (Discard{}).IsConnected() {
		t.Error("Discard should never report connected")
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	// Nothing listens on port 1, so the publisher stays offline.
	p := NewRealPublisher("tcp://127.0.0.1:1", logic.VariantTraffic)
	defer p.Close()

	if p.IsConnected() {
		t.Fatal("should not be connected")
	}
	if err := p.PublishTransition(logic.Transition{From: logic.StateGreen, To: logic.StateYellow}); err != nil {
		t.Errorf("offline publish should buffer, got %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("offline publish should buffer, got %v", err)
	}
	if got := p.Buffered(); got != 2 {
		t.Errorf("buffered: got %d, want 2", got)
	}
}
