package status

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string           `json:"event,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Variant        string           `json:"variant"`
	State          string           `json:"state"`
	Mode           string           `json:"mode"`
	Since          string           `json:"since,omitempty"`
	InStateMs      int64            `json:"in_state_ms"`
	Ready          bool             `json:"ready"`
	Reading        *ReadingJSON     `json:"reading,omitempty"`
	Calibration    *CalibrationJSON `json:"calibration,omitempty"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	StartTime      string           `json:"start_time"`
	Timestamp      string           `json:"timestamp"`
	MQTT           MQTTStatus       `json:"mqtt"`
	Counts         map[string]int   `json:"transition_counts"`
	LastTransition *TransitionJSON  `json:"last_transition,omitempty"`
	Network        *NetworkJSON     `json:"network,omitempty"`
	Config         ConfigJSON       `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ReadingJSON is the latest calibrated reading.
type ReadingJSON struct {
	WaterLevel float64 `json:"water_level"`
	RainLevel  float64 `json:"rain_level"`
}

// CalibrationJSON is the learned neutral center.
type CalibrationJSON struct {
	CenterY float64 `json:"center_y"`
	CenterX float64 `json:"center_x"`
	Samples int     `json:"samples"`
}

// TransitionJSON is the most recent transition.
type TransitionJSON struct {
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Mode      string `json:"mode"`
	Cause     string `json:"cause"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	SampleMs       int64   `json:"sample_ms"`
	DebounceMs     int64   `json:"debounce_ms"`
	HeartbeatMs    int64   `json:"heartbeat_ms"`
	WaterThreshold float64 `json:"water_threshold"`
	RainThreshold  float64 `json:"rain_threshold"`
	GreenMs        int64   `json:"green_ms"`
	YellowMs       int64   `json:"yellow_ms"`
	RedMs          int64   `json:"red_ms"`
	NightOnMs      int64   `json:"night_on_ms"`
	NightOffMs     int64   `json:"night_off_ms"`
	ResetDwell     bool    `json:"reset_dwell_on_mode_switch"`
	Broker         string  `json:"broker"`
	HTTPPort       string  `json:"http_port"`
	WSBroker       string  `json:"ws_broker,omitempty"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Variant:       snap.Config.Variant,
		State:         orUnknown(string(snap.State)),
		Mode:          orUnknown(string(snap.Mode)),
		InStateMs:     snap.InState().Milliseconds(),
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        make(map[string]int, len(snap.Counts)),
		Config: ConfigJSON{
			SampleMs:       snap.Config.SampleMs,
			DebounceMs:     snap.Config.DebounceMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			WaterThreshold: snap.Config.Thresholds.Water,
			RainThreshold:  snap.Config.Thresholds.Rain,
			GreenMs:        snap.Config.Cycle.Green.Milliseconds(),
			YellowMs:       snap.Config.Cycle.Yellow.Milliseconds(),
			RedMs:          snap.Config.Cycle.Red.Milliseconds(),
			NightOnMs:      snap.Config.Cycle.NightOn.Milliseconds(),
			NightOffMs:     snap.Config.Cycle.NightOff.Milliseconds(),
			ResetDwell:     snap.Config.ResetDwell,
			Broker:         snap.Config.Broker,
			HTTPPort:       snap.Config.HTTPPort,
			WSBroker:       snap.Config.WSBroker,
		},
	}
	if !snap.Since.IsZero() {
		inner.Since = snap.Since.UTC().Format(time.RFC3339Nano)
	}
	if r := snap.Reading; r != nil {
		inner.Reading = &ReadingJSON{WaterLevel: r.WaterLevel, RainLevel: r.RainLevel}
	}
	if c := snap.Calibration; c != nil {
		inner.Calibration = &CalibrationJSON{CenterY: c.CenterY, CenterX: c.CenterX, Samples: c.Samples}
	}
	for s, n := range snap.Counts {
		inner.Counts[string(s)] = n
	}
	if tr := snap.LastTransition; tr != nil {
		inner.LastTransition = &TransitionJSON{
			Timestamp: tr.Timestamp.UTC().Format(time.RFC3339Nano),
			From:      string(tr.From),
			To:        string(tr.To),
			Mode:      string(tr.ToMode),
			Cause:     string(tr.Cause),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// StateCount is one row of the transition count table.
type StateCount struct {
	State logic.State
	Count int
}

// SortedCounts returns the counts for states, in the given order, followed
// by any other counted state in name order.
func SortedCounts(counts map[logic.State]int, states []logic.State) []StateCount {
	out := make([]StateCount, 0, len(counts))
	seen := make(map[logic.State]bool, len(states))
	for _, s := range states {
		seen[s] = true
		out = append(out, StateCount{State: s, Count: counts[s]})
	}
	var extra []StateCount
	for s, n := range counts {
		if !seen[s] {
			extra = append(extra, StateCount{State: s, Count: n})
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].State < extra[j].State })
	return append(out, extra...)
}
