package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/mqtt"
	"github.com/sweeney/signalctl/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": formatDuration,
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"stateClass": stateClass,
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}).Parse(indexHTML))

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// stateClass maps a state to the CSS class used to color it.
func stateClass(s logic.State) string {
	switch s {
	case logic.StateStable, logic.StateGreen:
		return "ok"
	case logic.StateYellow, logic.StateHeavyRain, logic.StateNightBlinkOn, logic.StateNightBlinkOff:
		return "warn"
	case logic.StateRed, logic.StateWaterOverflow, logic.StateBothCritical:
		return "alert"
	}
	return "unknown"
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.warn { color: #c80; font-weight: bold; }
.alert { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>{{.Title}}{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .State}}">{{orUnknown (printf "%s" .State)}}</td></tr>
<tr><th>Mode</th><td id="mode">{{orUnknown (printf "%s" .Mode)}}</td></tr>
<tr><th>In state</th><td>{{duration .InState}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
{{if .Reading}}<tr><th>Water level</th><td id="water">{{printf "%.1f" .Reading.WaterLevel}}%</td></tr>
<tr><th>Rain level</th><td id="rain">{{printf "%.1f" .Reading.RainLevel}}%</td></tr>{{end}}
{{if .Calibration}}<tr><th>Center</th><td>Y {{printf "%.1f" .Calibration.CenterY}} / X {{printf "%.1f" .Calibration.CenterX}} ({{.Calibration.Samples}} samples)</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Transitions</h2>
<table>
{{range .Rows}}<tr><th>{{.State}}</th><td>{{.Count}}</td></tr>
{{end}}{{if .LastTransition}}<tr><th>Last</th><td>{{.LastTransition.From}} &rarr; {{.LastTransition.To}} ({{.LastTransition.Cause}})</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Variant</th><td>{{.Config.Variant}}</td></tr>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
{{if .Traffic}}<tr><th>Cycle</th><td>{{ms .Config.Cycle.Green}}/{{ms .Config.Cycle.Yellow}}/{{ms .Config.Cycle.Red}}ms</td></tr>
<tr><th>Night blink</th><td>{{ms .Config.Cycle.NightOn}}/{{ms .Config.Cycle.NightOff}}ms</td></tr>
{{else}}<tr><th>Thresholds</th><td>water {{printf "%.1f" .Config.Thresholds.Water}}%, rain {{printf "%.1f" .Config.Thresholds.Rain}}%</td></tr>
{{end}}<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("state");
  var modeEl = document.getElementById("mode");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.signal) {
        stateEl.textContent = msg.signal.to;
        stateEl.className = "";
        modeEl.textContent = msg.signal.mode;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

type pageData struct {
	status.Snapshot
	Title   string
	Topic   string
	Traffic bool
	Uptime  time.Duration
	InState time.Duration
	Rows    []status.StateCount
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	states := logic.FloodStates
	title := "Flood Monitor"
	traffic := snap.Config.Variant == string(logic.VariantTraffic)
	if traffic {
		states = logic.TrafficStates
		title = "Traffic Light"
	}
	data := pageData{
		Snapshot: snap,
		Title:    title,
		Topic:    mqtt.Topic,
		Traffic:  traffic,
		Uptime:   snap.Uptime(),
		InState:  snap.InState(),
		Rows:     status.SortedCounts(snap.Counts, states),
	}
	if data.Config.Variant == "" {
		data.Title = "signalctl"
	}
	return indexTmpl.Execute(w, data)
}
