// Package config loads the immutable controller configuration from defaults,
// an optional TOML/YAML file, SIGNALCTL_* environment variables and flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logic"
)

const (
	EnvPrefix       = "SIGNALCTL"
	DefaultLogLevel = "info"
	DefaultBroker   = "tcp://192.168.1.200:1883"
	DefaultHTTP     = ":80"
)

// Axis sources.
const (
	SourceSim = "sim"
	SourceIIO = "iio"
)

type Config struct {
	Variant    logic.Variant `mapstructure:"variant"`
	LogLevel   string        `mapstructure:"log_level"`
	HTTP       string        `mapstructure:"http"`
	Broker     string        `mapstructure:"broker"`
	WSBroker   string        `mapstructure:"ws_broker"`
	Heartbeat  time.Duration `mapstructure:"heartbeat"`
	PrintState bool          `mapstructure:"print_state"`

	Sampler    SamplerConfig    `mapstructure:"sampler"`
	Axis       AxisConfig       `mapstructure:"axis"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Cycle      CycleConfig      `mapstructure:"cycle"`
	Mode       ModeConfig       `mapstructure:"mode"`
	Buzzer     BuzzerConfig     `mapstructure:"buzzer"`
	Display    DisplayConfig    `mapstructure:"display"`
	Matrix     MatrixConfig     `mapstructure:"matrix"`
}

type SamplerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Warmup         time.Duration `mapstructure:"warmup"`
	WarmupInterval time.Duration `mapstructure:"warmup_interval"`
	QueueSize      int           `mapstructure:"queue_size"`
	Source         string        `mapstructure:"source"`
	IIODir         string        `mapstructure:"iio_dir"`
	YChannel       int           `mapstructure:"y_channel"`
	XChannel       int           `mapstructure:"x_channel"`
}

type AxisConfig struct {
	Min uint16 `mapstructure:"min"`
	Max uint16 `mapstructure:"max"`
}

type ThresholdsConfig struct {
	Water float64 `mapstructure:"water"`
	Rain  float64 `mapstructure:"rain"`
}

type CycleConfig struct {
	Green                  time.Duration `mapstructure:"green"`
	Yellow                 time.Duration `mapstructure:"yellow"`
	Red                    time.Duration `mapstructure:"red"`
	NightOn                time.Duration `mapstructure:"night_on"`
	NightOff               time.Duration `mapstructure:"night_off"`
	ResetDwellOnModeSwitch bool          `mapstructure:"reset_dwell_on_mode_switch"`
	Tick                   time.Duration `mapstructure:"tick"`
}

type ModeConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	Poll      time.Duration `mapstructure:"poll"`
	Chip      string        `mapstructure:"chip"`
	ButtonPin int           `mapstructure:"button_pin"`
}

// Pattern is a buzzer duty cycle: on for Pulse, then silent for Interval.
type Pattern struct {
	Pulse    time.Duration `mapstructure:"pulse"`
	Interval time.Duration `mapstructure:"interval"`
}

type BuzzerConfig struct {
	Pin       int                `mapstructure:"pin"`
	Intensity float64            `mapstructure:"intensity"`
	Cadence   time.Duration      `mapstructure:"cadence"`
	Patterns  map[string]Pattern `mapstructure:"patterns"`
}

type DisplayConfig struct {
	Cadence time.Duration `mapstructure:"cadence"`
}

type MatrixConfig struct {
	Period    time.Duration `mapstructure:"period"`
	Intensity float64       `mapstructure:"intensity"`
}

// Load parses args and merges every configuration source. The returned
// Config is validated and must not be modified afterwards.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, _ := fs.GetString("config")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	cfg.applyVariantDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("variant", string(logic.VariantFlood))
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("http", DefaultHTTP)
	v.SetDefault("broker", DefaultBroker)
	v.SetDefault("ws_broker", "=broker")
	v.SetDefault("heartbeat", 15*time.Minute)
	v.SetDefault("print_state", false)

	v.SetDefault("sampler.interval", 10*time.Millisecond)
	v.SetDefault("sampler.warmup", 2*time.Second)
	v.SetDefault("sampler.warmup_interval", 50*time.Millisecond)
	v.SetDefault("sampler.queue_size", 10)
	v.SetDefault("sampler.source", SourceSim)
	v.SetDefault("sampler.iio_dir", "/sys/bus/iio/devices/iio:device0")
	v.SetDefault("sampler.y_channel", 0)
	v.SetDefault("sampler.x_channel", 1)

	v.SetDefault("axis.min", 11)
	v.SetDefault("axis.max", 4074)

	v.SetDefault("thresholds.water", 70.0)
	v.SetDefault("thresholds.rain", 80.0)

	v.SetDefault("cycle.green", 5*time.Second)
	v.SetDefault("cycle.yellow", 2*time.Second)
	v.SetDefault("cycle.red", 5*time.Second)
	v.SetDefault("cycle.night_on", 1500*time.Millisecond)
	v.SetDefault("cycle.night_off", 500*time.Millisecond)
	v.SetDefault("cycle.reset_dwell_on_mode_switch", true)
	v.SetDefault("cycle.tick", 10*time.Millisecond)

	v.SetDefault("mode.debounce", 200*time.Millisecond)
	v.SetDefault("mode.poll", 10*time.Millisecond)
	v.SetDefault("mode.chip", "gpiochip0")
	v.SetDefault("mode.button_pin", 5)

	v.SetDefault("buzzer.pin", 21)
	v.SetDefault("buzzer.intensity", 0.5)
	v.SetDefault("buzzer.cadence", 5*time.Millisecond)
	for state, p := range DefaultPatterns() {
		key := "buzzer.patterns." + strings.ToLower(string(state))
		v.SetDefault(key+".pulse", p.Pulse)
		v.SetDefault(key+".interval", p.Interval)
	}

	// Zero means "use the variant default", see applyVariantDefaults.
	v.SetDefault("display.cadence", 0)
	v.SetDefault("matrix.period", 0)
	v.SetDefault("matrix.intensity", 1.0)
}

// DefaultPatterns returns the buzzer duty cycles for every known state.
// Traffic timings follow the light being shown; flood alerts beep faster as
// severity rises and Stable is silent.
func DefaultPatterns() map[logic.State]Pattern {
	return map[logic.State]Pattern{
		logic.StateGreen:        {Pulse: 100 * time.Millisecond, Interval: 1100 * time.Millisecond},
		logic.StateYellow:       {Pulse: 100 * time.Millisecond, Interval: 200 * time.Millisecond},
		logic.StateRed:          {Pulse: 500 * time.Millisecond, Interval: 1600 * time.Millisecond},
		logic.StateNightBlinkOn: {Pulse: 1500 * time.Millisecond, Interval: 600 * time.Millisecond},
		// The night beep spans the lit half of the blink and stops with it.
		logic.StateNightBlinkOff: {},

		logic.StateStable:        {},
		logic.StateHeavyRain:     {Pulse: 200 * time.Millisecond, Interval: 1800 * time.Millisecond},
		logic.StateWaterOverflow: {Pulse: 200 * time.Millisecond, Interval: 800 * time.Millisecond},
		logic.StateBothCritical:  {Pulse: 500 * time.Millisecond, Interval: 500 * time.Millisecond},
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("signalctl", pflag.ContinueOnError)
	fs.String("config", "", "Path to a TOML or YAML config file")
	fs.String("variant", string(logic.VariantFlood), "Controller variant: flood or traffic")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.String("http", DefaultHTTP, "HTTP status address (empty to disable)")
	fs.String("broker", DefaultBroker, "MQTT broker address (empty to disable)")
	fs.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	fs.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.Bool("print-state", false, "Calibrate, print the current reading and state, and exit")
	fs.String("source", SourceSim, "Axis source: sim or iio")
	fs.String("iio-dir", "/sys/bus/iio/devices/iio:device0", "IIO device directory for the iio source")
	fs.String("chip", "gpiochip0", "GPIO chip for the button and buzzer")
	fs.Int("button-pin", 5, "BCM pin for the mode button (0 disables)")
	fs.Int("buzzer-pin", 21, "BCM pin for the buzzer (0 logs instead)")
	fs.Duration("debounce", 200*time.Millisecond, "Mode button debounce window")
	fs.Bool("reset-dwell", true, "Restart the dwell timer when the mode switches")
	return fs
}

// flagKeys maps flag names onto viper keys.
var flagKeys = map[string]string{
	"variant":     "variant",
	"log-level":   "log_level",
	"http":        "http",
	"broker":      "broker",
	"ws-broker":   "ws_broker",
	"heartbeat":   "heartbeat",
	"print-state": "print_state",
	"source":      "sampler.source",
	"iio-dir":     "sampler.iio_dir",
	"chip":        "mode.chip",
	"button-pin":  "mode.button_pin",
	"buzzer-pin":  "buzzer.pin",
	"debounce":    "mode.debounce",
	"reset-dwell": "cycle.reset_dwell_on_mode_switch",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) applyVariantDefaults() {
	if c.Display.Cadence == 0 {
		c.Display.Cadence = 50 * time.Millisecond
		if c.Variant == logic.VariantTraffic {
			c.Display.Cadence = time.Second
		}
	}
	if c.Matrix.Period == 0 {
		c.Matrix.Period = 10 * time.Millisecond
		if c.Variant == logic.VariantTraffic {
			c.Matrix.Period = 38 * time.Millisecond
		}
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New().WithMessage(errors.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Variant {
	case logic.VariantFlood, logic.VariantTraffic:
	default:
		return invalid("unknown variant %q", c.Variant)
	}
	switch c.Sampler.Source {
	case SourceSim, SourceIIO:
	default:
		return invalid("unknown sampler source %q", c.Sampler.Source)
	}
	if c.Axis.Min >= c.Axis.Max {
		return invalid("axis min %d must be below max %d", c.Axis.Min, c.Axis.Max)
	}
	if c.Sampler.QueueSize < 1 {
		return invalid("sampler queue size must be at least 1")
	}
	if c.Sampler.Warmup < 0 || c.Sampler.WarmupInterval <= 0 {
		return invalid("sampler warmup must not be negative and warmup interval must be positive")
	}
	for name, th := range map[string]float64{"water": c.Thresholds.Water, "rain": c.Thresholds.Rain} {
		if th < 0 || th > 100 {
			return invalid("%s threshold %v outside [0, 100]", name, th)
		}
	}
	for name, d := range map[string]time.Duration{
		"cycle.green":      c.Cycle.Green,
		"cycle.yellow":     c.Cycle.Yellow,
		"cycle.red":        c.Cycle.Red,
		"cycle.night_on":   c.Cycle.NightOn,
		"cycle.night_off":  c.Cycle.NightOff,
		"cycle.tick":       c.Cycle.Tick,
		"sampler.interval": c.Sampler.Interval,
		"mode.poll":        c.Mode.Poll,
		"buzzer.cadence":   c.Buzzer.Cadence,
		"display.cadence":  c.Display.Cadence,
		"matrix.period":    c.Matrix.Period,
	} {
		if d <= 0 {
			return invalid("%s must be positive, got %v", name, d)
		}
	}
	if c.Mode.Debounce < 0 {
		return invalid("mode debounce must not be negative")
	}
	for state, p := range c.Buzzer.Patterns {
		if p.Pulse < 0 || p.Interval < 0 {
			return invalid("buzzer pattern %s has a negative duration", state)
		}
	}
	return nil
}

// CycleTimings returns the dwell times of the timed cycle.
func (c *Config) CycleTimings() logic.CycleTimings {
	return logic.CycleTimings{
		Green:    c.Cycle.Green,
		Yellow:   c.Cycle.Yellow,
		Red:      c.Cycle.Red,
		NightOn:  c.Cycle.NightOn,
		NightOff: c.Cycle.NightOff,
	}
}

// BuzzerPatterns returns the configured patterns keyed by state. Viper
// lowercases map keys, so they are upper-cased back here.
func (c *Config) BuzzerPatterns() map[logic.State]Pattern {
	out := make(map[logic.State]Pattern, len(c.Buzzer.Patterns))
	for k, p := range c.Buzzer.Patterns {
		out[logic.State(strings.ToUpper(k))] = p
	}
	return out
}

// Bounds returns the raw axis bounds.
func (c *Config) Bounds() logic.Bounds {
	return logic.Bounds{Min: c.Axis.Min, Max: c.Axis.Max}
}

// ClassifierThresholds returns the alert thresholds.
func (c *Config) ClassifierThresholds() logic.Thresholds {
	return logic.Thresholds{Water: c.Thresholds.Water, Rain: c.Thresholds.Rain}
}
