// Command signalctl runs a flood monitor or a traffic light controller and
// publishes its state changes to MQTT.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/signalctl/internal/config"
	"github.com/sweeney/signalctl/internal/controller"
	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logger"
	"github.com/sweeney/signalctl/internal/logic"
	"github.com/sweeney/signalctl/internal/metrics"
	"github.com/sweeney/signalctl/internal/mqtt"
	"github.com/sweeney/signalctl/internal/periph"
	"github.com/sweeney/signalctl/internal/status"
	"github.com/sweeney/signalctl/internal/web"
)

// simPeriod is one full sweep of the simulated Y axis.
const simPeriod = 20 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: %v\n", err)
		os.Exit(2)
	}
	logger.Init(cfg.LogLevel, logger.IsService())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), cfg, sigCh); err != nil {
		logger.ErrorWithCode(err).Msg("fatal")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sig <-chan os.Signal) error {
	ports, closePorts, err := openPorts(cfg)
	if err != nil {
		return err
	}
	defer closePorts()

	if cfg.PrintState {
		ctrl, err := controller.New(cfg, ports, controller.Deps{})
		if err != nil {
			return err
		}
		return ctrl.PrintState(ctx, os.Stdout)
	}

	var publisher mqtt.Publisher = mqtt.Discard{}
	if cfg.Broker != "" {
		publisher = mqtt.NewRealPublisher(cfg.Broker, cfg.Variant)
	}
	defer publisher.Close()

	return serve(ctx, cfg, ports, publisher, sig)
}

// serve publishes STARTUP, runs the controller and the status server until
// a signal arrives or the controller fails, then publishes SHUTDOWN.
func serve(ctx context.Context, cfg *config.Config, ports controller.Ports, publisher mqtt.Publisher, sig <-chan os.Signal) error {
	log := logger.Component("main")
	mqttStatus, _ := publisher.(mqtt.ConnectionStatus)

	m := metrics.New()
	tracker := status.NewTracker(time.Now(), status.Config{
		Variant:     string(cfg.Variant),
		SampleMs:    cfg.Sampler.Interval.Milliseconds(),
		DebounceMs:  cfg.Mode.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Thresholds:  cfg.ClassifierThresholds(),
		Cycle:       cfg.CycleTimings(),
		ResetDwell:  cfg.Cycle.ResetDwellOnModeSwitch,
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTP,
		WSBroker:    resolveWSBroker(cfg.WSBroker, cfg.Broker),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	ctrl, err := controller.New(cfg, ports, controller.Deps{
		Publisher: publisher,
		Metrics:   m,
		Tracker:   tracker,
		Network:   readNetworkInfo,
	})
	if err != nil {
		return err
	}

	publishSystem(publisher, mqttStatus, tracker, "STARTUP", "")

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	log.Info().
		Str("variant", string(cfg.Variant)).
		Str("source", cfg.Sampler.Source).
		Dur("debounce", cfg.Mode.Debounce).
		Str("broker", cfg.Broker).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	reason := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			reason <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := ctrl.Run(ctx)
	cancel()

	why := "STOPPED"
	if runErr != nil {
		why = string(errors.CodeOf(runErr))
	}
	select {
	case why = <-reason:
	default:
	}
	publishSystem(publisher, mqttStatus, tracker, "SHUTDOWN", why)
	return runErr
}

func publishSystem(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string) {
	log := logger.Component("main")
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	log.Info().Str("event", event).Msg("published system event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// openPorts selects the axis source and the outputs. GPIO is opened when a
// button or buzzer pin is configured; outputs without hardware are logged.
func openPorts(cfg *config.Config) (controller.Ports, func(), error) {
	log := logger.Component("periph")
	errFactory := errors.New()
	clock := periph.SystemClock{}
	outputs := periph.NewLogOutputs(logger.Component("outputs"))

	ports := controller.Ports{
		Buzzer:  outputs,
		Display: outputs,
		Matrix:  outputs,
		Clock:   clock,
	}
	closePorts := func() {}

	switch cfg.Sampler.Source {
	case config.SourceIIO:
		axis, err := periph.NewIIOAxis(cfg.Sampler.IIODir)
		if err != nil {
			return ports, closePorts, errFactory.Wrap(errors.ErrInitFailed, err)
		}
		ports.Axis = axis
	default:
		sim := periph.NewSimAxis(clock, cfg.Bounds(), cfg.Sampler.Warmup, simPeriod)
		sim.YChannel = logic.Channel(cfg.Sampler.YChannel)
		ports.Axis = sim
	}

	if cfg.Mode.ButtonPin == 0 && cfg.Buzzer.Pin == 0 {
		return ports, closePorts, nil
	}

	gpio, err := periph.OpenGPIO(cfg.Mode.Chip, cfg.Mode.ButtonPin, cfg.Buzzer.Pin)
	if err != nil {
		if cfg.Sampler.Source == config.SourceSim {
			log.Warn().Err(err).Msg("gpio unavailable, buzzer logged and mode button disabled")
			return ports, closePorts, nil
		}
		return ports, closePorts, errFactory.Wrap(errors.ErrInitFailed, err)
	}
	closePorts = func() {
		if err := gpio.Close(); err != nil {
			log.Warn().Err(err).Msg("gpio close failed")
		}
	}
	if cfg.Mode.ButtonPin != 0 {
		ports.Button = gpio
	}
	if cfg.Buzzer.Pin != 0 {
		ports.Buzzer = gpio
	}
	return ports, closePorts, nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" and an
// empty broker disable it.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil {
		logger.Warn().Err(err).Str("broker", broker).Msg("ws-broker: cannot parse broker")
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
