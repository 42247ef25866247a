package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/signalctl/internal/errors"
	"github.com/sweeney/signalctl/internal/logger"
	"github.com/sweeney/signalctl/internal/logic"
)

// bufferCapacity bounds the messages held while the broker is unreachable.
const bufferCapacity = 100

// RealPublisher publishes to an actual MQTT broker. The initial connection
// is retried in the background with exponential backoff; events published
// while disconnected are buffered and replayed on (re)connect.
type RealPublisher struct {
	client  paho.Client
	variant logic.Variant
	log     zerolog.Logger
	cancel  context.CancelFunc

	mu            sync.Mutex
	buffer        *outbox
	connectedOnce bool
}

// NewRealPublisher creates a publisher for the given broker and starts
// connecting. It never blocks on the network.
func NewRealPublisher(broker string, variant logic.Variant) *RealPublisher {
	log := logger.Component("mqtt")
	p := &RealPublisher{
		variant: variant,
		log:     log,
		buffer:  newOutbox(bufferCapacity, log),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("signalctl-" + string(variant)).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("connection lost, buffering events")
		})
	p.client = paho.NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.connect(ctx, broker)

	return p
}

func (p *RealPublisher) connect(ctx context.Context, broker string) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // keep trying until Close

	err := backoff.RetryNotify(func() error {
		token := p.client.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("connection timeout")
		}
		return token.Error()
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		p.log.Warn().Err(err).Str("broker", broker).Dur("retry_in", next).Msg("connect failed")
	})
	if err != nil {
		p.log.Debug().Err(err).Msg("gave up connecting")
		return
	}
	p.log.Info().Str("broker", broker).Msg("connected")
}

// onConnect runs on every successful (re)connect. After the first connect it
// announces the reconnection, then replays everything buffered while offline.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	pending := p.buffer.drain()
	p.mu.Unlock()

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, false, payload)
	}

	for _, msg := range pending {
		token := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			p.log.Warn().Err(token.Error()).Str("topic", msg.topic).Msg("replay failed")
		}
	}
	if len(pending) > 0 {
		p.log.Info().Int("count", len(pending)).Msg("replayed buffered events")
	}
}

// PublishTransition sends a transition to the MQTT broker.
func (p *RealPublisher) PublishTransition(t logic.Transition) error {
	payload, err := FormatPayload(p.variant, t)
	if err != nil {
		return errors.New().Wrap(errors.ErrPublish, fmt.Errorf("format payload: %w", err))
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.New().Wrap(errors.ErrPublish, fmt.Errorf("format system payload: %w", err))
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New().WithMessage(errors.ErrPublish, "publish timeout")
	}
	if err := token.Error(); err != nil {
		return errors.New().Wrap(errors.ErrPublish, err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the connection to the broker is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close stops connection attempts and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.cancel()
	if p.client.IsConnected() {
		p.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}
