package mqtt

import "github.com/rs/zerolog"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is unreachable, oldest first.
// A retained message replaces any earlier retained message on its topic,
// since the broker would only keep the last one. When full, the oldest
// non-retained message (a transition or heartbeat) is dropped before any
// retained one (startup or shutdown).
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int
	warned   bool
	log      zerolog.Logger
}

func newOutbox(capacity int, log zerolog.Logger) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
		log:      log,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}
	if len(o.msgs) == o.capacity {
		o.evict()
	}
	o.msgs = append(o.msgs, msg)
}

// evict drops the oldest non-retained message, or the oldest message if
// every one is retained.
func (o *outbox) evict() {
	victim := 0
	for i, m := range o.msgs {
		if !m.retained {
			victim = i
			break
		}
	}
	o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
	o.dropped++
	if !o.warned {
		o.log.Warn().Int("capacity", o.capacity).Msg("offline buffer full, dropping oldest events")
		o.warned = true
	}
}

// drain returns every held message and empties the outbox.
func (o *outbox) drain() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = make([]bufferedMsg, 0, o.capacity)
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
