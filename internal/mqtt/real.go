package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// outboxCapacity bounds how many messages are held while offline.
const outboxCapacity = 256

// replayTimeout bounds each publish while draining the outbox on paho's
// goroutine. liveTimeout bounds publishes made from the control loop, which
// must not stall on a half-open connection; a message that times out is held.
const (
	replayTimeout = 5 * time.Second
	liveTimeout   = 500 * time.Millisecond
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held in an outbox and replayed on reconnect.
type RealPublisher struct {
	client client

	mu        sync.Mutex
	outbox    *outbox
	connected bool // at least one successful connect
	replaying bool // outbox drain in progress; new messages queue behind it
	now       func() time.Time
}

// NewRealPublisher creates a publisher for the given broker. The gate must
// keep working without a broker, so a slow first connect is not an error:
// paho keeps retrying in the background and messages are held meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{
		outbox: newOutbox(outboxCapacity),
		now:    time.Now,
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, willPayload(), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c := paho.NewClient(opts)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect runs on paho's goroutine after every successful (re)connect.
// Messages sent while the outbox is being replayed are held and replayed in
// turn, so nothing overtakes an older held message.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.replaying = true
	held := p.outbox.drain()
	p.mu.Unlock()

	log.Printf("mqtt: connected (replaying %d held messages)", len(held))

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err == nil {
			err = p.publish(pendingMsg{topic: TopicSystem, payload: payload, qos: 1}, replayTimeout)
		}
		if err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}

	for {
		for i, m := range held {
			if err := p.publish(m, replayTimeout); err != nil {
				log.Printf("mqtt: replay to %s: %v", m.topic, err)
				p.requeue(held[i:])
				return
			}
		}

		p.mu.Lock()
		held = p.outbox.drain()
		if len(held) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// requeue puts unsent replay messages back ahead of anything held since, and
// ends the replay.
func (p *RealPublisher) requeue(unsent []pendingMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	newer := p.outbox.drain()
	for _, m := range unsent {
		p.outbox.push(m)
	}
	for _, m := range newer {
		p.outbox.push(m)
	}
	p.replaying = false
}

// SendLine publishes a notification line (QoS 0, not retained).
func (p *RealPublisher) SendLine(text string) error {
	return p.send(pendingMsg{topic: TopicNotify, payload: []byte(text)})
}

// Publish sends an access event (QoS 1, not retained).
func (p *RealPublisher) Publish(event AccessEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(pendingMsg{topic: TopicEvents, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(pendingMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m pendingMsg) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.outbox.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.publish(m, liveTimeout); err != nil {
		p.hold(m)
		return err
	}
	return nil
}

func (p *RealPublisher) publish(m pendingMsg, timeout time.Duration) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) hold(m pendingMsg) {
	p.mu.Lock()
	p.outbox.push(m)
	p.mu.Unlock()
}

// Held returns the number of messages waiting for a connection.
func (p *RealPublisher) Held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
