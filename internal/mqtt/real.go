package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/command"
)

// Options configures the broker connection.
type Options struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	BaseTopic string
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client    paho.Client
	baseTopic string
	log       *zap.Logger
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(opts Options, log *zap.Logger) (*RealPublisher, error) {
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	client := paho.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client:    client,
		baseTopic: opts.BaseTopic,
		log:       log,
	}, nil
}

// SubscribeCommands subscribes to the command topic and calls handler with
// each valid command. Invalid payloads are logged and dropped.
func (p *RealPublisher) SubscribeCommands(handler func(command.Kind)) error {
	topic := p.topic(TopicCommand)
	token := p.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		kind, err := ParseCommand(msg.Payload())
		if err != nil {
			p.log.Warn("dropping invalid remote command",
				zap.Error(err),
				zap.String("topic", msg.Topic()))
			return
		}
		handler(kind)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// PublishState sends a run-state change to the broker.
func (p *RealPublisher) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	// QoS 1, retained: remote dashboards need the current state on connect.
	return p.publish(p.topic(TopicState), 1, true, payload)
}

// PublishPosture sends a posture-machine change to the broker.
func (p *RealPublisher) PublishPosture(event PostureEvent) error {
	payload, err := FormatPosturePayload(event)
	if err != nil {
		return fmt.Errorf("format posture payload: %w", err)
	}
	return p.publish(p.topic(TopicPosture), 0, false, payload)
}

// PublishAlert sends a confirmed alert to the broker.
func (p *RealPublisher) PublishAlert(event AlertEvent) error {
	payload, err := FormatAlertPayload(event)
	if err != nil {
		return fmt.Errorf("format alert payload: %w", err)
	}
	// QoS 1: an alert is the one message that must arrive.
	return p.publish(p.topic(TopicAlert), 1, false, payload)
}

// PublishStats sends a periodic status summary to the broker.
func (p *RealPublisher) PublishStats(stats Stats) error {
	payload, err := FormatStatsPayload(stats)
	if err != nil {
		return fmt.Errorf("format stats payload: %w", err)
	}
	return p.publish(p.topic(TopicStats), 0, false, payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) topic(suffix string) string {
	return p.baseTopic + "/" + suffix
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
