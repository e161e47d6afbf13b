package evmqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// Client is the subset of the MQTT client used for publishing.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Params configures the MQTT connection and topics.
type Params struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// TopicPrefix - prefix for all published topics.
	TopicPrefix string `yaml:"topic_prefix"`

	// QoS - MQTT quality of service level, 0, 1, or 2.
	QoS byte `yaml:"qos"`

	// Retained - ask the broker to keep the last message per topic.
	Retained bool `yaml:"retained"`
}

// Connect connects to the MQTT broker.
func Connect(params Params) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(params.Broker)
	opts.SetClientID(params.ClientID)

	if params.Username != "" {
		opts.SetUsername(params.Username)
	}
	if params.Password != "" {
		opts.SetPassword(params.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(time.Second * 10)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt-publisher: failed to connect: broker=%s: %w",
			params.Broker, token.Error())
	}

	return client, nil
}

// Publisher publishes events as JSON to MQTT topics.
type Publisher struct {
	client Client
	params Params
}

// NewPublisher is an initialization of Publisher.
func NewPublisher(client Client, params Params) *Publisher {
	return &Publisher{
		client: client,
		params: params,
	}
}

// Publish sends the event and waits for the delivery to complete.
func (p *Publisher) Publish(ctx context.Context, event ping.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("mqtt-publisher: failed to encode event: %w", err)
	}

	topic := p.Topic(event.Type)

	token := p.client.Publish(topic, p.params.QoS, p.params.Retained, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt-publisher: topic=%s: %w", topic, status.StatusTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt-publisher: failed to publish: topic=%s: %w", topic, err)
	}

	return nil
}

// Topic returns the topic for the event type.
func (p *Publisher) Topic(typ ping.EventType) string {
	switch typ {
	case ping.EventDeviceDown:
		return p.params.TopicPrefix + "/device-down"
	case ping.EventDeviceRecovered:
		return p.params.TopicPrefix + "/device-recovered"
	case ping.EventTargetStarted:
		return p.params.TopicPrefix + "/target/started"
	case ping.EventTargetStopped:
		return p.params.TopicPrefix + "/target/stopped"
	case ping.EventTargetAddressUpdated:
		return p.params.TopicPrefix + "/target/address-updated"
	default:
		return p.params.TopicPrefix + "/target/" + string(typ)
	}
}
