package pipping

import (
	"github.com/go-redis/redis/v8"

	"github.com/open-control-systems/ping-monitor/components/config"
	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/events/evcore"
	"github.com/open-control-systems/ping-monitor/components/events/evmqtt"
	"github.com/open-control-systems/ping-monitor/components/events/evredis"
)

// NewEventPipeline builds the publisher delivering events to every configured sink.
//
// Parameters:
//   - closer - to register broker connections.
//   - client - redis connection, used only if redis events are enabled.
//   - params - events configuration.
//
// Remarks:
//   - Events are logged if no other sink is configured.
func NewEventPipeline(
	closer *core.FanoutCloser,
	client redis.Cmdable,
	params config.EventsConfig,
) (*evcore.FanoutPublisher, error) {
	publisher := &evcore.FanoutPublisher{}

	if params.Redis.Enabled {
		publisher.Add(evredis.NewStreamPublisher(client, params.Redis.Streams))
	}

	if params.MQTT.Enabled {
		mqttClient, err := evmqtt.Connect(params.MQTT.Params)
		if err != nil {
			return nil, err
		}
		closer.Add("mqtt-client", core.FuncCloser(func() error {
			mqttClient.Disconnect(250)

			return nil
		}))

		publisher.Add(evmqtt.NewPublisher(mqttClient, params.MQTT.Params))
	}

	if params.Log || publisher.Len() == 0 {
		publisher.Add(evcore.LogPublisher{})
	}

	core.LogInf.Infof("event-pipeline: sinks: redis=%t mqtt=%t total=%d",
		params.Redis.Enabled, params.MQTT.Enabled, publisher.Len())

	return publisher, nil
}
