package evredis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/open-control-systems/ping-monitor/components/ping"
)

// StreamParams configures stream names for published events.
type StreamParams struct {
	// DeviceDown - stream for device.down events.
	DeviceDown string `yaml:"device_down"`

	// DeviceRecovered - stream for device.recovered events.
	DeviceRecovered string `yaml:"device_recovered"`

	// Target - stream for target lifecycle events.
	Target string `yaml:"target"`

	// MaxLen - approximate stream length cap, 0 means unbounded.
	MaxLen int64 `yaml:"max_len"`
}

// DefaultStreamParams returns the default stream names.
func DefaultStreamParams() StreamParams {
	return StreamParams{
		DeviceDown:      "ping-monitoring.device-down",
		DeviceRecovered: "ping-monitoring.device-recovered",
		Target:          "ping-monitoring.target",
		MaxLen:          10000,
	}
}

// StreamPublisher appends events to redis streams.
type StreamPublisher struct {
	client redis.Cmdable
	params StreamParams
}

// NewStreamPublisher is an initialization of StreamPublisher.
func NewStreamPublisher(client redis.Cmdable, params StreamParams) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		params: params,
	}
}

// Publish adds the event to the stream selected by the event type.
func (p *StreamPublisher) Publish(ctx context.Context, event ping.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis-publisher: failed to encode event: %w", err)
	}

	stream := p.streamFor(event.Type)

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"event_type": string(event.Type),
			"device_id":  event.DeviceID,
			"data":       string(data),
			"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}

	if p.params.MaxLen > 0 {
		args.MaxLen = p.params.MaxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis-publisher: failed to add event: stream=%s type=%s: %w",
			stream, event.Type, err)
	}

	return nil
}

func (p *StreamPublisher) streamFor(typ ping.EventType) string {
	switch typ {
	case ping.EventDeviceDown:
		return p.params.DeviceDown
	case ping.EventDeviceRecovered:
		return p.params.DeviceRecovered
	default:
		return p.params.Target
	}
}
