package evredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-redis/redis/v8"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping/pingsync"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// DeviceHandler handles device directory changes.
type DeviceHandler interface {
	// HandleDeviceEvent applies a single directory change.
	HandleDeviceEvent(ctx context.Context, ev pingsync.DeviceEvent) error
}

// ConsumerParams configures the directory stream consumer.
type ConsumerParams struct {
	// Stream - directory stream name.
	Stream string `yaml:"stream"`

	// Group - consumer group name.
	Group string `yaml:"group"`

	// Consumer - consumer name within the group.
	Consumer string `yaml:"consumer"`

	// Count - maximum number of messages per read.
	Count int64 `yaml:"count"`

	// Block - how long a single read waits for new messages.
	Block time.Duration `yaml:"block"`

	// MaxBackoff - upper bound for the delay after a failed read.
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// DefaultConsumerParams returns the default consumer configuration.
func DefaultConsumerParams() ConsumerParams {
	return ConsumerParams{
		Stream:     "device-directory.events",
		Group:      "ping-monitor",
		Consumer:   "ping-monitor-1",
		Count:      16,
		Block:      time.Second * 5,
		MaxBackoff: time.Second * 30,
	}
}

// DeviceConsumer reads directory events from a redis stream within a consumer group.
//
// Remarks:
//   - Messages are acknowledged only after they are handled.
//   - Messages left pending by a previous run are handled first.
//   - Malformed messages and messages rejected as invalid or conflicting are
//     logged and acknowledged.
//   - Pending messages are redelivered once per Start, then new messages are read.
type DeviceConsumer struct {
	client  redis.Cmdable
	handler DeviceHandler
	params  ConsumerParams

	ctx    context.Context
	cancel context.CancelFunc

	startOne sync.Once
	doneCh   chan struct{}
}

// NewDeviceConsumer is an initialization of DeviceConsumer.
//
// Parameters:
//   - ctx - parent context, consuming is stopped when ctx is canceled.
//   - client - redis connection.
//   - handler - to apply directory changes.
//   - params - stream and group configuration.
func NewDeviceConsumer(
	ctx context.Context,
	client redis.Cmdable,
	handler DeviceHandler,
	params ConsumerParams,
) *DeviceConsumer {
	ctx, cancel := context.WithCancel(ctx)

	return &DeviceConsumer{
		client:  client,
		handler: handler,
		params:  params,
		ctx:     ctx,
		cancel:  cancel,
		doneCh:  make(chan struct{}),
	}
}

// Start creates the consumer group and starts consuming in the background.
func (c *DeviceConsumer) Start() error {
	if err := c.createGroup(c.ctx); err != nil {
		return err
	}

	c.startOne.Do(func() {
		go c.run()
	})

	return nil
}

// Stop stops consuming and waits until the background goroutine exits.
func (c *DeviceConsumer) Stop() error {
	c.cancel()

	c.startOne.Do(func() {
		close(c.doneCh)
	})

	<-c.doneCh

	return nil
}

// Consume reads and handles a single batch.
//
// Parameters:
//   - id - "0" to read own pending messages, ">" to read new ones.
//
// Returns the number of read messages.
func (c *DeviceConsumer) Consume(ctx context.Context, id string) (int, error) {
	count, _, err := c.consume(ctx, id)

	return count, err
}

func (c *DeviceConsumer) consume(ctx context.Context, id string) (int, string, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.params.Group,
		Consumer: c.params.Consumer,
		Streams:  []string{c.params.Stream, id},
		Count:    c.params.Count,
		Block:    c.params.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, id, nil
		}

		return 0, id, fmt.Errorf("redis-consumer: failed to read: stream=%s: %w",
			c.params.Stream, err)
	}

	count := 0
	lastID := id

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			count++
			lastID = msg.ID

			if err := c.handle(ctx, msg); err != nil {
				if !isPermanent(err) {
					core.LogErr.Errorf("redis-consumer: failed to handle: stream=%s msg_id=%s err=%v",
						c.params.Stream, msg.ID, err)

					continue
				}

				core.LogWrn.Warnf("redis-consumer: drop rejected message: msg_id=%s err=%v",
					msg.ID, err)
			}

			if err := c.client.XAck(ctx, c.params.Stream, c.params.Group, msg.ID).Err(); err != nil {
				return count, lastID, fmt.Errorf("redis-consumer: failed to ack: msg_id=%s: %w",
					msg.ID, err)
			}
		}
	}

	return count, lastID, nil
}

func (c *DeviceConsumer) run() {
	defer close(c.doneCh)

	core.LogInf.Infof("redis-consumer: started: stream=%s group=%s consumer=%s",
		c.params.Stream, c.params.Group, c.params.Consumer)

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = c.params.MaxBackoff
	b.MaxElapsedTime = 0

	id := "0"

	for c.ctx.Err() == nil {
		count, lastID, err := c.consume(c.ctx, id)
		if err != nil {
			if c.ctx.Err() != nil {
				break
			}

			delay := b.NextBackOff()

			core.LogErr.Errorf("redis-consumer: %v: retry_in=%s", err, delay)

			select {
			case <-time.After(delay):
			case <-c.ctx.Done():
			}

			continue
		}

		b.Reset()

		// Pending messages are read once per start, failed ones stay pending
		// until the next start.
		if id != ">" {
			if count == 0 {
				id = ">"
			} else {
				id = lastID
			}
		}
	}

	core.LogInf.Infof("redis-consumer: stopped: stream=%s", c.params.Stream)
}

func (c *DeviceConsumer) handle(ctx context.Context, msg redis.XMessage) error {
	ev, err := decodeDeviceEvent(msg)
	if err != nil {
		core.LogWrn.Warnf("redis-consumer: drop malformed message: msg_id=%s err=%v", msg.ID, err)

		return nil
	}

	return c.handler.HandleDeviceEvent(ctx, ev)
}

// isPermanent reports whether redelivery can't change the handling result.
func isPermanent(err error) bool {
	return errors.Is(err, status.StatusInvalidArg) || errors.Is(err, status.StatusConflict)
}

func (c *DeviceConsumer) createGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.params.Stream, c.params.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis-consumer: failed to create group: stream=%s group=%s: %w",
			c.params.Stream, c.params.Group, err)
	}

	return nil
}

func decodeDeviceEvent(msg redis.XMessage) (pingsync.DeviceEvent, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return pingsync.DeviceEvent{}, fmt.Errorf("missing data field: %w", status.StatusInvalidArg)
	}

	var ev pingsync.DeviceEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return pingsync.DeviceEvent{}, fmt.Errorf("invalid data: %v: %w", err, status.StatusInvalidArg)
	}

	if ev.Type == "" {
		if typ, ok := msg.Values["event_type"].(string); ok {
			ev.Type = pingsync.DeviceEventType(typ)
		}
	}

	if ev.DeviceID == "" {
		if id, ok := msg.Values["device_id"].(string); ok {
			ev.DeviceID = id
		}
	}

	return ev, ev.Validate()
}
