package evredis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingsync"
	"github.com/open-control-systems/ping-monitor/components/status"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	server := miniredis.RunT(t)

	client := NewClient(ClientParams{Addr: server.Addr()})
	t.Cleanup(func() {
		require.Nil(t, client.Close())
	})

	return server, client
}

func testEntryValues(entry miniredis.StreamEntry) map[string]string {
	values := make(map[string]string)

	for i := 0; i+1 < len(entry.Values); i += 2 {
		values[entry.Values[i]] = entry.Values[i+1]
	}

	return values
}

func TestStreamPublisher(t *testing.T) {
	server, client := newTestRedis(t)

	params := DefaultStreamParams()
	publisher := NewStreamPublisher(client, params)

	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	for _, typ := range []ping.EventType{
		ping.EventDeviceDown,
		ping.EventDeviceRecovered,
		ping.EventTargetStarted,
		ping.EventTargetAddressUpdated,
	} {
		require.Nil(t, publisher.Publish(context.Background(), ping.Event{
			ID:        "id-" + string(typ),
			Type:      typ,
			DeviceID:  "0xA",
			IPAddress: "10.0.0.1",
			Timestamp: at,
		}))
	}

	down, err := server.Stream(params.DeviceDown)
	require.Nil(t, err)
	require.Len(t, down, 1)

	values := testEntryValues(down[0])
	require.Equal(t, "device.down", values["event_type"])
	require.Equal(t, "0xA", values["device_id"])
	require.Equal(t, "2026-05-06T07:08:09Z", values["timestamp"])

	var event ping.Event
	require.Nil(t, json.Unmarshal([]byte(values["data"]), &event))
	require.Equal(t, "id-device.down", event.ID)
	require.Equal(t, "10.0.0.1", event.IPAddress)
	require.True(t, at.Equal(event.Timestamp))

	recovered, err := server.Stream(params.DeviceRecovered)
	require.Nil(t, err)
	require.Len(t, recovered, 1)

	target, err := server.Stream(params.Target)
	require.Nil(t, err)
	require.Len(t, target, 2)
	require.Equal(t, "target.started", testEntryValues(target[0])["event_type"])
	require.Equal(t, "target.address_updated", testEntryValues(target[1])["event_type"])
}

func TestStreamPublisherError(t *testing.T) {
	server, client := newTestRedis(t)

	publisher := NewStreamPublisher(client, DefaultStreamParams())

	server.SetError("READONLY")

	require.NotNil(t, publisher.Publish(context.Background(), ping.Event{
		Type:     ping.EventDeviceDown,
		DeviceID: "0xA",
	}))
}

type testDeviceHandler struct {
	mu         sync.Mutex
	events     []pingsync.DeviceEvent
	calls      map[string]int
	err        error
	failDevice string
}

func (h *testDeviceHandler) HandleDeviceEvent(_ context.Context, ev pingsync.DeviceEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.calls == nil {
		h.calls = make(map[string]int)
	}
	h.calls[ev.DeviceID]++

	if ev.DeviceID == h.failDevice {
		return status.StatusError
	}

	if h.err != nil {
		return h.err
	}

	h.events = append(h.events, ev)

	return nil
}

func (h *testDeviceHandler) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.err = err
}

func (h *testDeviceHandler) getCalls(deviceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.calls[deviceID]
}

func (h *testDeviceHandler) getEvents() []pingsync.DeviceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]pingsync.DeviceEvent(nil), h.events...)
}

func newTestConsumerParams() ConsumerParams {
	params := DefaultConsumerParams()
	params.Block = time.Millisecond * 20
	params.MaxBackoff = time.Millisecond * 50

	return params
}

func testAddDeviceEvent(t *testing.T, client *redis.Client, stream string, ev pingsync.DeviceEvent) {
	data, err := json.Marshal(ev)
	require.Nil(t, err)

	require.Nil(t, client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"event_type": string(ev.Type),
			"data":       string(data),
		},
	}).Err())
}

func testPendingCount(t *testing.T, client *redis.Client, params ConsumerParams) int64 {
	pending, err := client.XPending(context.Background(), params.Stream, params.Group).Result()
	require.Nil(t, err)

	return pending.Count
}

func TestDeviceConsumerConsume(t *testing.T) {
	_, client := newTestRedis(t)

	params := newTestConsumerParams()
	handler := &testDeviceHandler{}

	consumer := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, consumer.createGroup(context.Background()))

	// Group already exists.
	require.Nil(t, consumer.createGroup(context.Background()))

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:      pingsync.DeviceCreated,
		DeviceID:  "0xA",
		IPAddress: "10.0.0.1",
	})

	// Malformed.
	require.Nil(t, client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: params.Stream,
		Values: map[string]interface{}{"data": "{"},
	}).Err())

	count, err := consumer.Consume(context.Background(), ">")
	require.Nil(t, err)
	require.Equal(t, 2, count)

	events := handler.getEvents()
	require.Len(t, events, 1)
	require.Equal(t, pingsync.DeviceCreated, events[0].Type)
	require.Equal(t, "0xA", events[0].DeviceID)
	require.Equal(t, int64(0), testPendingCount(t, client, params))

	count, err = consumer.Consume(context.Background(), ">")
	require.Nil(t, err)
	require.Equal(t, 0, count)
}

func TestDeviceConsumerHandlerFailureKeepsPending(t *testing.T) {
	_, client := newTestRedis(t)

	params := newTestConsumerParams()
	handler := &testDeviceHandler{err: status.StatusError}

	consumer := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, consumer.createGroup(context.Background()))

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:     pingsync.DeviceDeleted,
		DeviceID: "0xA",
	})

	count, err := consumer.Consume(context.Background(), ">")
	require.Nil(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, int64(1), testPendingCount(t, client, params))

	handler.setErr(nil)

	count, err = consumer.Consume(context.Background(), "0")
	require.Nil(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, int64(0), testPendingCount(t, client, params))
	require.Len(t, handler.getEvents(), 1)
}

func TestDeviceConsumerRejectedMessageAcked(t *testing.T) {
	_, client := newTestRedis(t)

	params := newTestConsumerParams()
	handler := &testDeviceHandler{
		err: fmt.Errorf("bad address: %w", status.StatusInvalidArg),
	}

	consumer := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, consumer.createGroup(context.Background()))

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:      pingsync.DeviceCreated,
		DeviceID:  "0xA",
		IPAddress: "not-an-ip",
	})

	count, err := consumer.Consume(context.Background(), ">")
	require.Nil(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, int64(0), testPendingCount(t, client, params))
}

func TestDeviceConsumerFailingPendingDoesntBlockNew(t *testing.T) {
	_, client := newTestRedis(t)

	params := newTestConsumerParams()
	handler := &testDeviceHandler{failDevice: "bad"}

	first := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, first.createGroup(context.Background()))

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:      pingsync.DeviceCreated,
		DeviceID:  "bad",
		IPAddress: "10.0.0.1",
	})

	_, err := first.Consume(context.Background(), ">")
	require.Nil(t, err)
	require.Nil(t, first.Stop())
	require.Equal(t, int64(1), testPendingCount(t, client, params))

	consumer := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, consumer.Start())

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:      pingsync.DeviceCreated,
		DeviceID:  "good",
		IPAddress: "10.0.0.2",
	})

	require.Eventually(t, func() bool {
		return len(handler.getEvents()) == 1
	}, time.Second*5, time.Millisecond*5)

	require.Nil(t, consumer.Stop())

	require.Equal(t, "good", handler.getEvents()[0].DeviceID)
	require.LessOrEqual(t, handler.getCalls("bad"), 3)
	require.Equal(t, int64(1), testPendingCount(t, client, params))
}

func TestDeviceConsumerRun(t *testing.T) {
	_, client := newTestRedis(t)

	params := newTestConsumerParams()
	handler := &testDeviceHandler{err: status.StatusError}

	// Leave a pending message behind.
	first := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, first.createGroup(context.Background()))

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:     pingsync.DeviceUpdated,
		DeviceID: "0xA",
		Name:     "kitchen",
	})

	_, err := first.Consume(context.Background(), ">")
	require.Nil(t, err)
	require.Nil(t, first.Stop())

	handler.setErr(nil)

	consumer := NewDeviceConsumer(context.Background(), client, handler, params)
	require.Nil(t, consumer.Start())

	require.Eventually(t, func() bool {
		return len(handler.getEvents()) == 1
	}, time.Second*5, time.Millisecond*5)

	testAddDeviceEvent(t, client, params.Stream, pingsync.DeviceEvent{
		Type:     pingsync.DeviceDeleted,
		DeviceID: "0xB",
	})

	require.Eventually(t, func() bool {
		return len(handler.getEvents()) == 2
	}, time.Second*5, time.Millisecond*5)

	require.Nil(t, consumer.Stop())
	require.Nil(t, consumer.Stop())

	events := handler.getEvents()
	require.Equal(t, "kitchen", events[0].Name)
	require.Equal(t, "0xB", events[1].DeviceID)
	require.Equal(t, int64(0), testPendingCount(t, client, params))
}

func TestDeviceConsumerStopWithoutStart(t *testing.T) {
	_, client := newTestRedis(t)

	consumer := NewDeviceConsumer(context.Background(), client, &testDeviceHandler{},
		newTestConsumerParams())
	require.Nil(t, consumer.Stop())
}

func TestDecodeDeviceEvent(t *testing.T) {
	ev, err := decodeDeviceEvent(redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"event_type": "deleted",
			"device_id":  "0xA",
			"data":       `{"hostname":"a.local"}`,
		},
	})
	require.Nil(t, err)
	require.Equal(t, pingsync.DeviceDeleted, ev.Type)
	require.Equal(t, "0xA", ev.DeviceID)
	require.Equal(t, "a.local", ev.Hostname)

	_, err = decodeDeviceEvent(redis.XMessage{Values: map[string]interface{}{}})
	require.ErrorIs(t, err, status.StatusInvalidArg)

	_, err = decodeDeviceEvent(redis.XMessage{
		Values: map[string]interface{}{"data": `{"device_id":"0xA"}`},
	})
	require.ErrorIs(t, err, status.StatusInvalidArg)
}
