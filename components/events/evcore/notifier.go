package evcore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
)

// Notifier builds domain events and passes them to the publisher.
//
// Remarks:
//   - Publish errors are logged and never returned to the caller.
type Notifier struct {
	publisher ping.Publisher
	clock     syscore.Clock
}

// NewNotifier is an initialization of Notifier.
//
// Parameters:
//   - publisher - to deliver the built events.
//   - clock - to timestamp lifecycle events.
func NewNotifier(publisher ping.Publisher, clock syscore.Clock) *Notifier {
	return &Notifier{
		publisher: publisher,
		clock:     clock,
	}
}

// NotifyDeviceDown publishes the device.down event.
func (n *Notifier) NotifyDeviceDown(ctx context.Context, target ping.Target, at time.Time) {
	n.publish(ctx, newEvent(ping.EventDeviceDown, target, at))
}

// NotifyDeviceRecovered publishes the device.recovered event.
func (n *Notifier) NotifyDeviceRecovered(ctx context.Context, target ping.Target, at time.Time) {
	n.publish(ctx, newEvent(ping.EventDeviceRecovered, target, at))
}

// NotifyTargetStarted publishes the target.started event.
func (n *Notifier) NotifyTargetStarted(ctx context.Context, target ping.Target) {
	n.publish(ctx, newEvent(ping.EventTargetStarted, target, n.clock.Now()))
}

// NotifyTargetStopped publishes the target.stopped event.
func (n *Notifier) NotifyTargetStopped(ctx context.Context, target ping.Target) {
	n.publish(ctx, newEvent(ping.EventTargetStopped, target, n.clock.Now()))
}

// NotifyAddressUpdated publishes the target.address_updated event.
func (n *Notifier) NotifyAddressUpdated(
	ctx context.Context,
	target ping.Target,
	previous ping.Address,
) {
	event := newEvent(ping.EventTargetAddressUpdated, target, n.clock.Now())
	event.PreviousIPAddress = previous.IPAddress
	event.PreviousHostname = previous.Hostname

	n.publish(ctx, event)
}

func (n *Notifier) publish(ctx context.Context, event ping.Event) {
	if err := n.publisher.Publish(ctx, event); err != nil {
		core.LogErr.Errorf("event-notifier: failed to publish: id=%s type=%s device_id=%s err=%v",
			event.ID, event.Type, event.DeviceID, err)
	}
}

func newEvent(typ ping.EventType, target ping.Target, at time.Time) ping.Event {
	return ping.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		DeviceID:   target.DeviceID,
		DeviceName: target.Name,
		IPAddress:  target.Address.IPAddress,
		Hostname:   target.Address.Hostname,
		Timestamp:  at.UTC(),
	}
}
