package ping

import (
	"context"
	"time"
)

// EventType identifies a published event.
type EventType string

const (
	// EventDeviceDown - the device crossed the failure threshold.
	EventDeviceDown EventType = "device.down"

	// EventDeviceRecovered - the device crossed the recovery threshold.
	EventDeviceRecovered EventType = "device.recovered"

	// EventTargetStarted - monitoring was started.
	EventTargetStarted EventType = "target.started"

	// EventTargetStopped - monitoring was stopped.
	EventTargetStopped EventType = "target.stopped"

	// EventTargetAddressUpdated - the device address was changed.
	EventTargetAddressUpdated EventType = "target.address_updated"
)

// Event is emitted outward for alerting and bookkeeping.
type Event struct {
	ID                string    `json:"id"`
	Type              EventType `json:"event_type"`
	DeviceID          string    `json:"device_id"`
	DeviceName        string    `json:"device_name,omitempty"`
	IPAddress         string    `json:"ip_address,omitempty"`
	Hostname          string    `json:"hostname,omitempty"`
	PreviousIPAddress string    `json:"previous_ip_address,omitempty"`
	PreviousHostname  string    `json:"previous_hostname,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Publisher delivers events to the outer world.
type Publisher interface {
	// Publish sends the event.
	Publish(ctx context.Context, event Event) error
}

// Notifier emits domain events.
//
// Remarks:
//   - Fire-and-forget, delivery failures are handled by the implementation.
type Notifier interface {
	// NotifyDeviceDown is called when the device starts alerting.
	NotifyDeviceDown(ctx context.Context, target Target, at time.Time)

	// NotifyDeviceRecovered is called when the device stops alerting.
	NotifyDeviceRecovered(ctx context.Context, target Target, at time.Time)

	// NotifyTargetStarted is called when monitoring is started.
	NotifyTargetStarted(ctx context.Context, target Target)

	// NotifyTargetStopped is called when monitoring is stopped.
	NotifyTargetStopped(ctx context.Context, target Target)

	// NotifyAddressUpdated is called when the device address is changed.
	NotifyAddressUpdated(ctx context.Context, target Target, previous Address)
}
