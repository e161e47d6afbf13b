package pingsync

import (
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// DeviceEventType identifies a change in the device directory.
type DeviceEventType string

const (
	// DeviceCreated - a device was added to the directory.
	DeviceCreated DeviceEventType = "created"

	// DeviceUpdated - device attributes were changed.
	DeviceUpdated DeviceEventType = "updated"

	// DeviceDeleted - a device was removed from the directory.
	DeviceDeleted DeviceEventType = "deleted"
)

// DeviceEvent is a change notification from the device directory.
type DeviceEvent struct {
	Type            DeviceEventType   `json:"event_type"`
	DeviceID        string            `json:"device_id"`
	Name            string            `json:"device_name,omitempty"`
	IPAddress       string            `json:"ip_address,omitempty"`
	Hostname        string            `json:"hostname,omitempty"`
	IntervalSeconds int               `json:"ping_interval_seconds,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Address returns the device address carried by the event.
func (e DeviceEvent) Address() ping.Address {
	return ping.Address{
		IPAddress: e.IPAddress,
		Hostname:  e.Hostname,
	}
}

// Validate ensures the event can be dispatched.
func (e DeviceEvent) Validate() error {
	if e.DeviceID == "" {
		return fmt.Errorf("device-event: device_id is required: %w", status.StatusInvalidArg)
	}

	switch e.Type {
	case DeviceCreated, DeviceUpdated, DeviceDeleted:
		return nil
	default:
		return fmt.Errorf("device-event: unknown type=%q: %w", e.Type, status.StatusInvalidArg)
	}
}
