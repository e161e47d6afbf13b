package evcore

import (
	"context"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
)

// LogPublisher writes events to the log.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(_ context.Context, event ping.Event) error {
	switch event.Type {
	case ping.EventDeviceDown:
		core.LogWrn.Warnf("event-log: device down: id=%s name=%s addr=%s at=%s",
			event.DeviceID, event.DeviceName, eventAddress(event), event.Timestamp)

	case ping.EventDeviceRecovered:
		core.LogInf.Infof("event-log: device recovered: id=%s name=%s addr=%s at=%s",
			event.DeviceID, event.DeviceName, eventAddress(event), event.Timestamp)

	default:
		core.LogInf.Infof("event-log: %s: id=%s addr=%s", event.Type, event.DeviceID,
			eventAddress(event))
	}

	return nil
}

func eventAddress(event ping.Event) string {
	return ping.Address{
		IPAddress: event.IPAddress,
		Hostname:  event.Hostname,
	}.String()
}
