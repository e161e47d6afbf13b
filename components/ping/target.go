package ping

import (
	"fmt"
	"net"
	"time"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// Address describes how a device can be reached.
//
// Remarks:
//   - Either field may be set, IPAddress takes precedence when both are present.
type Address struct {
	IPAddress string `json:"ip_address,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
}

// Empty returns true if no address field is set.
func (a Address) Empty() bool {
	return a.IPAddress == "" && a.Hostname == ""
}

// Host returns the preferred host to probe.
func (a Address) Host() string {
	if a.IPAddress != "" {
		return a.IPAddress
	}

	return a.Hostname
}

// Validate ensures the address can be probed.
func (a Address) Validate() error {
	if a.Empty() {
		return fmt.Errorf("address: either ip_address or hostname is required: %w",
			status.StatusInvalidArg)
	}

	if a.IPAddress != "" && net.ParseIP(a.IPAddress) == nil {
		return fmt.Errorf("address: invalid ip_address=%s: %w", a.IPAddress,
			status.StatusInvalidArg)
	}

	return nil
}

// String returns the human readable address.
func (a Address) String() string {
	switch {
	case a.IPAddress != "" && a.Hostname != "":
		return a.Hostname + "/" + a.IPAddress
	case a.IPAddress != "":
		return a.IPAddress
	default:
		return a.Hostname
	}
}

// MaxIntervalSeconds is the longest probing interval a target can have.
const MaxIntervalSeconds = 7 * 24 * 60 * 60

// ValidateIntervalSeconds ensures the interval is 0 (the default) or within
// 1..MaxIntervalSeconds.
func ValidateIntervalSeconds(seconds int) error {
	if seconds < 0 || seconds > MaxIntervalSeconds {
		return fmt.Errorf("target: invalid interval: seconds=%d max=%d: %w",
			seconds, MaxIntervalSeconds, status.StatusInvalidArg)
	}

	return nil
}

// Target is the persisted configuration of a monitored device.
type Target struct {
	DeviceID        string    `json:"device_id"`
	Name            string    `json:"device_name,omitempty"`
	Address         Address   `json:"address"`
	Monitored       bool      `json:"is_monitored"`
	IntervalSeconds int       `json:"ping_interval_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Version is incremented on every successful update, used for compare-and-swap writes.
	Version int64 `json:"version"`
}

// Interval returns the polling interval, or fallback if the target has none configured.
func (t Target) Interval(fallback time.Duration) time.Duration {
	if t.IntervalSeconds <= 0 {
		return fallback
	}

	return time.Duration(t.IntervalSeconds) * time.Second
}
