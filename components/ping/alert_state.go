package ping

import "time"

// AlertState holds the per-device hysteresis counters.
//
// Remarks:
//   - At most one of ConsecutiveFailures and ConsecutiveSuccesses is non-zero.
//   - Zero time values mean "never happened".
type AlertState struct {
	DeviceID             string    `json:"device_id"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	Alerting             bool      `json:"is_alerting"`
	LastAlertSent        time.Time `json:"last_alert_sent"`
	LastRecoverySent     time.Time `json:"last_recovery_sent"`
	LastFailure          time.Time `json:"last_failure_time"`
	LastSuccess          time.Time `json:"last_success_time"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	// Version is 0 for a state which was never persisted.
	Version int64 `json:"version"`
}
