package ping

import (
	"fmt"
	"time"
)

// Status is a classified outcome of a single probe.
type Status string

const (
	// StatusSuccess - the device answered.
	StatusSuccess Status = "success"

	// StatusFailure - the device was definitely unreachable.
	StatusFailure Status = "failure"

	// StatusTimeout - no answer within the probe timeout.
	StatusTimeout Status = "timeout"

	// StatusError - the probe couldn't be performed because of a local error.
	StatusError Status = "error"

	// StatusCircuitOpen - the probe was suppressed by the circuit breaker.
	StatusCircuitOpen Status = "circuit_open"

	// StatusSkipped - the probe wasn't attempted.
	StatusSkipped Status = "skipped"
)

// Failing returns true for outcomes counted as failures by the alert state machine.
func (s Status) Failing() bool {
	return s == StatusFailure || s == StatusTimeout || s == StatusError
}

// Succeeding returns true for outcomes counted as successes by the alert state machine.
func (s Status) Succeeding() bool {
	return s == StatusSuccess
}

// Neutral returns true for outcomes that must not affect the alert state.
func (s Status) Neutral() bool {
	return s == StatusCircuitOpen || s == StatusSkipped
}

// ParseStatus converts the persisted representation back to Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusSuccess, StatusFailure, StatusTimeout, StatusError,
		StatusCircuitOpen, StatusSkipped:
		return st, nil
	default:
		return "", fmt.Errorf("unknown ping status: %q", s)
	}
}

// Outcome is what a prober returns for a single attempt.
type Outcome struct {
	Status Status

	// RTT is the round-trip time, only meaningful for StatusSuccess.
	RTT time.Duration

	// Err is the underlying cause for non-successful outcomes, used for logging.
	Err error
}

// Result is a single persisted probe outcome.
//
// Remarks:
//   - (Time, DeviceID) is the natural key, results are append-only.
type Result struct {
	Time     time.Time      `json:"time"`
	DeviceID string         `json:"device_id"`
	RTT      *time.Duration `json:"round_trip_time,omitempty"`
	Status   Status         `json:"status"`
}

// NewResult builds the persisted form of the outcome.
func NewResult(deviceID string, outcome Outcome, now time.Time) Result {
	result := Result{
		Time:     now,
		DeviceID: deviceID,
		Status:   outcome.Status,
	}

	if outcome.Status == StatusSuccess {
		rtt := outcome.RTT
		result.RTT = &rtt
	}

	return result
}
