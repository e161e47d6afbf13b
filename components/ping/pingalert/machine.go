package pingalert

import (
	"fmt"
	"time"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// Transition is an externally visible change of the device health.
type Transition int

const (
	// TransitionNone - the health didn't change.
	TransitionNone Transition = iota

	// TransitionDeviceDown - Healthy -> Alerting.
	TransitionDeviceDown

	// TransitionDeviceRecovered - Alerting -> Healthy.
	TransitionDeviceRecovered
)

func (t Transition) String() string {
	switch t {
	case TransitionDeviceDown:
		return "device-down"
	case TransitionDeviceRecovered:
		return "device-recovered"
	default:
		return "none"
	}
}

const (
	// DefaultFailureThreshold rejects single transient failures.
	DefaultFailureThreshold = 3

	// DefaultRecoveryThreshold requires a short streak of successes before recovery.
	DefaultRecoveryThreshold = 2
)

// Thresholds configures the hysteresis.
type Thresholds struct {
	// Failure - consecutive failing probes required for Healthy -> Alerting.
	Failure int `yaml:"failure_threshold"`

	// Recovery - consecutive succeeding probes required for Alerting -> Healthy.
	Recovery int `yaml:"recovery_threshold"`
}

// DefaultThresholds returns the default hysteresis configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Failure:  DefaultFailureThreshold,
		Recovery: DefaultRecoveryThreshold,
	}
}

// Validate ensures both thresholds are positive.
func (t Thresholds) Validate() error {
	if t.Failure < 1 {
		return fmt.Errorf("alert: failure threshold must be >= 1, got %d: %w",
			t.Failure, status.StatusInvalidArg)
	}

	if t.Recovery < 1 {
		return fmt.Errorf("alert: recovery threshold must be >= 1, got %d: %w",
			t.Recovery, status.StatusInvalidArg)
	}

	return nil
}

// Evaluate computes the next alert state for the probe outcome.
//
// Parameters:
//   - prior - the last persisted state, zero value (with DeviceID) for a new device.
//   - outcome - classified probe status.
//   - now - time of the probe.
//   - th - hysteresis thresholds.
//
// Remarks:
//   - Pure function, prior isn't modified.
//   - Neutral outcomes return prior as is with TransitionNone.
func Evaluate(
	prior ping.AlertState,
	outcome ping.Status,
	now time.Time,
	th Thresholds,
) (ping.AlertState, Transition) {
	next := prior

	switch {
	case outcome.Failing():
		next.ConsecutiveFailures++
		next.ConsecutiveSuccesses = 0
		next.LastFailure = now

		if !prior.Alerting && next.ConsecutiveFailures >= th.Failure {
			next.Alerting = true
			next.LastAlertSent = now

			return next, TransitionDeviceDown
		}

	case outcome.Succeeding():
		next.ConsecutiveSuccesses++
		next.ConsecutiveFailures = 0
		next.LastSuccess = now

		if prior.Alerting && next.ConsecutiveSuccesses >= th.Recovery {
			next.Alerting = false
			next.LastRecoverySent = now

			return next, TransitionDeviceRecovered
		}

	default:
		return prior, TransitionNone
	}

	return next, TransitionNone
}
