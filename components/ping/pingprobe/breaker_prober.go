package pingprobe

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
)

// BreakerParams configures the per-device circuit breaker.
type BreakerParams struct {
	// Failures - consecutive local errors required to open the circuit.
	Failures uint32

	// Cooldown - how long the circuit stays open before a trial probe is allowed.
	Cooldown time.Duration
}

// BreakerProber suppresses probing after repeated local errors.
//
// Remarks:
//   - Only ping.StatusError outcomes are counted as breaker failures: an unreachable
//     device is a valid observation, a broken local network stack isn't.
//   - While the circuit is open the outcome is ping.StatusCircuitOpen.
//
// References:
//   - https://github.com/sony/gobreaker
type BreakerProber struct {
	prober  ping.Prober
	breaker *gobreaker.TwoStepCircuitBreaker
}

// NewBreakerProber is an initialization of BreakerProber.
//
// Parameters:
//   - name - breaker name, used in logs.
//   - prober - underlying prober.
//   - params - breaker configuration.
func NewBreakerProber(name string, prober ping.Prober, params BreakerParams) *BreakerProber {
	failures := params.Failures
	if failures == 0 {
		failures = 1
	}

	return &BreakerProber{
		prober: prober,
		breaker: gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     params.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				core.LogWrn.Warnf("ping-breaker: state changed: name=%s from=%s to=%s",
					name, from, to)
			},
		}),
	}
}

// Probe runs the underlying prober if the circuit allows it.
func (p *BreakerProber) Probe(ctx context.Context, addr ping.Address) ping.Outcome {
	done, err := p.breaker.Allow()
	if err != nil {
		return ping.Outcome{Status: ping.StatusCircuitOpen, Err: err}
	}

	outcome := p.prober.Probe(ctx, addr)

	done(outcome.Status != ping.StatusError)

	return outcome
}

// State returns the current breaker state.
func (p *BreakerProber) State() gobreaker.State {
	return p.breaker.State()
}
