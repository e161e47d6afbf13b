package pingprobe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// Limiter caps the number of probes in flight across all devices.
type Limiter struct {
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
}

// NewLimiter is an initialization of Limiter.
//
// Parameters:
//   - maxInflight - maximum number of concurrent probes.
//   - acquireTimeout - how long to wait for a free slot before skipping the probe.
func NewLimiter(maxInflight int64, acquireTimeout time.Duration) *Limiter {
	return &Limiter{
		sem:            semaphore.NewWeighted(maxInflight),
		acquireTimeout: acquireTimeout,
	}
}

// Wrap returns the prober which runs inside the limiter.
func (l *Limiter) Wrap(prober ping.Prober) ping.Prober {
	return ping.FuncProber(func(ctx context.Context, addr ping.Address) ping.Outcome {
		if !l.acquire(ctx) {
			return ping.Outcome{
				Status: ping.StatusSkipped,
				Err:    fmt.Errorf("ping-limiter: no free slot: %w", status.StatusTimeout),
			}
		}
		defer l.sem.Release(1)

		return prober.Probe(ctx, addr)
	})
}

func (l *Limiter) acquire(ctx context.Context) bool {
	if l.acquireTimeout <= 0 {
		return l.sem.TryAcquire(1)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, l.acquireTimeout)
	defer cancel()

	return l.sem.Acquire(acquireCtx, 1) == nil
}
