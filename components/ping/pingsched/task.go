package pingsched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
)

// probeTask performs a single probe and passes the outcome to the handler.
//
// Remarks:
//   - The bound target can be replaced between probes, the address is fixed at creation.
type probeTask struct {
	addr    ping.Address
	prober  ping.Prober
	handler ResultHandler
	clock   syscore.Clock
	timeout time.Duration

	mu     sync.Mutex
	target ping.Target
}

// Run implements syssched.Task.
func (t *probeTask) Run(ctx context.Context) error {
	outcome := t.probe(ctx)

	// Stopped while probing, the outcome is meaningless.
	if ctx.Err() != nil {
		return nil
	}

	return t.handler.HandleResult(ctx, t.getTarget(), outcome, t.clock.Now())
}

func (t *probeTask) getTarget() ping.Target {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.target
}

func (t *probeTask) setTarget(target ping.Target) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.target = target
}

func (t *probeTask) probe(ctx context.Context) (outcome ping.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome = ping.Outcome{
				Status: ping.StatusError,
				Err:    fmt.Errorf("ping-task: prober panicked: %v: %w", p, status.StatusError),
			}
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.prober.Probe(probeCtx, t.addr)
}
