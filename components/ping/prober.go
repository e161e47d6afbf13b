package ping

import "context"

// Prober performs a single reachability check.
type Prober interface {
	// Probe checks the address once.
	//
	// Remarks:
	//  - Probe failures are reported through Outcome.Status, never through panics.
	//  - Implementation should respect ctx deadline.
	Probe(ctx context.Context, addr Address) Outcome
}

// ProberFactory creates a prober dedicated to a single device.
type ProberFactory interface {
	// NewProber returns the prober for the target.
	NewProber(target Target) Prober
}

// FuncProber is a function type that implements the Prober interface.
type FuncProber func(ctx context.Context, addr Address) Outcome

// Probe calls the function itself to fulfill the Prober interface.
func (f FuncProber) Probe(ctx context.Context, addr Address) Outcome {
	return f(ctx, addr)
}
