package pingprobe

import (
	"fmt"
	"time"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/sysnet"
)

// Kind identifies the probing method.
type Kind string

const (
	// KindTCP - TCP connect probe.
	KindTCP Kind = "tcp"

	// KindICMP - ICMP echo probe.
	KindICMP Kind = "icmp"
)

// FactoryParams configures the probers built by Factory.
type FactoryParams struct {
	Kind           Kind
	TCPPort        int
	ICMP           ICMPProberParams
	Breaker        BreakerParams
	MaxInflight    int64
	AcquireTimeout time.Duration
}

// Factory builds the prober chain for each device: limiter -> breaker -> base prober.
type Factory struct {
	params  FactoryParams
	base    ping.Prober
	limiter *Limiter
}

// NewFactory is an initialization of Factory.
//
// Parameters:
//   - resolver - to resolve device hostnames.
//   - params - prober configuration.
func NewFactory(resolver sysnet.Resolver, params FactoryParams) (*Factory, error) {
	base, err := NewProber(resolver, params)
	if err != nil {
		return nil, err
	}

	factory := &Factory{
		params: params,
		base:   base,
	}

	if params.MaxInflight > 0 {
		factory.limiter = NewLimiter(params.MaxInflight, params.AcquireTimeout)
	}

	return factory, nil
}

// NewProber returns the prober dedicated to the target.
//
// Remarks:
//   - Each call creates a new circuit breaker, the limiter is shared.
func (f *Factory) NewProber(target ping.Target) ping.Prober {
	var prober ping.Prober = NewBreakerProber("ping-"+target.DeviceID, f.base, f.params.Breaker)

	if f.limiter != nil {
		prober = f.limiter.Wrap(prober)
	}

	return prober
}

// NewProber builds the base prober for the kind.
func NewProber(resolver sysnet.Resolver, params FactoryParams) (ping.Prober, error) {
	switch params.Kind {
	case KindTCP, "":
		port := params.TCPPort
		if port == 0 {
			port = 80
		}

		return NewTCPProber(port, resolver), nil

	case KindICMP:
		return NewICMPProber(resolver, params.ICMP), nil

	default:
		return nil, fmt.Errorf("ping-prober: unknown kind=%s: %w", params.Kind,
			status.StatusNotSupported)
	}
}
