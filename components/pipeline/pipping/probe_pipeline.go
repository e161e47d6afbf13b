package pipping

import (
	"github.com/open-control-systems/ping-monitor/components/config"
	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping/pingprobe"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
	"github.com/open-control-systems/ping-monitor/components/system/sysnet"
)

// NewResolver builds the hostname resolver shared by all probers.
//
// Remarks:
//   - .local hostnames are resolved over mDNS, others over DNS.
func NewResolver(
	closer *core.FanoutCloser,
	clock syscore.Clock,
	params config.ProbeConfig,
) sysnet.Resolver {
	mdnsResolver := &sysnet.PionMdnsResolver{}
	closer.Add("pion-mdns-resolver", mdnsResolver)

	return sysnet.NewCacheResolver(
		sysnet.NewHostResolver(sysnet.NewDNSResolver(), mdnsResolver),
		clock,
		params.ResolveTTL,
	)
}

// NewProberFactory builds the per-device prober factory.
func NewProberFactory(
	resolver sysnet.Resolver,
	params config.ProbeConfig,
) (*pingprobe.Factory, error) {
	return pingprobe.NewFactory(resolver, FactoryParams(params))
}

// FactoryParams converts the probe configuration.
func FactoryParams(params config.ProbeConfig) pingprobe.FactoryParams {
	return pingprobe.FactoryParams{
		Kind:    pingprobe.Kind(params.Kind),
		TCPPort: params.TCPPort,
		ICMP: pingprobe.ICMPProberParams{
			Privileged: params.ICMPPrivileged,
		},
		Breaker: pingprobe.BreakerParams{
			Failures: params.BreakerFailures,
			Cooldown: params.BreakerCooldown,
		},
		MaxInflight:    params.MaxInflight,
		AcquireTimeout: params.AcquireTimeout,
	}
}
