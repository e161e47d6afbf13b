package sysnet

import (
	"context"
	"fmt"
	"net"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// DNSResolver resolves hostnames with the system DNS configuration.
type DNSResolver struct {
	resolver *net.Resolver
}

// NewDNSResolver is an initialization of DNSResolver.
func NewDNSResolver() *DNSResolver {
	return &DNSResolver{
		resolver: net.DefaultResolver,
	}
}

// Resolve returns the first IPv4 address of the hostname.
func (r *DNSResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	ips, err := r.resolver.LookupIP(ctx, "ip4", hostname)
	if err != nil {
		return nil, fmt.Errorf("dns-resolver: lookup failed: host=%s: %w", hostname, err)
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("dns-resolver: no addresses: host=%s: %w",
			hostname, status.StatusNoData)
	}

	return ips[0], nil
}
