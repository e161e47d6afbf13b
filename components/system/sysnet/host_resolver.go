package sysnet

import (
	"context"
	"net"
)

// HostResolver selects the resolver based on the hostname.
//
// Remarks:
//   - IP literals are returned as is.
//   - `.local` hostnames are resolved with the mDNS resolver, everything else with DNS.
type HostResolver struct {
	dns  Resolver
	mdns Resolver
}

// NewHostResolver is an initialization of HostResolver.
//
// Parameters:
//   - dns - resolver for regular hostnames.
//   - mdns - resolver for `.local` hostnames, dns is used if nil.
func NewHostResolver(dns Resolver, mdns Resolver) *HostResolver {
	if mdns == nil {
		mdns = dns
	}

	return &HostResolver{
		dns:  dns,
		mdns: mdns,
	}
}

// Resolve resolves the hostname to the IP address.
func (r *HostResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip, nil
	}

	if IsMdnsHostname(hostname) {
		return r.mdns.Resolve(ctx, hostname)
	}

	return r.dns.Resolve(ctx, hostname)
}
