package sysnet

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
)

// CacheResolver caches the result of host resolving.
type CacheResolver struct {
	resolver Resolver
	clock    syscore.Clock
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]cacheResolverEntry
}

type cacheResolverEntry struct {
	ip        net.IP
	expiresAt time.Time
}

// NewCacheResolver is an initialization of CacheResolver.
//
// Parameters:
//   - resolver - underlying resolver.
//   - clock - to check entry expiration.
//   - ttl - how long the resolved address is valid.
func NewCacheResolver(resolver Resolver, clock syscore.Clock, ttl time.Duration) *CacheResolver {
	return &CacheResolver{
		resolver: resolver,
		clock:    clock,
		ttl:      ttl,
		entries:  make(map[string]cacheResolverEntry),
	}
}

// Resolve returns the cached address or resolves it with the underlying resolver.
//
// Remarks:
//   - Failed resolutions aren't cached.
func (r *CacheResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	now := r.clock.Now()

	if ip, ok := r.get(hostname, now); ok {
		return ip, nil
	}

	ip, err := r.resolver.Resolve(ctx, hostname)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[hostname]; !ok {
		core.LogInf.Infof("resolve-cache: addr resolved: host=%s addr=%s", hostname, ip)
	} else if !prev.ip.Equal(ip) {
		core.LogInf.Infof("resolve-cache: addr changed: host=%s cur=%s new=%s",
			hostname, prev.ip, ip)
	}

	r.entries[hostname] = cacheResolverEntry{
		ip:        ip,
		expiresAt: now.Add(r.ttl),
	}

	return ip, nil
}

// Remove drops the cached address for the hostname.
func (r *CacheResolver) Remove(hostname string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, hostname)
}

func (r *CacheResolver) get(hostname string, now time.Time) (net.IP, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[hostname]
	if !ok || !now.Before(entry.expiresAt) {
		return nil, false
	}

	return entry.ip, true
}
