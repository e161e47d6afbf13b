package sysnet

import (
	"context"
	"net"
)

// Resolver resolves hostnames to IP addresses.
type Resolver interface {
	// Resolve hostname.
	Resolve(ctx context.Context, hostname string) (net.IP, error)
}

// FuncResolver is a function type that implements the Resolver interface.
type FuncResolver func(ctx context.Context, hostname string) (net.IP, error)

// Resolve calls the function itself to fulfill the Resolver interface.
func (f FuncResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	return f(ctx, hostname)
}
