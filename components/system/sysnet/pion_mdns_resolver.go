package sysnet

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/pion/mdns"
	"golang.org/x/net/ipv4"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// PionMdnsResolver resolves `.local` hostnames with the pure Go mDNS implementation.
//
// The internal Go resolver behaves differently depending on the environment it's running
// in: it resolves mDNS hostnames on the host machine, but fails to do so in a container
// unless CGO is forced with GODEBUG=netdns=cgo.
type PionMdnsResolver struct {
	mu     sync.Mutex
	conn   *mdns.Conn
	closed bool
}

// IsMdnsHostname returns true if the hostname belongs to the mDNS local domain.
func IsMdnsHostname(hostname string) bool {
	return strings.HasSuffix(strings.TrimSuffix(hostname, "."), ".local")
}

// Resolve mDNS hostname with pion library.
//
// Remarks:
//   - Can be used from multiple goroutines.
func (r *PionMdnsResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	if !IsMdnsHostname(hostname) {
		return nil, fmt.Errorf("pion-mdns-resolver: unsupported hostname=%s: %w",
			hostname, status.StatusNotSupported)
	}

	conn, err := r.getConn()
	if err != nil {
		return nil, err
	}

	_, addr, err := conn.Query(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("pion-mdns-resolver: query failed: host=%s: %w", hostname, err)
	}

	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP, nil
	case *net.UDPAddr:
		return a.IP, nil
	default:
		return nil, fmt.Errorf("pion-mdns-resolver: unexpected address type=%T: %w",
			addr, status.StatusError)
	}
}

// Close the underlying mDNS connection.
func (r *PionMdnsResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

func (r *PionMdnsResolver) getConn() (*mdns.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("pion-mdns-resolver: closed: %w", status.StatusInvalidState)
	}

	if r.conn != nil {
		return r.conn, nil
	}

	// UDP Connection is closed when the mDNS connection is closed.
	udpConn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("pion-mdns-resolver: failed to create UDP connection: %w", err)
	}

	mdnsConn, err := mdns.Server(ipv4.NewPacketConn(udpConn), &mdns.Config{})
	if err != nil {
		_ = udpConn.Close()

		return nil, fmt.Errorf("pion-mdns-resolver: failed to start mDNS server: %w", err)
	}

	r.conn = mdnsConn

	return mdnsConn, nil
}
