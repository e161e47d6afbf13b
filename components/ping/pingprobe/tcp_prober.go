package pingprobe

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/system/sysnet"
)

// Dialer opens network connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProber checks reachability by opening a TCP connection.
//
// Remarks:
//   - A refused connection means the host is up and answered with RST, it's a success.
//   - Doesn't require any privileges.
type TCPProber struct {
	port     int
	resolver sysnet.Resolver
	dialer   Dialer
}

// NewTCPProber is an initialization of TCPProber.
//
// Parameters:
//   - port - TCP port to connect to.
//   - resolver - to resolve the hostname when the IP address isn't known.
func NewTCPProber(port int, resolver sysnet.Resolver) *TCPProber {
	return &TCPProber{
		port:     port,
		resolver: resolver,
		dialer:   &net.Dialer{},
	}
}

// Probe performs a single connection attempt.
func (p *TCPProber) Probe(ctx context.Context, addr ping.Address) ping.Outcome {
	ip, outcome := resolveIP(ctx, p.resolver, addr)
	if outcome != nil {
		return *outcome
	}

	start := time.Now()

	conn, err := p.dialer.DialContext(ctx, "tcp",
		net.JoinHostPort(ip.String(), strconv.Itoa(p.port)))
	rtt := time.Since(start)

	if err == nil {
		_ = conn.Close()

		return ping.Outcome{Status: ping.StatusSuccess, RTT: rtt}
	}

	st := classifyDialError(ctx, err)
	if st == ping.StatusSuccess {
		return ping.Outcome{Status: st, RTT: rtt}
	}

	return ping.Outcome{Status: st, Err: err}
}

func classifyDialError(ctx context.Context, err error) ping.Status {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ping.StatusSuccess
	}

	if ctx.Err() != nil ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return ping.StatusTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ping.StatusTimeout
	}

	if errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) {
		return ping.StatusError
	}

	return ping.StatusFailure
}
