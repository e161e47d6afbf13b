package pingprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/sysnet"
)

// ICMPProberParams configures the ICMP echo prober.
type ICMPProberParams struct {
	// Privileged - use raw ICMP sockets (requires CAP_NET_RAW), otherwise unprivileged
	// datagram ICMP sockets are used (requires net.ipv4.ping_group_range).
	Privileged bool

	// PayloadSize - echo payload size in bytes.
	PayloadSize int
}

// ICMPProber checks reachability with ICMP echo requests over IPv4.
//
// References:
//   - https://pkg.go.dev/golang.org/x/net/icmp
type ICMPProber struct {
	params   ICMPProberParams
	resolver sysnet.Resolver
	id       int
	seq      atomic.Uint32
}

// NewICMPProber is an initialization of ICMPProber.
func NewICMPProber(resolver sysnet.Resolver, params ICMPProberParams) *ICMPProber {
	if params.PayloadSize <= 0 {
		params.PayloadSize = 32
	}

	return &ICMPProber{
		params:   params,
		resolver: resolver,
		id:       os.Getpid() & 0xffff,
	}
}

// Probe sends a single echo request and waits for the matching reply.
func (p *ICMPProber) Probe(ctx context.Context, addr ping.Address) ping.Outcome {
	ip, outcome := resolveIP(ctx, p.resolver, addr)
	if outcome != nil {
		return *outcome
	}

	if ip.To4() == nil {
		return ping.Outcome{
			Status: ping.StatusError,
			Err:    fmt.Errorf("icmp-prober: only IPv4 is supported: %w", status.StatusNotSupported),
		}
	}

	network, dst := "udp4", net.Addr(&net.UDPAddr{IP: ip})
	if p.params.Privileged {
		network, dst = "ip4:icmp", &net.IPAddr{IP: ip}
	}

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return ping.Outcome{
			Status: ping.StatusError,
			Err:    fmt.Errorf("icmp-prober: failed to listen: %w", err),
		}
	}
	defer conn.Close() //nolint:errcheck

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return ping.Outcome{Status: ping.StatusError, Err: err}
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)

	request := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: make([]byte, p.params.PayloadSize),
		},
	}

	data, err := request.Marshal(nil)
	if err != nil {
		return ping.Outcome{Status: ping.StatusError, Err: err}
	}

	start := time.Now()

	if _, err := conn.WriteTo(data, dst); err != nil {
		return ping.Outcome{Status: classifyDialError(ctx, err), Err: err}
	}

	buf := make([]byte, 1500)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) || ctx.Err() != nil {
				return ping.Outcome{Status: ping.StatusTimeout, Err: err}
			}

			return ping.Outcome{Status: ping.StatusError, Err: err}
		}

		if !sameIP(peer, ip) {
			continue
		}

		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), buf[:n])
		if err != nil {
			continue
		}

		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		echo, ok := reply.Body.(*icmp.Echo)
		// The kernel rewrites the ID for unprivileged sockets, only Seq is reliable.
		if !ok || echo.Seq != seq {
			continue
		}

		return ping.Outcome{Status: ping.StatusSuccess, RTT: time.Since(start)}
	}
}

func sameIP(addr net.Addr, ip net.IP) bool {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.Equal(ip)
	case *net.IPAddr:
		return a.IP.Equal(ip)
	default:
		return false
	}
}
