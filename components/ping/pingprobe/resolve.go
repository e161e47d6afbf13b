package pingprobe

import (
	"context"
	"errors"
	"net"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/sysnet"
)

// resolveIP returns the IP to probe.
//
// Remarks:
//   - The IP address takes precedence over the hostname.
//   - An unresolvable hostname means the device isn't reachable by name, it's
//     classified as a failure. Local resolver problems are classified as errors.
func resolveIP(
	ctx context.Context,
	resolver sysnet.Resolver,
	addr ping.Address,
) (net.IP, *ping.Outcome) {
	if addr.IPAddress != "" {
		ip := net.ParseIP(addr.IPAddress)
		if ip == nil {
			return nil, &ping.Outcome{
				Status: ping.StatusError,
				Err:    addr.Validate(),
			}
		}

		return ip, nil
	}

	if addr.Hostname == "" {
		return nil, &ping.Outcome{
			Status: ping.StatusError,
			Err:    addr.Validate(),
		}
	}

	if resolver == nil {
		return nil, &ping.Outcome{
			Status: ping.StatusError,
			Err:    status.StatusNotSupported,
		}
	}

	ip, err := resolver.Resolve(ctx, addr.Hostname)
	if err != nil {
		return nil, &ping.Outcome{
			Status: classifyResolveError(ctx, err),
			Err:    err,
		}
	}

	return ip, nil
}

func classifyResolveError(ctx context.Context, err error) ping.Status {
	switch {
	case errors.Is(err, status.StatusInvalidState),
		errors.Is(err, status.StatusNotSupported):
		return ping.StatusError

	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return ping.StatusTimeout

	default:
		return ping.StatusFailure
	}
}
