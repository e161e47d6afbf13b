package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingprobe"
	"github.com/open-control-systems/ping-monitor/components/pipeline/pipping"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
)

func newProbeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <ip-address|hostname>",
		Short: "Probe a single address once and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			fanoutCloser := &core.FanoutCloser{}
			defer fanoutCloser.Close() //nolint:errcheck

			prober, err := pingprobe.NewProber(
				pipping.NewResolver(fanoutCloser, syscore.LocalClock{}, cfg.Probe),
				pipping.FactoryParams(cfg.Probe),
			)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Probe.Timeout)
			defer cancel()

			addr := parseAddress(args[0])
			outcome := prober.Probe(ctx, addr)

			if outcome.Status == ping.StatusSuccess {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s rtt=%s\n",
					args[0], outcome.Status, outcome.RTT)

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s", args[0], outcome.Status)
			if outcome.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), " err=%v", outcome.Err)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			return nil
		},
	}
}

func parseAddress(s string) ping.Address {
	if net.ParseIP(s) != nil {
		return ping.Address{IPAddress: s}
	}

	return ping.Address{Hostname: s}
}
