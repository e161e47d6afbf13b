package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/pipeline/pipping"
)

func newTargetsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List persisted targets with their alert state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			fanoutCloser := &core.FanoutCloser{}
			defer fanoutCloser.Close() //nolint:errcheck

			stores, err := pipping.NewStorePipeline(cmd.Context(), fanoutCloser, cfg.Storage)
			if err != nil {
				return err
			}

			targets, err := stores.Targets.List(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([]targetRow, 0, len(targets))

			for _, target := range targets {
				state, err := stores.AlertStates.Get(cmd.Context(), target.DeviceID)
				if err != nil {
					state = ping.AlertState{}
				}

				rows = append(rows, targetRow{target: target, state: state})
			}

			return writeTargets(cmd.OutOrStdout(), rows, time.Now())
		},
	}
}

type targetRow struct {
	target ping.Target
	state  ping.AlertState
}

func writeTargets(w io.Writer, rows []targetRow, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "DEVICE\tNAME\tADDRESS\tMONITORED\tSTATE\tLAST SUCCESS\tLAST FAILURE")

	for _, row := range rows {
		state := "healthy"
		if row.state.Alerting {
			state = "alerting"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			row.target.DeviceID,
			row.target.Name,
			formatAddress(row.target.Address),
			row.target.Monitored,
			state,
			formatTime(row.state.LastSuccess, now),
			formatTime(row.state.LastFailure, now),
		)
	}

	return tw.Flush()
}

func formatAddress(addr ping.Address) string {
	if addr.IPAddress != "" {
		return addr.IPAddress
	}

	return addr.Hostname
}

func formatTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return humanize.RelTime(t, now, "ago", "from now")
}
