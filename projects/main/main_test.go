package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/ping-monitor/components/ping"
)

func TestParseAddress(t *testing.T) {
	require.Equal(t, ping.Address{IPAddress: "192.0.2.1"}, parseAddress("192.0.2.1"))
	require.Equal(t, ping.Address{IPAddress: "::1"}, parseAddress("::1"))
	require.Equal(t, ping.Address{Hostname: "sensor.local"}, parseAddress("sensor.local"))
}

func TestWriteTargets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer

	require.NoError(t, writeTargets(&buf, []targetRow{
		{
			target: ping.Target{
				DeviceID:  "0xA1",
				Name:      "boiler",
				Address:   ping.Address{IPAddress: "192.0.2.1"},
				Monitored: true,
			},
			state: ping.AlertState{
				Alerting:    true,
				LastSuccess: now.Add(-time.Hour * 2),
			},
		},
		{
			target: ping.Target{
				DeviceID: "0xB2",
				Address:  ping.Address{Hostname: "sensor.local"},
			},
		},
	}, now))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "0xA1")
	require.Contains(t, lines[1], "alerting")
	require.Contains(t, lines[1], "2 hours ago")
	require.Contains(t, lines[1], "never")
	require.Contains(t, lines[2], "sensor.local")
	require.Contains(t, lines[2], "healthy")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"serve", "probe", "targets"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
}
