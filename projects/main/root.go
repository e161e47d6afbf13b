package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-control-systems/ping-monitor/components/config"
	"github.com/open-control-systems/ping-monitor/components/core"
)

const serviceName = "ping-monitor"

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Periodic reachability monitoring of network devices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML configuration file")

	root.AddCommand(
		newServeCommand(&configPath),
		newProbeCommand(&configPath),
		newTargetsCommand(&configPath),
	)

	return root
}

func loadConfig(configPath string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := core.SetupLog(core.LogParams{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Path:    cfg.Log.Path,
		Service: serviceName,
	})
	if err != nil {
		return config.Config{}, nil, err
	}

	return cfg, logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
}
