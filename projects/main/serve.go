package main

import (
	"github.com/spf13/cobra"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/pipeline/pipping"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			appContext, cancelFunc := signalContext(cmd.Context())
			defer cancelFunc()

			fanoutCloser := &core.FanoutCloser{}
			defer fanoutCloser.Close() //nolint:errcheck

			pipeline, err := pipping.NewPingPipeline(appContext, fanoutCloser,
				pipping.PingPipelineParams{
					Config: cfg,
				})
			if err != nil {
				return err
			}

			if err := pipeline.Start(); err != nil {
				return err
			}

			core.LogInf.Infof("ping-monitor: started: url=%s storage=%s probe=%s",
				pipeline.URL(), cfg.Storage.Backend, cfg.Probe.Kind)

			<-appContext.Done()

			core.LogInf.Infof("ping-monitor: stopping")

			return nil
		},
	}
}
