package pipping

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/open-control-systems/ping-monitor/components/config"
	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/events/evcore"
	"github.com/open-control-systems/ping-monitor/components/events/evredis"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pinghttp"
	"github.com/open-control-systems/ping-monitor/components/ping/pingsched"
	"github.com/open-control-systems/ping-monitor/components/ping/pingsync"
	"github.com/open-control-systems/ping-monitor/components/ping/pingtarget"
	"github.com/open-control-systems/ping-monitor/components/pipeline/piphttp"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
)

// PingPipelineParams configures PingPipeline.
type PingPipelineParams struct {
	// Config - complete service configuration.
	Config config.Config

	// Clock - to timestamp results and events, LocalClock is used if nil.
	Clock syscore.Clock

	// Factory - to build per-device probers, built from Config.Probe if nil.
	Factory ping.ProberFactory
}

// PingPipeline wires storage, probing, events, directory sync, and the HTTP API.
type PingPipeline struct {
	ctx       context.Context
	service   *pingtarget.Service
	scheduler *pingsched.Scheduler
	server    *piphttp.ServerPipeline
	consumer  *evredis.DeviceConsumer
}

// NewPingPipeline is an initialization of PingPipeline.
//
// Parameters:
//   - ctx - parent context, all probing tasks are stopped when it's canceled.
//   - closer - to register all resources that should be closed.
//   - params - pipeline configuration.
//
// Remarks:
//   - Resources are registered in closer as they are created, so a failed
//     initialization releases everything opened so far on closer.Close().
func NewPingPipeline(
	ctx context.Context,
	closer *core.FanoutCloser,
	params PingPipelineParams,
) (*PingPipeline, error) {
	cfg := params.Config

	clock := params.Clock
	if clock == nil {
		clock = syscore.LocalClock{}
	}

	stores, err := NewStorePipeline(ctx, closer, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Events.Redis.Enabled || cfg.Sync.Enabled {
		redisClient = evredis.NewClient(cfg.Redis)
		closer.Add("redis-client", redisClient)
	}

	publisher, err := NewEventPipeline(closer, redisClient, cfg.Events)
	if err != nil {
		return nil, err
	}

	notifier := evcore.NewNotifier(publisher, clock)

	factory := params.Factory
	if factory == nil {
		probeFactory, err := NewProberFactory(NewResolver(closer, clock, cfg.Probe), cfg.Probe)
		if err != nil {
			return nil, err
		}

		factory = probeFactory
	}

	tracker := pingsched.NewTracker(
		stores.Results,
		stores.AlertStates,
		notifier,
		pingsched.TrackerParams{
			Thresholds: cfg.Alert,
			Retry:      cfg.Retry,
		},
	)

	scheduler := pingsched.NewScheduler(ctx, factory, tracker, clock,
		pingsched.SchedulerParams{
			DefaultInterval: cfg.Probe.DefaultInterval,
			ProbeTimeout:    cfg.Probe.Timeout,
		})
	closer.Add("ping-scheduler", scheduler)

	service := pingtarget.NewService(
		stores.Targets,
		stores.Results,
		stores.AlertStates,
		scheduler,
		tracker,
		notifier,
		clock,
	)

	server, err := piphttp.NewServerPipeline(
		closer,
		pinghttp.NewRouter(pinghttp.NewTargetHandler(service)),
		cfg.HTTP,
	)
	if err != nil {
		return nil, err
	}

	pipeline := &PingPipeline{
		ctx:       ctx,
		service:   service,
		scheduler: scheduler,
		server:    server,
	}

	if cfg.Sync.Enabled {
		pipeline.consumer = evredis.NewDeviceConsumer(
			ctx,
			redisClient,
			pingsync.NewSyncer(service, pingsync.SyncerParams{
				AutoMonitor: cfg.Sync.AutoMonitor,
			}),
			cfg.Sync.Consumer,
		)
		closer.Add("device-consumer", core.FuncCloser(pipeline.consumer.Stop))
	}

	return pipeline, nil
}

// Service returns the target lifecycle service.
func (p *PingPipeline) Service() *pingtarget.Service {
	return p.service
}

// URL returns the base URL of the HTTP API.
func (p *PingPipeline) URL() string {
	return p.server.URL()
}

// Start restores monitoring of persisted targets and starts serving.
//
// Remarks:
//   - Targets failed to restore are logged, the remaining ones keep running.
func (p *PingPipeline) Start() error {
	if err := p.service.Restore(p.ctx); err != nil {
		core.LogErr.Errorf("ping-pipeline: failed to restore some targets: %v", err)
	}

	core.LogInf.Infof("ping-pipeline: restored targets: running=%d", p.scheduler.Count())

	p.server.Start()

	if p.consumer != nil {
		if err := p.consumer.Start(); err != nil {
			return fmt.Errorf("ping-pipeline: failed to start device consumer: %w", err)
		}
	}

	return nil
}
