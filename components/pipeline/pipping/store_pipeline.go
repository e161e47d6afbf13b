package pipping

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/open-control-systems/ping-monitor/components/config"
	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/storage/stcore"
	"github.com/open-control-systems/ping-monitor/components/storage/stinfluxdb"
	"github.com/open-control-systems/ping-monitor/components/storage/stkv"
	"github.com/open-control-systems/ping-monitor/components/storage/stsql"
)

// StorePipeline opens the configured storage backends.
type StorePipeline struct {
	Targets     ping.TargetStore
	Results     ping.ResultStore
	AlertStates ping.AlertStateStore
}

// NewStorePipeline is an initialization of StorePipeline.
//
// Parameters:
//   - ctx - to bound database connection and migration.
//   - closer - to register opened databases.
//   - params - storage configuration.
func NewStorePipeline(
	ctx context.Context,
	closer *core.FanoutCloser,
	params config.StorageConfig,
) (*StorePipeline, error) {
	pipeline := &StorePipeline{}

	switch params.Backend {
	case config.BackendMemory:
		pipeline.Targets = stkv.NewTargetStore(stcore.NewMemoryDB())
		pipeline.AlertStates = stkv.NewAlertStateStore(stcore.NewMemoryDB())
		pipeline.Results = stkv.NewResultStore(stcore.NewMemoryDB())

	case config.BackendBbolt:
		if err := os.MkdirAll(filepath.Dir(params.BboltPath), 0o755); err != nil {
			return nil, fmt.Errorf("store-pipeline: mkdir data dir: %w", err)
		}

		db, err := stcore.NewBboltDB(params.BboltPath, &bbolt.Options{
			Timeout: time.Second * 5,
		})
		if err != nil {
			return nil, fmt.Errorf("store-pipeline: failed to open bbolt: path=%s: %w",
				params.BboltPath, err)
		}
		closer.Add("bbolt-db", db)

		pipeline.Targets = stkv.NewTargetStore(
			stcore.NewBboltDBBucket(db, stkv.TargetBucket))
		pipeline.AlertStates = stkv.NewAlertStateStore(
			stcore.NewBboltDBBucket(db, stkv.AlertStateBucket))
		pipeline.Results = stkv.NewResultStore(
			stcore.NewBboltDBBucket(db, stkv.ResultBucket))

	case config.BackendSQLite, config.BackendPostgres:
		dsn := params.SQLitePath
		if params.Backend == config.BackendPostgres {
			dsn = params.PostgresDSN
		}

		db, err := stsql.Open(ctx, stsql.Dialect(params.Backend), dsn)
		if err != nil {
			return nil, fmt.Errorf("store-pipeline: failed to open %s: %w", params.Backend, err)
		}
		closer.Add("sql-db", db)

		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("store-pipeline: failed to migrate: %w", err)
		}

		pipeline.Targets = stsql.NewTargetStore(db)
		pipeline.AlertStates = stsql.NewAlertStateStore(db)
		pipeline.Results = stsql.NewResultStore(db)

	default:
		return nil, fmt.Errorf("store-pipeline: unknown backend=%s: %w", params.Backend,
			status.StatusNotSupported)
	}

	if params.Results == config.ResultsInfluxDB {
		results := stinfluxdb.NewResultStore(params.InfluxDB)
		closer.Add("influxdb-result-store", results)

		pipeline.Results = results
	}

	core.LogInf.Infof("store-pipeline: opened: backend=%s results=%s",
		params.Backend, params.Results)

	return pipeline, nil
}
