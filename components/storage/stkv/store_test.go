package stkv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/storage/stcore"
	"github.com/open-control-systems/ping-monitor/components/storage/sttest"
)

type testStoreBackend struct {
	name string
	open func(t *testing.T) func(bucket string) stcore.DB
}

func testStoreBackends() []testStoreBackend {
	return []testStoreBackend{
		{
			name: "memory",
			open: func(_ *testing.T) func(string) stcore.DB {
				return func(string) stcore.DB {
					return stcore.NewMemoryDB()
				}
			},
		},
		{
			name: "bbolt",
			open: func(t *testing.T) func(string) stcore.DB {
				db, err := stcore.NewBboltDB(filepath.Join(t.TempDir(), "bolt.db"),
					&bbolt.Options{})
				require.Nil(t, err)

				t.Cleanup(func() {
					require.Nil(t, db.Close())
				})

				return func(bucket string) stcore.DB {
					return stcore.NewBboltDBBucket(db, bucket)
				}
			},
		},
	}
}

func TestTargetStore(t *testing.T) {
	for _, backend := range testStoreBackends() {
		t.Run(backend.name, func(t *testing.T) {
			open := backend.open(t)
			sttest.RunTargetStoreChecks(t, NewTargetStore(open(TargetBucket)))
		})
	}
}

func TestResultStore(t *testing.T) {
	for _, backend := range testStoreBackends() {
		t.Run(backend.name, func(t *testing.T) {
			open := backend.open(t)
			sttest.RunResultStoreChecks(t, NewResultStore(open(ResultBucket)))
		})
	}
}

func TestAlertStateStore(t *testing.T) {
	for _, backend := range testStoreBackends() {
		t.Run(backend.name, func(t *testing.T) {
			open := backend.open(t)
			sttest.RunAlertStateStoreChecks(t, NewAlertStateStore(open(AlertStateBucket)))
		})
	}
}

func TestStoresCleanup(t *testing.T) {
	for _, backend := range testStoreBackends() {
		t.Run(backend.name, func(t *testing.T) {
			open := backend.open(t)

			sttest.RunCleanupChecks(t, sttest.Stores{
				Targets:     NewTargetStore(open(TargetBucket)),
				Results:     NewResultStore(open(ResultBucket)),
				AlertStates: NewAlertStateStore(open(AlertStateBucket)),
			})
		})
	}
}

func TestResultStoreSharedIDPrefix(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	store := NewResultStore(stcore.NewMemoryDB())

	require.Nil(t, store.Append(ctx,
		ping.NewResult("0xA", ping.Outcome{Status: ping.StatusSuccess}, now)))
	require.Nil(t, store.Append(ctx,
		ping.NewResult("0xAB", ping.Outcome{Status: ping.StatusFailure}, now)))

	results, err := store.List(ctx, "0xA", 0)
	require.Nil(t, err)
	require.Len(t, results, 1)
	require.Equal(t, ping.StatusSuccess, results[0].Status)

	require.Nil(t, store.DeleteDevice(ctx, "0xA"))

	results, err = store.List(ctx, "0xAB", 0)
	require.Nil(t, err)
	require.Len(t, results, 1)
}
