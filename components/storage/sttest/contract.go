// Package sttest contains behavior checks shared by every store backend.
package sttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// Stores bundles the store implementations of a single backend.
type Stores struct {
	Targets     ping.TargetStore
	Results     ping.ResultStore
	AlertStates ping.AlertStateStore
}

// RunTargetStoreChecks verifies the TargetStore behavior.
func RunTargetStoreChecks(t *testing.T, store ping.TargetStore) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	_, err := store.Get(ctx, "0xA")
	require.True(t, errors.Is(err, status.StatusNoData))

	target := ping.Target{
		DeviceID:        "0xA",
		Name:            "printer",
		Address:         ping.Address{IPAddress: "192.168.4.2", Hostname: "printer.local"},
		IntervalSeconds: 30,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.Nil(t, store.Create(ctx, target))
	require.True(t, errors.Is(store.Create(ctx, target), status.StatusConflict))

	stored, err := store.Get(ctx, "0xA")
	require.Nil(t, err)
	require.Equal(t, "printer", stored.Name)
	require.Equal(t, target.Address, stored.Address)
	require.False(t, stored.Monitored)
	require.Equal(t, 30, stored.IntervalSeconds)
	require.True(t, now.Equal(stored.CreatedAt))
	require.Equal(t, int64(1), stored.Version)

	stored.Monitored = true
	updated, err := store.Update(ctx, stored)
	require.Nil(t, err)
	require.Equal(t, int64(2), updated.Version)

	// Writing with the outdated version must be rejected.
	stored.Address.IPAddress = "192.168.4.3"
	_, err = store.Update(ctx, stored)
	require.True(t, errors.Is(err, status.StatusStale))

	current, err := store.Get(ctx, "0xA")
	require.Nil(t, err)
	require.True(t, current.Monitored)
	require.Equal(t, "192.168.4.2", current.Address.IPAddress)

	_, err = store.Update(ctx, ping.Target{DeviceID: "0xMissing", Version: 1})
	require.True(t, errors.Is(err, status.StatusNoData))

	require.Nil(t, store.Create(ctx, ping.Target{
		DeviceID:  "0xB",
		Address:   ping.Address{Hostname: "router.local"},
		CreatedAt: now,
		UpdatedAt: now,
	}))

	targets, err := store.List(ctx)
	require.Nil(t, err)
	require.Len(t, targets, 2)

	require.Nil(t, store.Delete(ctx, "0xA"))
	require.Nil(t, store.Delete(ctx, "0xA"))

	_, err = store.Get(ctx, "0xA")
	require.True(t, errors.Is(err, status.StatusNoData))

	targets, err = store.List(ctx)
	require.Nil(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "0xB", targets[0].DeviceID)
}

// RunResultStoreChecks verifies the ResultStore behavior.
func RunResultStoreChecks(t *testing.T, store ping.ResultStore) {
	ctx := context.Background()
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	results, err := store.List(ctx, "0xA", 10)
	require.Nil(t, err)
	require.Empty(t, results)

	for i := 0; i < 5; i++ {
		outcome := ping.Outcome{Status: ping.StatusSuccess, RTT: time.Millisecond * 7}
		if i%2 == 1 {
			outcome = ping.Outcome{Status: ping.StatusTimeout}
		}

		require.Nil(t, store.Append(ctx,
			ping.NewResult("0xA", outcome, start.Add(time.Duration(i)*time.Second))))
	}

	require.Nil(t, store.Append(ctx, ping.NewResult("0xB",
		ping.Outcome{Status: ping.StatusFailure}, start)))

	results, err = store.List(ctx, "0xA", 3)
	require.Nil(t, err)
	require.Len(t, results, 3)

	require.True(t, start.Add(4*time.Second).Equal(results[0].Time))
	require.True(t, start.Add(3*time.Second).Equal(results[1].Time))
	require.True(t, start.Add(2*time.Second).Equal(results[2].Time))

	require.Equal(t, ping.StatusSuccess, results[0].Status)
	require.NotNil(t, results[0].RTT)
	require.Equal(t, time.Millisecond*7, *results[0].RTT)

	require.Equal(t, ping.StatusTimeout, results[1].Status)
	require.Nil(t, results[1].RTT)

	require.Nil(t, store.DeleteDevice(ctx, "0xA"))
	require.Nil(t, store.DeleteDevice(ctx, "0xA"))

	results, err = store.List(ctx, "0xA", 10)
	require.Nil(t, err)
	require.Empty(t, results)

	results, err = store.List(ctx, "0xB", 10)
	require.Nil(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "0xB", results[0].DeviceID)
	require.Equal(t, ping.StatusFailure, results[0].Status)
}

// RunAlertStateStoreChecks verifies the AlertStateStore behavior.
func RunAlertStateStoreChecks(t *testing.T, store ping.AlertStateStore) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	_, err := store.Get(ctx, "0xA")
	require.True(t, errors.Is(err, status.StatusNoData))

	state := ping.AlertState{
		DeviceID:            "0xA",
		ConsecutiveFailures: 1,
		LastFailure:         now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	saved, err := store.Save(ctx, state)
	require.Nil(t, err)
	require.Equal(t, int64(1), saved.Version)

	// A concurrent writer which also observed "no state" must lose.
	_, err = store.Save(ctx, state)
	require.True(t, errors.Is(err, status.StatusStale))

	saved.ConsecutiveFailures = 3
	saved.Alerting = true
	saved.LastAlertSent = now.Add(time.Minute)

	saved, err = store.Save(ctx, saved)
	require.Nil(t, err)
	require.Equal(t, int64(2), saved.Version)

	stored, err := store.Get(ctx, "0xA")
	require.Nil(t, err)
	require.Equal(t, 3, stored.ConsecutiveFailures)
	require.Equal(t, 0, stored.ConsecutiveSuccesses)
	require.True(t, stored.Alerting)
	require.True(t, now.Add(time.Minute).Equal(stored.LastAlertSent))
	require.True(t, now.Equal(stored.LastFailure))
	require.Equal(t, int64(2), stored.Version)

	stale := stored
	stale.Version = 1
	_, err = store.Save(ctx, stale)
	require.True(t, errors.Is(err, status.StatusStale))

	require.Nil(t, store.Delete(ctx, "0xA"))
	require.Nil(t, store.Delete(ctx, "0xA"))

	_, err = store.Get(ctx, "0xA")
	require.True(t, errors.Is(err, status.StatusNoData))
}

// RunCleanupChecks verifies that removing a device leaves nothing behind.
func RunCleanupChecks(t *testing.T, stores Stores) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for _, id := range []string{"0xA", "0xB"} {
		require.Nil(t, stores.Targets.Create(ctx, ping.Target{
			DeviceID:  id,
			Address:   ping.Address{IPAddress: "10.0.0.1"},
			CreatedAt: now,
			UpdatedAt: now,
		}))

		require.Nil(t, stores.Results.Append(ctx,
			ping.NewResult(id, ping.Outcome{Status: ping.StatusFailure}, now)))

		_, err := stores.AlertStates.Save(ctx, ping.AlertState{
			DeviceID:            id,
			ConsecutiveFailures: 1,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		require.Nil(t, err)
	}

	require.Nil(t, stores.Results.DeleteDevice(ctx, "0xA"))
	require.Nil(t, stores.AlertStates.Delete(ctx, "0xA"))
	require.Nil(t, stores.Targets.Delete(ctx, "0xA"))

	_, err := stores.Targets.Get(ctx, "0xA")
	require.True(t, errors.Is(err, status.StatusNoData))

	_, err = stores.AlertStates.Get(ctx, "0xA")
	require.True(t, errors.Is(err, status.StatusNoData))

	results, err := stores.Results.List(ctx, "0xA", 0)
	require.Nil(t, err)
	require.Empty(t, results)

	_, err = stores.Targets.Get(ctx, "0xB")
	require.Nil(t, err)

	_, err = stores.AlertStates.Get(ctx, "0xB")
	require.Nil(t, err)

	results, err = stores.Results.List(ctx, "0xB", 0)
	require.Nil(t, err)
	require.Len(t, results, 1)
}
