package pingsched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
)

type testProberFactory struct {
	prober ping.Prober
}

func (f *testProberFactory) NewProber(_ ping.Target) ping.Prober {
	return f.prober
}

type testHandledResult struct {
	target  ping.Target
	outcome ping.Outcome
}

type testResultHandler struct {
	mu      sync.Mutex
	block   string
	results []testHandledResult
}

func (h *testResultHandler) HandleResult(
	ctx context.Context,
	target ping.Target,
	outcome ping.Outcome,
	_ time.Time,
) error {
	h.mu.Lock()
	h.results = append(h.results, testHandledResult{target: target, outcome: outcome})
	block := h.block
	h.mu.Unlock()

	if target.DeviceID == block {
		<-ctx.Done()
	}

	return nil
}

func (h *testResultHandler) getResults() []testHandledResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]testHandledResult(nil), h.results...)
}

func (h *testResultHandler) count(deviceID string) int {
	n := 0

	for _, r := range h.getResults() {
		if r.target.DeviceID == deviceID {
			n++
		}
	}

	return n
}

func newTestScheduler(
	ctx context.Context,
	prober ping.Prober,
	handler ResultHandler,
	interval time.Duration,
) *Scheduler {
	return NewScheduler(ctx, &testProberFactory{prober: prober}, handler,
		syscore.LocalClock{}, SchedulerParams{
			DefaultInterval: interval,
			ProbeTimeout:    time.Second,
		})
}

func newTestSuccessProber() ping.Prober {
	return ping.FuncProber(func(_ context.Context, _ ping.Address) ping.Outcome {
		return ping.Outcome{Status: ping.StatusSuccess}
	})
}

func newTestSchedTarget(id string, ip string) ping.Target {
	return ping.Target{
		DeviceID: id,
		Address:  ping.Address{IPAddress: ip},
	}
}

func TestSchedulerFirstProbeImmediate(t *testing.T) {
	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler, time.Hour)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))
	require.True(t, sched.Running("0xA"))

	require.Eventually(t, func() bool {
		return handler.count("0xA") == 1
	}, time.Second, time.Millisecond)

	results := handler.getResults()
	require.Equal(t, ping.StatusSuccess, results[0].outcome.Status)
}

func TestSchedulerStartNoopWhenRunning(t *testing.T) {
	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler, time.Hour)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))
	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.2")))

	require.Equal(t, 1, sched.Count())

	target, ok := sched.Target("0xA")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1", target.Address.IPAddress)
}

func TestSchedulerInvalidAddress(t *testing.T) {
	sched := newTestScheduler(context.Background(), newTestSuccessProber(),
		&testResultHandler{}, time.Hour)

	err := sched.Start(ping.Target{DeviceID: "0xA"})
	require.ErrorIs(t, err, status.StatusInvalidArg)
	require.False(t, sched.Running("0xA"))
}

func TestSchedulerRestartBindsNewAddress(t *testing.T) {
	var (
		mu    sync.Mutex
		addrs []string
	)

	prober := ping.FuncProber(func(_ context.Context, addr ping.Address) ping.Outcome {
		mu.Lock()
		addrs = append(addrs, addr.IPAddress)
		mu.Unlock()

		return ping.Outcome{Status: ping.StatusSuccess}
	})

	getAddrs := func() []string {
		mu.Lock()
		defer mu.Unlock()

		return append([]string(nil), addrs...)
	}

	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), prober, handler, time.Millisecond*5)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))

	require.Eventually(t, func() bool {
		return len(getAddrs()) >= 3
	}, time.Second, time.Millisecond)

	require.Nil(t, sched.Restart(newTestSchedTarget("0xA", "10.0.0.2")))

	probed := len(getAddrs())
	handled := len(handler.getResults())

	require.Eventually(t, func() bool {
		return len(getAddrs()) >= probed+3
	}, time.Second, time.Millisecond)

	for _, addr := range getAddrs()[probed:] {
		require.Equal(t, "10.0.0.2", addr)
	}

	for _, r := range handler.getResults()[handled:] {
		require.Equal(t, "10.0.0.2", r.target.Address.IPAddress)
	}

	require.Equal(t, 1, sched.Count())
	require.Equal(t, []string{"0xA"}, sched.DeviceIDs())
}

func TestSchedulerRebindKeepsTask(t *testing.T) {
	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler,
		time.Millisecond*5)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	target := newTestSchedTarget("0xA", "10.0.0.1")
	target.Name = "old-name"

	require.Nil(t, sched.Start(target))

	node := sched.get("0xA")
	require.NotNil(t, node)

	target.Name = "new-name"
	require.Nil(t, sched.Rebind(target))
	require.True(t, node == sched.get("0xA"))

	bound, ok := sched.Target("0xA")
	require.True(t, ok)
	require.Equal(t, "new-name", bound.Name)

	handled := len(handler.getResults())

	require.Eventually(t, func() bool {
		return len(handler.getResults()) >= handled+2
	}, time.Second, time.Millisecond)

	for _, r := range handler.getResults()[handled:] {
		require.Equal(t, "new-name", r.target.Name)
	}
}

func TestSchedulerRebindAddressRestarts(t *testing.T) {
	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler, time.Hour)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))

	node := sched.get("0xA")

	require.Nil(t, sched.Rebind(newTestSchedTarget("0xA", "10.0.0.2")))
	require.False(t, node == sched.get("0xA"))

	bound, ok := sched.Target("0xA")
	require.True(t, ok)
	require.Equal(t, "10.0.0.2", bound.Address.IPAddress)
}

func TestSchedulerRebindWithoutTask(t *testing.T) {
	sched := newTestScheduler(context.Background(), newTestSuccessProber(),
		&testResultHandler{}, time.Hour)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Rebind(newTestSchedTarget("0xA", "10.0.0.1")))
	require.False(t, sched.Running("0xA"))
}

func TestSchedulerStopIdempotent(t *testing.T) {
	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler,
		time.Millisecond*5)

	require.Nil(t, sched.Stop("0xA"))

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))

	require.Eventually(t, func() bool {
		return handler.count("0xA") >= 2
	}, time.Second, time.Millisecond)

	require.Nil(t, sched.Stop("0xA"))
	require.Nil(t, sched.Stop("0xA"))
	require.False(t, sched.Running("0xA"))
	require.Equal(t, 0, sched.Count())

	handled := handler.count("0xA")

	time.Sleep(time.Millisecond * 50)
	require.Equal(t, handled, handler.count("0xA"))
}

func TestSchedulerProbePanicIsolated(t *testing.T) {
	prober := ping.FuncProber(func(_ context.Context, addr ping.Address) ping.Outcome {
		if addr.IPAddress == "10.0.0.1" {
			panic("broken prober")
		}

		return ping.Outcome{Status: ping.StatusSuccess}
	})

	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), prober, handler, time.Millisecond*5)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))
	require.Nil(t, sched.Start(newTestSchedTarget("0xB", "10.0.0.2")))

	require.Eventually(t, func() bool {
		return handler.count("0xA") >= 3 && handler.count("0xB") >= 3
	}, time.Second, time.Millisecond)

	for _, r := range handler.getResults() {
		if r.target.DeviceID == "0xA" {
			require.Equal(t, ping.StatusError, r.outcome.Status)
			require.ErrorIs(t, r.outcome.Err, status.StatusError)
		} else {
			require.Equal(t, ping.StatusSuccess, r.outcome.Status)
		}
	}
}

func TestSchedulerDevicesDontBlockEachOther(t *testing.T) {
	handler := &testResultHandler{block: "0xA"}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler,
		time.Millisecond*5)
	defer func() {
		require.Nil(t, sched.Close())
	}()

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))
	require.Nil(t, sched.Start(newTestSchedTarget("0xB", "10.0.0.2")))

	require.Eventually(t, func() bool {
		return handler.count("0xA") == 1 && handler.count("0xB") >= 3
	}, time.Second, time.Millisecond)

	require.Nil(t, sched.Stop("0xB"))
	require.True(t, sched.Running("0xA"))

	// The blocked handler is released by the task cancellation.
	require.Nil(t, sched.Stop("0xA"))
	require.Equal(t, 1, handler.count("0xA"))
}

func TestSchedulerCloseRejectsStart(t *testing.T) {
	handler := &testResultHandler{}
	sched := newTestScheduler(context.Background(), newTestSuccessProber(), handler, time.Hour)

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))
	require.Nil(t, sched.Start(newTestSchedTarget("0xB", "10.0.0.2")))
	require.Equal(t, 2, sched.Count())

	require.Nil(t, sched.Close())
	require.Equal(t, 0, sched.Count())

	require.ErrorIs(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")),
		status.StatusInvalidState)
	require.ErrorIs(t, sched.Restart(newTestSchedTarget("0xA", "10.0.0.1")),
		status.StatusInvalidState)
}

func TestSchedulerParentContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &testResultHandler{}
	sched := newTestScheduler(ctx, newTestSuccessProber(), handler, time.Millisecond*5)

	require.Nil(t, sched.Start(newTestSchedTarget("0xA", "10.0.0.1")))

	require.Eventually(t, func() bool {
		return handler.count("0xA") >= 1
	}, time.Second, time.Millisecond)

	cancel()

	// Stop is still safe once the parent context is gone.
	require.Nil(t, sched.Stop("0xA"))

	handled := handler.count("0xA")

	time.Sleep(time.Millisecond * 30)
	require.Equal(t, handled, handler.count("0xA"))
}
