package pingsched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingalert"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/storage/stcore"
	"github.com/open-control-systems/ping-monitor/components/storage/stkv"
)

type testNotifier struct {
	mu     sync.Mutex
	events []ping.EventType
}

func (n *testNotifier) add(t ping.EventType) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, t)
}

func (n *testNotifier) NotifyDeviceDown(_ context.Context, _ ping.Target, _ time.Time) {
	n.add(ping.EventDeviceDown)
}

func (n *testNotifier) NotifyDeviceRecovered(_ context.Context, _ ping.Target, _ time.Time) {
	n.add(ping.EventDeviceRecovered)
}

func (n *testNotifier) NotifyTargetStarted(_ context.Context, _ ping.Target) {
	n.add(ping.EventTargetStarted)
}

func (n *testNotifier) NotifyTargetStopped(_ context.Context, _ ping.Target) {
	n.add(ping.EventTargetStopped)
}

func (n *testNotifier) NotifyAddressUpdated(_ context.Context, _ ping.Target, _ ping.Address) {
	n.add(ping.EventTargetAddressUpdated)
}

func (n *testNotifier) getEvents() []ping.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]ping.EventType(nil), n.events...)
}

type testResultStore struct {
	ping.ResultStore

	mu        sync.Mutex
	appendErr error
	appended  []ping.Result
}

func (s *testResultStore) Append(_ context.Context, result ping.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return s.appendErr
	}

	s.appended = append(s.appended, result)

	return nil
}

func (s *testResultStore) getAppended() []ping.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ping.Result(nil), s.appended...)
}

type testAlertStateStore struct {
	ping.AlertStateStore

	mu         sync.Mutex
	saveErr    error
	staleSaves int
	saves      int
}

func (s *testAlertStateStore) Save(ctx context.Context, state ping.AlertState) (ping.AlertState, error) {
	s.mu.Lock()

	if s.saveErr != nil {
		s.mu.Unlock()
		return ping.AlertState{}, s.saveErr
	}

	if s.staleSaves > 0 {
		s.staleSaves--
		s.mu.Unlock()

		// Emulate the concurrent writer.
		concurrent := state
		concurrent.ConsecutiveFailures = 0
		concurrent.ConsecutiveSuccesses = 0
		if _, err := s.AlertStateStore.Save(ctx, concurrent); err != nil {
			return ping.AlertState{}, err
		}

		return ping.AlertState{}, status.StatusStale
	}

	s.saves++
	s.mu.Unlock()

	return s.AlertStateStore.Save(ctx, state)
}

func (s *testAlertStateStore) getSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

type testTrackerEnv struct {
	results  *testResultStore
	states   *testAlertStateStore
	notifier *testNotifier
	tracker  *Tracker
	target   ping.Target
	now      time.Time
}

func newTestTrackerEnv() *testTrackerEnv {
	env := &testTrackerEnv{
		results: &testResultStore{
			ResultStore: stkv.NewResultStore(stcore.NewMemoryDB()),
		},
		states: &testAlertStateStore{
			AlertStateStore: stkv.NewAlertStateStore(stcore.NewMemoryDB()),
		},
		notifier: &testNotifier{},
		target: ping.Target{
			DeviceID: "0xA",
			Address:  ping.Address{IPAddress: "10.0.0.1"},
		},
		now: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}

	env.tracker = NewTracker(env.results, env.states, env.notifier, TrackerParams{
		Thresholds: pingalert.DefaultThresholds(),
		Retry: RetryParams{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	})

	return env
}

func (e *testTrackerEnv) track(t *testing.T, st ping.Status) pingalert.Transition {
	e.now = e.now.Add(time.Second)

	tr, err := e.tracker.Track(context.Background(), e.target, ping.Outcome{Status: st}, e.now)
	require.Nil(t, err)

	return tr
}

func TestTrackerDeviceDownAndRecovered(t *testing.T) {
	env := newTestTrackerEnv()

	require.Equal(t, pingalert.TransitionNone, env.track(t, ping.StatusFailure))
	require.Equal(t, pingalert.TransitionNone, env.track(t, ping.StatusTimeout))
	require.Equal(t, pingalert.TransitionDeviceDown, env.track(t, ping.StatusFailure))
	require.Equal(t, pingalert.TransitionNone, env.track(t, ping.StatusFailure))

	state, err := env.states.Get(context.Background(), "0xA")
	require.Nil(t, err)
	require.True(t, state.Alerting)
	require.Equal(t, 4, state.ConsecutiveFailures)

	require.Equal(t, pingalert.TransitionNone, env.track(t, ping.StatusSuccess))
	require.Equal(t, pingalert.TransitionDeviceRecovered, env.track(t, ping.StatusSuccess))

	require.Equal(t,
		[]ping.EventType{ping.EventDeviceDown, ping.EventDeviceRecovered},
		env.notifier.getEvents())

	require.Len(t, env.results.getAppended(), 6)
}

func TestTrackerNeutralOutcomeNoStateWrite(t *testing.T) {
	env := newTestTrackerEnv()

	env.track(t, ping.StatusFailure)
	require.Equal(t, 1, env.states.getSaves())

	env.track(t, ping.StatusCircuitOpen)
	env.track(t, ping.StatusSkipped)
	require.Equal(t, 1, env.states.getSaves())

	results := env.results.getAppended()
	require.Len(t, results, 3)
	require.Equal(t, ping.StatusSkipped, results[2].Status)
}

func TestTrackerAppendFailureStillEvaluates(t *testing.T) {
	env := newTestTrackerEnv()
	env.results.appendErr = status.StatusError

	var lastTransition pingalert.Transition

	for i := 0; i < 3; i++ {
		env.now = env.now.Add(time.Second)

		tr, err := env.tracker.Track(context.Background(), env.target,
			ping.Outcome{Status: ping.StatusFailure}, env.now)
		require.True(t, errors.Is(err, status.StatusError))

		lastTransition = tr
	}

	require.Equal(t, pingalert.TransitionDeviceDown, lastTransition)
	require.Equal(t, []ping.EventType{ping.EventDeviceDown}, env.notifier.getEvents())
}

func TestTrackerStateWriteFailureNoEvent(t *testing.T) {
	env := newTestTrackerEnv()

	env.track(t, ping.StatusFailure)
	env.track(t, ping.StatusFailure)

	env.states.saveErr = status.StatusError

	env.now = env.now.Add(time.Second)

	tr, err := env.tracker.Track(context.Background(), env.target,
		ping.Outcome{Status: ping.StatusFailure}, env.now)
	require.True(t, errors.Is(err, status.StatusError))
	require.Equal(t, pingalert.TransitionNone, tr)
	require.Empty(t, env.notifier.getEvents())

	// The transition happens once the store is back.
	env.states.saveErr = nil
	require.Equal(t, pingalert.TransitionDeviceDown, env.track(t, ping.StatusFailure))
}

func TestTrackerStaleStateIsReread(t *testing.T) {
	env := newTestTrackerEnv()

	env.track(t, ping.StatusFailure)
	env.track(t, ping.StatusFailure)

	env.states.staleSaves = 1

	// The concurrent writer reset the counters, so the third failure isn't enough.
	require.Equal(t, pingalert.TransitionNone, env.track(t, ping.StatusFailure))

	state, err := env.states.Get(context.Background(), "0xA")
	require.Nil(t, err)
	require.Equal(t, 1, state.ConsecutiveFailures)
	require.False(t, state.Alerting)
}

func TestTrackerCanceledContextNoWrites(t *testing.T) {
	env := newTestTrackerEnv()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.tracker.Track(ctx, env.target, ping.Outcome{Status: ping.StatusFailure}, env.now)
	require.ErrorIs(t, err, context.Canceled)

	require.Empty(t, env.results.getAppended())
	require.Equal(t, 0, env.states.getSaves())
}
