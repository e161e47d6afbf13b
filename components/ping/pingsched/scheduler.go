package pingsched

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
	"github.com/open-control-systems/ping-monitor/components/system/syssched"
)

// SchedulerParams configures the per-device probing loop.
type SchedulerParams struct {
	// DefaultInterval - probing interval for targets without an explicit one.
	DefaultInterval time.Duration

	// ProbeTimeout - upper bound for a single probe, capped by the interval.
	ProbeTimeout time.Duration
}

// Scheduler runs exactly one probing task per monitored device.
//
// Remarks:
//   - Operations on the same device are serialized, different devices don't block each other.
//   - Stop and Restart return only after the previous task has fully exited, so an old
//     task never writes results once a new one is started.
type Scheduler struct {
	ctx     context.Context
	factory ping.ProberFactory
	handler ResultHandler
	clock   syscore.Clock
	params  SchedulerParams
	locks   *syssched.KeyMutex

	mu     sync.Mutex
	nodes  map[string]*taskNode
	closed bool
}

// NewScheduler is an initialization of Scheduler.
//
// Parameters:
//   - ctx - parent context, all tasks are stopped when it's canceled.
//   - factory - to create the prober for each device.
//   - handler - to handle probe outcomes.
//   - clock - to timestamp probe outcomes.
//   - params - probing configuration.
func NewScheduler(
	ctx context.Context,
	factory ping.ProberFactory,
	handler ResultHandler,
	clock syscore.Clock,
	params SchedulerParams,
) *Scheduler {
	return &Scheduler{
		ctx:     ctx,
		factory: factory,
		handler: handler,
		clock:   clock,
		params:  params,
		locks:   syssched.NewKeyMutex(),
		nodes:   make(map[string]*taskNode),
	}
}

// Start ensures the probing task for the target is running.
//
// Remarks:
//   - No-op if the task is already running, the running task keeps its target.
func (s *Scheduler) Start(target ping.Target) error {
	unlock := s.locks.Lock(target.DeviceID)
	defer unlock()

	if s.get(target.DeviceID) != nil {
		return nil
	}

	return s.start(target)
}

// Restart replaces the running task with a new one bound to the target.
//
// Remarks:
//   - The old task is stopped and awaited before the new one probes.
//   - The new task probes immediately.
func (s *Scheduler) Restart(target ping.Target) error {
	unlock := s.locks.Lock(target.DeviceID)
	defer unlock()

	if err := s.stop(target.DeviceID); err != nil {
		return err
	}

	return s.start(target)
}

// Rebind replaces the target of the running task without restarting it.
//
// Remarks:
//   - No-op if there is no task for the device.
//   - The task is restarted if the address or the interval changed.
func (s *Scheduler) Rebind(target ping.Target) error {
	unlock := s.locks.Lock(target.DeviceID)
	defer unlock()

	node := s.get(target.DeviceID)
	if node == nil {
		return nil
	}

	bound := node.task.getTarget()

	if bound.Address != target.Address ||
		bound.Interval(s.params.DefaultInterval) != target.Interval(s.params.DefaultInterval) {
		if err := s.stop(target.DeviceID); err != nil {
			return err
		}

		return s.start(target)
	}

	node.task.setTarget(target)

	return nil
}

// Stop stops the probing task and waits until it exits.
//
// Remarks:
//   - No-op if there is no task for the device.
func (s *Scheduler) Stop(deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	return s.stop(deviceID)
}

// Running returns true if the task for the device is running.
func (s *Scheduler) Running(deviceID string) bool {
	return s.get(deviceID) != nil
}

// Target returns the target the running task is bound to.
func (s *Scheduler) Target(deviceID string) (ping.Target, bool) {
	node := s.get(deviceID)
	if node == nil {
		return ping.Target{}, false
	}

	return node.task.getTarget(), true
}

// DeviceIDs returns the IDs of devices with a running task, sorted.
func (s *Scheduler) DeviceIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Count returns the number of running tasks.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.nodes)
}

// Close stops all tasks, Start and Restart fail afterwards.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	var errs []error

	for _, id := range s.DeviceIDs() {
		if err := s.Stop(id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Scheduler) get(deviceID string) *taskNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nodes[deviceID]
}

func (s *Scheduler) start(target ping.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("ping-scheduler: closed: %w", status.StatusInvalidState)
	}

	if err := target.Address.Validate(); err != nil {
		return err
	}

	if err := ping.ValidateIntervalSeconds(target.IntervalSeconds); err != nil {
		return err
	}

	interval := target.Interval(s.params.DefaultInterval)

	timeout := s.params.ProbeTimeout
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}

	task := &probeTask{
		addr:    target.Address,
		target:  target,
		prober:  s.factory.NewProber(target),
		handler: s.handler,
		clock:   s.clock,
		timeout: timeout,
	}

	runner := syssched.NewAsyncTaskRunner(s.ctx, task,
		syssched.FuncErrorHandler(func(err error) {
			core.LogErr.Errorf("ping-scheduler: failed to handle probe: id=%s err=%v",
				target.DeviceID, err)
		}),
		syssched.AsyncTaskRunnerParams{UpdateInterval: interval},
	)

	if err := runner.Start(); err != nil {
		return fmt.Errorf("ping-scheduler: failed to start: id=%s: %w", target.DeviceID, err)
	}

	s.nodes[target.DeviceID] = &taskNode{
		task:   task,
		runner: runner,
	}

	core.LogInf.Infof("ping-scheduler: started: id=%s addr=%s interval=%s timeout=%s",
		target.DeviceID, target.Address, interval, timeout)

	return nil
}

func (s *Scheduler) stop(deviceID string) error {
	s.mu.Lock()
	node, ok := s.nodes[deviceID]
	delete(s.nodes, deviceID)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	// The map lock isn't held while waiting, other devices aren't blocked.
	if err := node.runner.Stop(); err != nil {
		return fmt.Errorf("ping-scheduler: failed to stop: id=%s: %w", deviceID, err)
	}

	core.LogInf.Infof("ping-scheduler: stopped: id=%s", deviceID)

	return nil
}

type taskNode struct {
	task   *probeTask
	runner syssched.Stopper
}
