package pingtarget

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingsched"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/syscore"
	"github.com/open-control-systems/ping-monitor/components/system/syssched"
)

// maxUpdateAttempts bounds the re-read loop on concurrent target updates.
const maxUpdateAttempts = 5

// Scheduler controls per-device probing tasks.
type Scheduler interface {
	// Start ensures the task for the target is running.
	Start(target ping.Target) error

	// Restart replaces the running task with a new one bound to the target.
	Restart(target ping.Target) error

	// Stop stops the task and waits until it exits.
	Stop(deviceID string) error

	// Rebind replaces the target of the running task without restarting it.
	Rebind(target ping.Target) error

	// Running returns true if the task for the device is running.
	Running(deviceID string) bool
}

// CreateParams describes a new target.
type CreateParams struct {
	DeviceID        string
	Name            string
	Address         ping.Address
	IntervalSeconds int
}

// Status is the externally visible state of a single target.
type Status struct {
	Target        ping.Target     `json:"target"`
	AlertState    ping.AlertState `json:"alert_state"`
	HasAlertState bool            `json:"has_alert_state"`
	Running       bool            `json:"running"`
}

// Service owns the monitoring lifecycle of targets.
//
// Remarks:
//   - Commands for the same device are serialized, different devices proceed in parallel.
//   - The store is mutated first, then the scheduler is updated, then the event is emitted.
type Service struct {
	targets   ping.TargetStore
	results   ping.ResultStore
	states    ping.AlertStateStore
	scheduler Scheduler
	handler   pingsched.ResultHandler
	notifier  ping.Notifier
	clock     syscore.Clock
	locks     *syssched.KeyMutex
}

// NewService is an initialization of Service.
//
// Parameters:
//   - targets - to persist targets.
//   - results - to list and purge probe results.
//   - states - to read and purge alert states.
//   - scheduler - to start and stop probing tasks.
//   - handler - to process externally ingested results.
//   - notifier - to emit lifecycle events.
//   - clock - to timestamp target changes.
func NewService(
	targets ping.TargetStore,
	results ping.ResultStore,
	states ping.AlertStateStore,
	scheduler Scheduler,
	handler pingsched.ResultHandler,
	notifier ping.Notifier,
	clock syscore.Clock,
) *Service {
	return &Service{
		targets:   targets,
		results:   results,
		states:    states,
		scheduler: scheduler,
		handler:   handler,
		notifier:  notifier,
		clock:     clock,
		locks:     syssched.NewKeyMutex(),
	}
}

// Create persists a new unmonitored target.
//
// Remarks:
//   - status.StatusConflict is returned if the target already exists.
func (s *Service) Create(ctx context.Context, params CreateParams) (ping.Target, error) {
	if params.DeviceID == "" {
		return ping.Target{}, fmt.Errorf("ping-target: device_id is required: %w",
			status.StatusInvalidArg)
	}

	if err := params.Address.Validate(); err != nil {
		return ping.Target{}, err
	}

	if err := ping.ValidateIntervalSeconds(params.IntervalSeconds); err != nil {
		return ping.Target{}, err
	}

	unlock := s.locks.Lock(params.DeviceID)
	defer unlock()

	now := s.clock.Now()

	target := ping.Target{
		DeviceID:        params.DeviceID,
		Name:            params.Name,
		Address:         params.Address,
		IntervalSeconds: params.IntervalSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.targets.Create(ctx, target); err != nil {
		return ping.Target{}, err
	}

	core.LogInf.Infof("ping-target: created: id=%s addr=%s", target.DeviceID, target.Address)

	return s.targets.Get(ctx, target.DeviceID)
}

// StartMonitoring enables monitoring and starts the probing task.
//
// Remarks:
//   - No-op if the target is monitored and its task is running.
//   - A monitored target without a task only gets its task started.
func (s *Service) StartMonitoring(ctx context.Context, deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	target, err := s.targets.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	if target.Monitored {
		if s.scheduler.Running(deviceID) {
			return nil
		}

		return s.start(ctx, target)
	}

	target, changed, err := s.update(ctx, deviceID, func(t *ping.Target) bool {
		if t.Monitored {
			return false
		}

		t.Monitored = true

		return true
	})
	if err != nil {
		return err
	}

	if err := s.scheduler.Start(target); err != nil {
		if changed {
			s.unmonitor(ctx, deviceID)
		}

		return fmt.Errorf("ping-target: failed to start task: id=%s: %w", deviceID, err)
	}

	if changed {
		s.notifier.NotifyTargetStarted(ctx, target)
	}

	return nil
}

// StopMonitoring disables monitoring and waits until the probing task exits.
//
// Remarks:
//   - No-op without a store write if the target isn't monitored.
func (s *Service) StopMonitoring(ctx context.Context, deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	target, err := s.targets.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	if !target.Monitored {
		return s.scheduler.Stop(deviceID)
	}

	target, changed, err := s.update(ctx, deviceID, func(t *ping.Target) bool {
		if !t.Monitored {
			return false
		}

		t.Monitored = false

		return true
	})
	if err != nil {
		return err
	}

	if err := s.scheduler.Stop(deviceID); err != nil {
		return err
	}

	if changed {
		s.notifier.NotifyTargetStopped(ctx, target)
	}

	return nil
}

// UpdateAddress changes the address the device is probed at.
//
// Remarks:
//   - The running task is replaced, the old one exits before the new one probes.
func (s *Service) UpdateAddress(ctx context.Context, deviceID string, addr ping.Address) error {
	if err := addr.Validate(); err != nil {
		return err
	}

	unlock := s.locks.Lock(deviceID)
	defer unlock()

	var previous ping.Address

	target, changed, err := s.update(ctx, deviceID, func(t *ping.Target) bool {
		if t.Address == addr {
			return false
		}

		previous = t.Address
		t.Address = addr

		return true
	})
	if err != nil {
		return err
	}

	if !changed {
		return nil
	}

	if target.Monitored {
		if err := s.scheduler.Restart(target); err != nil {
			return fmt.Errorf("ping-target: failed to restart task: id=%s: %w", deviceID, err)
		}
	}

	core.LogInf.Infof("ping-target: address updated: id=%s prev=%s addr=%s",
		deviceID, previous, target.Address)

	s.notifier.NotifyAddressUpdated(ctx, target, previous)

	return nil
}

// UpdateName changes the device name.
//
// Remarks:
//   - The running task isn't restarted, its next events carry the new name.
func (s *Service) UpdateName(ctx context.Context, deviceID string, name string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	target, changed, err := s.update(ctx, deviceID, func(t *ping.Target) bool {
		if t.Name == name {
			return false
		}

		t.Name = name

		return true
	})
	if err != nil || !changed || !target.Monitored {
		return err
	}

	if err := s.scheduler.Rebind(target); err != nil {
		return fmt.Errorf("ping-target: failed to rebind task: id=%s: %w", deviceID, err)
	}

	return nil
}

// Delete stops the task and removes the target with all its results and alert state.
//
// Remarks:
//   - Safe to call for a device that doesn't exist.
func (s *Service) Delete(ctx context.Context, deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	target, err := s.targets.Get(ctx, deviceID)
	exists := err == nil

	if err != nil && !errors.Is(err, status.StatusNoData) {
		return err
	}

	if err := s.scheduler.Stop(deviceID); err != nil {
		return err
	}

	if err := s.results.DeleteDevice(ctx, deviceID); err != nil {
		return fmt.Errorf("ping-target: failed to delete results: id=%s: %w", deviceID, err)
	}

	if err := s.states.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("ping-target: failed to delete alert state: id=%s: %w", deviceID, err)
	}

	if err := s.targets.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("ping-target: failed to delete target: id=%s: %w", deviceID, err)
	}

	if exists {
		core.LogInf.Infof("ping-target: deleted: id=%s", deviceID)

		if target.Monitored {
			s.notifier.NotifyTargetStopped(ctx, target)
		}
	}

	return nil
}

// IngestResult runs an externally produced outcome through the result tracking path.
func (s *Service) IngestResult(ctx context.Context, deviceID string, outcome ping.Outcome) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	target, err := s.targets.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	return s.handler.HandleResult(ctx, target, outcome, s.clock.Now())
}

// Restore starts probing tasks for all monitored targets.
//
// Remarks:
//   - Failed targets are logged and skipped, the joined error is returned.
func (s *Service) Restore(ctx context.Context) error {
	targets, err := s.targets.List(ctx)
	if err != nil {
		return err
	}

	var (
		errs    []error
		started int
	)

	for _, target := range targets {
		if !target.Monitored {
			continue
		}

		if err := s.restore(ctx, target); err != nil {
			core.LogErr.Errorf("ping-target: failed to restore: id=%s err=%v",
				target.DeviceID, err)

			errs = append(errs, err)

			continue
		}

		started++
	}

	core.LogInf.Infof("ping-target: restored: started=%d total=%d", started, len(targets))

	return errors.Join(errs...)
}

// Get returns the status of a single target.
func (s *Service) Get(ctx context.Context, deviceID string) (Status, error) {
	target, err := s.targets.Get(ctx, deviceID)
	if err != nil {
		return Status{}, err
	}

	return s.status(ctx, target)
}

// List returns the status of all targets, sorted by device ID.
func (s *Service) List(ctx context.Context) ([]Status, error) {
	targets, err := s.targets.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].DeviceID < targets[j].DeviceID
	})

	statuses := make([]Status, 0, len(targets))

	for _, target := range targets {
		st, err := s.status(ctx, target)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, st)
	}

	return statuses, nil
}

// Results returns up to limit most recent results of the device.
func (s *Service) Results(ctx context.Context, deviceID string, limit int) ([]ping.Result, error) {
	if _, err := s.targets.Get(ctx, deviceID); err != nil {
		return nil, err
	}

	return s.results.List(ctx, deviceID, limit)
}

func (s *Service) restore(ctx context.Context, target ping.Target) error {
	unlock := s.locks.Lock(target.DeviceID)
	defer unlock()

	return s.start(ctx, target)
}

// start starts the task of a monitored target, the target is unmonitored if
// it can never be probed.
func (s *Service) start(ctx context.Context, target ping.Target) error {
	err := s.scheduler.Start(target)
	if errors.Is(err, status.StatusInvalidArg) {
		s.unmonitor(ctx, target.DeviceID)
	}

	return err
}

// unmonitor clears the monitored flag of a target whose task can't run.
func (s *Service) unmonitor(ctx context.Context, deviceID string) {
	_, _, err := s.update(ctx, deviceID, func(t *ping.Target) bool {
		if !t.Monitored {
			return false
		}

		t.Monitored = false

		return true
	})
	if err != nil {
		core.LogErr.Errorf("ping-target: failed to clear monitored flag: id=%s err=%v",
			deviceID, err)

		return
	}

	core.LogWrn.Warnf("ping-target: monitoring disabled, task can't start: id=%s", deviceID)
}

func (s *Service) status(ctx context.Context, target ping.Target) (Status, error) {
	st := Status{
		Target:  target,
		Running: s.scheduler.Running(target.DeviceID),
	}

	state, err := s.states.Get(ctx, target.DeviceID)
	if err == nil {
		st.AlertState = state
		st.HasAlertState = true
	} else if !errors.Is(err, status.StatusNoData) {
		return Status{}, err
	}

	return st, nil
}

// update applies fn to the stored target and writes it back.
//
// Remarks:
//   - On a version conflict the target is re-read and fn is applied again.
//   - The stored target is returned unchanged if fn reports no change.
func (s *Service) update(
	ctx context.Context,
	deviceID string,
	fn func(t *ping.Target) bool,
) (ping.Target, bool, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		target, err := s.targets.Get(ctx, deviceID)
		if err != nil {
			return ping.Target{}, false, err
		}

		if !fn(&target) {
			return target, false, nil
		}

		target.UpdatedAt = s.clock.Now()

		updated, err := s.targets.Update(ctx, target)
		if err == nil {
			return updated, true, nil
		}

		if !errors.Is(err, status.StatusStale) {
			return ping.Target{}, false, err
		}

		core.LogWrn.Warnf("ping-target: concurrent update: id=%s attempt=%d",
			deviceID, attempt+1)
	}

	return ping.Target{}, false, fmt.Errorf(
		"ping-target: target keeps changing: id=%s: %w", deviceID, status.StatusStale)
}
