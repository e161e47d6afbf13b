package pingsched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingalert"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/system/syssched"
)

// maxStaleAttempts bounds the re-read loop on concurrent alert state updates.
const maxStaleAttempts = 5

// ResultHandler handles the outcome of a single probe.
type ResultHandler interface {
	// HandleResult handles the probe outcome for the target.
	HandleResult(ctx context.Context, target ping.Target, outcome ping.Outcome, at time.Time) error
}

// TrackerParams configures the Tracker.
type TrackerParams struct {
	Thresholds pingalert.Thresholds
	Retry      RetryParams
}

// Tracker persists probe results, drives the alert state machine, and emits events.
//
// Remarks:
//   - Evaluation for a single device is serialized, different devices proceed in parallel.
//   - An event is emitted only after the new alert state is persisted.
type Tracker struct {
	results  ping.ResultStore
	states   ping.AlertStateStore
	notifier ping.Notifier
	params   TrackerParams
	locks    *syssched.KeyMutex
}

// NewTracker is an initialization of Tracker.
//
// Parameters:
//   - results - to persist probe results.
//   - states - to persist alert states.
//   - notifier - to emit device-down and device-recovered events.
//   - params - thresholds and retry configuration.
func NewTracker(
	results ping.ResultStore,
	states ping.AlertStateStore,
	notifier ping.Notifier,
	params TrackerParams,
) *Tracker {
	return &Tracker{
		results:  results,
		states:   states,
		notifier: notifier,
		params:   params,
		locks:    syssched.NewKeyMutex(),
	}
}

// HandleResult implements ResultHandler.
func (t *Tracker) HandleResult(
	ctx context.Context,
	target ping.Target,
	outcome ping.Outcome,
	at time.Time,
) error {
	_, err := t.Track(ctx, target, outcome, at)

	return err
}

// Track records the outcome and evaluates the alert state machine.
//
// Remarks:
//   - A failed result append doesn't prevent the alert evaluation, both errors are joined.
//   - Neutral outcomes are recorded but never change the alert state.
//   - Nothing is written once ctx is canceled.
func (t *Tracker) Track(
	ctx context.Context,
	target ping.Target,
	outcome ping.Outcome,
	at time.Time,
) (pingalert.Transition, error) {
	if err := ctx.Err(); err != nil {
		return pingalert.TransitionNone, err
	}

	var appendErr error

	if err := retry(ctx, t.params.Retry, func() error {
		return t.results.Append(ctx, ping.NewResult(target.DeviceID, outcome, at))
	}); err != nil {
		appendErr = fmt.Errorf("ping-tracker: failed to append result: id=%s: %w",
			target.DeviceID, err)
	}

	if outcome.Status.Neutral() {
		return pingalert.TransitionNone, appendErr
	}

	unlock := t.locks.Lock(target.DeviceID)
	defer unlock()

	transition, err := t.evaluate(ctx, target.DeviceID, outcome.Status, at)
	if err != nil {
		return pingalert.TransitionNone, errors.Join(appendErr, err)
	}

	// The state is persisted, the event must be delivered even if the task is stopping.
	notifyCtx := context.WithoutCancel(ctx)

	switch transition {
	case pingalert.TransitionDeviceDown:
		t.notifier.NotifyDeviceDown(notifyCtx, target, at)
	case pingalert.TransitionDeviceRecovered:
		t.notifier.NotifyDeviceRecovered(notifyCtx, target, at)
	}

	return transition, appendErr
}

func (t *Tracker) evaluate(
	ctx context.Context,
	deviceID string,
	st ping.Status,
	at time.Time,
) (pingalert.Transition, error) {
	for attempt := 0; attempt < maxStaleAttempts; attempt++ {
		prior, err := t.states.Get(ctx, deviceID)
		if err != nil {
			if !errors.Is(err, status.StatusNoData) {
				return pingalert.TransitionNone, fmt.Errorf(
					"ping-tracker: failed to read alert state: id=%s: %w", deviceID, err)
			}

			prior = ping.AlertState{
				DeviceID:  deviceID,
				CreatedAt: at,
			}
		}

		next, transition := pingalert.Evaluate(prior, st, at, t.params.Thresholds)
		next.UpdatedAt = at

		if err := ctx.Err(); err != nil {
			return pingalert.TransitionNone, err
		}

		err = retry(ctx, t.params.Retry, func() error {
			_, err := t.states.Save(ctx, next)
			return err
		})
		if err == nil {
			return transition, nil
		}

		if !errors.Is(err, status.StatusStale) {
			return pingalert.TransitionNone, fmt.Errorf(
				"ping-tracker: failed to save alert state: id=%s: %w", deviceID, err)
		}
	}

	return pingalert.TransitionNone, fmt.Errorf(
		"ping-tracker: alert state keeps changing: id=%s: %w", deviceID, status.StatusStale)
}
