package pingsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingtarget"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// Lifecycle is the subset of target lifecycle commands driven by the directory.
type Lifecycle interface {
	Create(ctx context.Context, params pingtarget.CreateParams) (ping.Target, error)
	Get(ctx context.Context, deviceID string) (pingtarget.Status, error)
	StartMonitoring(ctx context.Context, deviceID string) error
	UpdateName(ctx context.Context, deviceID string, name string) error
	UpdateAddress(ctx context.Context, deviceID string, addr ping.Address) error
	Delete(ctx context.Context, deviceID string) error
}

// SyncerParams configures the directory synchronization.
type SyncerParams struct {
	// AutoMonitor - start monitoring devices as soon as they appear in the directory.
	AutoMonitor bool
}

// Syncer keeps targets in sync with the device directory.
type Syncer struct {
	lifecycle Lifecycle
	params    SyncerParams
}

// NewSyncer is an initialization of Syncer.
func NewSyncer(lifecycle Lifecycle, params SyncerParams) *Syncer {
	return &Syncer{
		lifecycle: lifecycle,
		params:    params,
	}
}

// HandleDeviceEvent applies a single directory change.
//
// Remarks:
//   - Created events without an address are ignored.
//   - An update for an unknown device is handled as creation.
func (s *Syncer) HandleDeviceEvent(ctx context.Context, ev DeviceEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	switch ev.Type {
	case DeviceCreated:
		return s.handleCreated(ctx, ev)

	case DeviceUpdated:
		return s.handleUpdated(ctx, ev)

	default:
		if err := s.lifecycle.Delete(ctx, ev.DeviceID); err != nil {
			return fmt.Errorf("ping-sync: failed to delete: id=%s: %w", ev.DeviceID, err)
		}

		return nil
	}
}

func (s *Syncer) handleCreated(ctx context.Context, ev DeviceEvent) error {
	if ev.Address().Empty() {
		core.LogWrn.Warnf("ping-sync: ignore device without address: id=%s", ev.DeviceID)

		return nil
	}

	_, err := s.lifecycle.Create(ctx, pingtarget.CreateParams{
		DeviceID:        ev.DeviceID,
		Name:            ev.Name,
		Address:         ev.Address(),
		IntervalSeconds: ev.IntervalSeconds,
	})
	if err != nil && !errors.Is(err, status.StatusConflict) {
		return fmt.Errorf("ping-sync: failed to create: id=%s: %w", ev.DeviceID, err)
	}

	if !s.params.AutoMonitor {
		return nil
	}

	if err := s.lifecycle.StartMonitoring(ctx, ev.DeviceID); err != nil {
		return fmt.Errorf("ping-sync: failed to start monitoring: id=%s: %w", ev.DeviceID, err)
	}

	return nil
}

func (s *Syncer) handleUpdated(ctx context.Context, ev DeviceEvent) error {
	st, err := s.lifecycle.Get(ctx, ev.DeviceID)
	if err != nil {
		if errors.Is(err, status.StatusNoData) {
			return s.handleCreated(ctx, ev)
		}

		return err
	}

	if ev.Name != "" && ev.Name != st.Target.Name {
		if err := s.lifecycle.UpdateName(ctx, ev.DeviceID, ev.Name); err != nil {
			return fmt.Errorf("ping-sync: failed to update name: id=%s: %w", ev.DeviceID, err)
		}
	}

	if addr := ev.Address(); !addr.Empty() && addr != st.Target.Address {
		if err := s.lifecycle.UpdateAddress(ctx, ev.DeviceID, addr); err != nil {
			return fmt.Errorf("ping-sync: failed to update address: id=%s: %w",
				ev.DeviceID, err)
		}
	}

	return nil
}
