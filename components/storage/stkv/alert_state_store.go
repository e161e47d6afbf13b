package stkv

import (
	"context"
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/storage/stcore"
)

// AlertStateStore persists alert states as JSON blobs keyed by device ID.
type AlertStateStore struct {
	db stcore.DB
}

// NewAlertStateStore is an initialization of AlertStateStore.
func NewAlertStateStore(db stcore.DB) *AlertStateStore {
	return &AlertStateStore{db: db}
}

// Get returns the alert state for the device.
func (s *AlertStateStore) Get(_ context.Context, deviceID string) (ping.AlertState, error) {
	blob, err := s.db.Read(deviceID)
	if err != nil {
		return ping.AlertState{}, err
	}

	var state ping.AlertState
	if err := decodeBlob(blob, &state); err != nil {
		return ping.AlertState{}, err
	}

	return state, nil
}

// Save inserts or replaces the state with the version check.
func (s *AlertStateStore) Save(_ context.Context, state ping.AlertState) (ping.AlertState, error) {
	err := s.db.Update(state.DeviceID, func(blob stcore.Blob, exists bool) (stcore.Blob, error) {
		var storedVersion int64

		if exists {
			var stored ping.AlertState
			if err := decodeBlob(blob, &stored); err != nil {
				return stcore.Blob{}, err
			}

			storedVersion = stored.Version
		}

		if storedVersion != state.Version {
			return stcore.Blob{}, fmt.Errorf(
				"kv-alert-state-store: device_id=%s stored=%d got=%d: %w",
				state.DeviceID, storedVersion, state.Version, status.StatusStale)
		}

		state.Version++

		return encodeBlob(state)
	})
	if err != nil {
		return ping.AlertState{}, err
	}

	return state, nil
}

// Delete removes the state.
func (s *AlertStateStore) Delete(_ context.Context, deviceID string) error {
	return s.db.Remove(deviceID)
}
