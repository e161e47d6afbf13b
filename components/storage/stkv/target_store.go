package stkv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/storage/stcore"
)

// TargetStore persists targets as JSON blobs keyed by device ID.
type TargetStore struct {
	db stcore.DB
}

// NewTargetStore is an initialization of TargetStore.
func NewTargetStore(db stcore.DB) *TargetStore {
	return &TargetStore{db: db}
}

// Create persists a new target.
func (s *TargetStore) Create(_ context.Context, target ping.Target) error {
	return s.db.Update(target.DeviceID, func(_ stcore.Blob, exists bool) (stcore.Blob, error) {
		if exists {
			return stcore.Blob{}, fmt.Errorf("kv-target-store: device_id=%s: %w",
				target.DeviceID, status.StatusConflict)
		}

		target.Version = 1

		return encodeBlob(target)
	})
}

// Get returns the target for the device.
func (s *TargetStore) Get(_ context.Context, deviceID string) (ping.Target, error) {
	blob, err := s.db.Read(deviceID)
	if err != nil {
		return ping.Target{}, err
	}

	var target ping.Target
	if err := decodeBlob(blob, &target); err != nil {
		return ping.Target{}, err
	}

	return target, nil
}

// Update replaces the target if the stored version matches.
func (s *TargetStore) Update(_ context.Context, target ping.Target) (ping.Target, error) {
	err := s.db.Update(target.DeviceID, func(blob stcore.Blob, exists bool) (stcore.Blob, error) {
		if !exists {
			return stcore.Blob{}, fmt.Errorf("kv-target-store: device_id=%s: %w",
				target.DeviceID, status.StatusNoData)
		}

		var stored ping.Target
		if err := decodeBlob(blob, &stored); err != nil {
			return stcore.Blob{}, err
		}

		if stored.Version != target.Version {
			return stcore.Blob{}, fmt.Errorf(
				"kv-target-store: device_id=%s stored=%d got=%d: %w",
				target.DeviceID, stored.Version, target.Version, status.StatusStale)
		}

		target.Version++

		return encodeBlob(target)
	})
	if err != nil {
		return ping.Target{}, err
	}

	return target, nil
}

// Delete removes the target.
func (s *TargetStore) Delete(_ context.Context, deviceID string) error {
	return s.db.Remove(deviceID)
}

// List returns all targets ordered by device ID.
func (s *TargetStore) List(_ context.Context) ([]ping.Target, error) {
	var targets []ping.Target

	err := s.db.ForEach(func(key string, blob stcore.Blob) error {
		var target ping.Target
		if err := decodeBlob(blob, &target); err != nil {
			return fmt.Errorf("kv-target-store: key=%s: %w", key, err)
		}

		targets = append(targets, target)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return targets, nil
}

func encodeBlob(v any) (stcore.Blob, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return stcore.Blob{}, err
	}

	return stcore.Blob{Data: data}, nil
}

func decodeBlob(blob stcore.Blob, v any) error {
	return json.Unmarshal(blob.Data, v)
}
