package stkv

import (
	"context"
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/storage/stcore"
)

// ResultStore persists results as JSON blobs keyed by device ID and time.
//
// Remarks:
//   - Keys are "<device_id>\x00<zero padded unix nanoseconds>", so results of a single
//     device are stored contiguously in time order.
type ResultStore struct {
	db stcore.DB
}

// NewResultStore is an initialization of ResultStore.
func NewResultStore(db stcore.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Append adds a single result.
func (s *ResultStore) Append(_ context.Context, result ping.Result) error {
	blob, err := encodeBlob(result)
	if err != nil {
		return err
	}

	return s.db.Write(resultKey(result), blob)
}

// List returns up to limit most recent results for the device, newest first.
func (s *ResultStore) List(_ context.Context, deviceID string, limit int) ([]ping.Result, error) {
	var results []ping.Result

	err := s.db.ForEachPrefix(resultPrefix(deviceID), true,
		func(key string, blob stcore.Blob) error {
			if limit > 0 && len(results) >= limit {
				return stcore.ErrStop
			}

			var result ping.Result
			if err := decodeBlob(blob, &result); err != nil {
				return fmt.Errorf("kv-result-store: key=%q: %w", key, err)
			}

			results = append(results, result)

			return nil
		})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteDevice removes all results of the device.
func (s *ResultStore) DeleteDevice(_ context.Context, deviceID string) error {
	return s.db.RemovePrefix(resultPrefix(deviceID))
}

func resultPrefix(deviceID string) string {
	return deviceID + "\x00"
}

func resultKey(result ping.Result) string {
	return fmt.Sprintf("%s%020d", resultPrefix(result.DeviceID), result.Time.UnixNano())
}
