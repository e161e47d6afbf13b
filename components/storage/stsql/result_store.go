package stsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/open-control-systems/ping-monitor/components/ping"
)

// ResultStore persists results in the ping_result table.
type ResultStore struct {
	db *DB
}

// NewResultStore is an initialization of ResultStore.
func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{db: db}
}

// Append adds a single result.
func (s *ResultStore) Append(ctx context.Context, result ping.Result) error {
	var rtt sql.NullFloat64
	if result.RTT != nil {
		rtt = sql.NullFloat64{
			Float64: float64(*result.RTT) / float64(time.Millisecond),
			Valid:   true,
		}
	}

	if _, err := s.db.exec(ctx, `INSERT INTO ping_result ("time", device_id, round_trip_time, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT ("time", device_id) DO NOTHING`,
		result.Time.UTC(),
		result.DeviceID,
		rtt,
		string(result.Status),
	); err != nil {
		return fmt.Errorf("sql-result-store: insert device_id=%s: %w", result.DeviceID, err)
	}

	return nil
}

// List returns up to limit most recent results for the device, newest first.
//
// Remarks:
//   - limit <= 0 returns all results.
func (s *ResultStore) List(ctx context.Context, deviceID string, limit int) ([]ping.Result, error) {
	query := `SELECT "time", device_id, round_trip_time, status FROM ping_result
		WHERE device_id = ? ORDER BY "time" DESC`
	args := []any{deviceID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql-result-store: list device_id=%s: %w", deviceID, err)
	}
	defer rows.Close() //nolint:errcheck

	var results []ping.Result

	for rows.Next() {
		var (
			result ping.Result
			rtt    sql.NullFloat64
			st     string
		)

		if err := rows.Scan(&result.Time, &result.DeviceID, &rtt, &st); err != nil {
			return nil, fmt.Errorf("sql-result-store: scan: %w", err)
		}

		result.Time = result.Time.UTC()

		if result.Status, err = ping.ParseStatus(st); err != nil {
			return nil, fmt.Errorf("sql-result-store: %w", err)
		}

		if rtt.Valid {
			d := time.Duration(rtt.Float64 * float64(time.Millisecond))
			result.RTT = &d
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

// DeleteDevice removes all results of the device.
func (s *ResultStore) DeleteDevice(ctx context.Context, deviceID string) error {
	if _, err := s.db.exec(ctx,
		`DELETE FROM ping_result WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("sql-result-store: delete device_id=%s: %w", deviceID, err)
	}

	return nil
}
