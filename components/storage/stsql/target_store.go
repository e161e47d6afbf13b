package stsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

const targetColumns = `device_id, device_name, ip_address, hostname, is_monitored,
	ping_interval_seconds, version, created_at, updated_at`

// TargetStore persists targets in the ping_target table.
type TargetStore struct {
	db *DB
}

// NewTargetStore is an initialization of TargetStore.
func NewTargetStore(db *DB) *TargetStore {
	return &TargetStore{db: db}
}

// Create persists a new target.
func (s *TargetStore) Create(ctx context.Context, target ping.Target) error {
	res, err := s.db.exec(ctx, `INSERT INTO ping_target (`+targetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (device_id) DO NOTHING`,
		target.DeviceID,
		target.Name,
		target.Address.IPAddress,
		target.Address.Hostname,
		target.Monitored,
		target.IntervalSeconds,
		target.CreatedAt.UTC(),
		target.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sql-target-store: insert device_id=%s: %w", target.DeviceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("sql-target-store: device_id=%s: %w",
			target.DeviceID, status.StatusConflict)
	}

	return nil
}

// Get returns the target for the device.
func (s *TargetStore) Get(ctx context.Context, deviceID string) (ping.Target, error) {
	row := s.db.queryRow(ctx,
		`SELECT `+targetColumns+` FROM ping_target WHERE device_id = ?`, deviceID)

	target, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ping.Target{}, status.StatusNoData
		}

		return ping.Target{}, fmt.Errorf("sql-target-store: select device_id=%s: %w",
			deviceID, err)
	}

	return target, nil
}

// Update replaces the target if the stored version matches.
func (s *TargetStore) Update(ctx context.Context, target ping.Target) (ping.Target, error) {
	res, err := s.db.exec(ctx, `UPDATE ping_target SET
			device_name = ?,
			ip_address = ?,
			hostname = ?,
			is_monitored = ?,
			ping_interval_seconds = ?,
			updated_at = ?,
			version = version + 1
		WHERE device_id = ? AND version = ?`,
		target.Name,
		target.Address.IPAddress,
		target.Address.Hostname,
		target.Monitored,
		target.IntervalSeconds,
		target.UpdatedAt.UTC(),
		target.DeviceID,
		target.Version,
	)
	if err != nil {
		return ping.Target{}, fmt.Errorf("sql-target-store: update device_id=%s: %w",
			target.DeviceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return ping.Target{}, err
	}

	if n == 0 {
		if _, err := s.Get(ctx, target.DeviceID); err != nil {
			return ping.Target{}, err
		}

		return ping.Target{}, fmt.Errorf("sql-target-store: device_id=%s version=%d: %w",
			target.DeviceID, target.Version, status.StatusStale)
	}

	target.Version++

	return target, nil
}

// Delete removes the target.
func (s *TargetStore) Delete(ctx context.Context, deviceID string) error {
	if _, err := s.db.exec(ctx,
		`DELETE FROM ping_target WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("sql-target-store: delete device_id=%s: %w", deviceID, err)
	}

	return nil
}

// List returns all targets ordered by device ID.
func (s *TargetStore) List(ctx context.Context) ([]ping.Target, error) {
	rows, err := s.db.query(ctx,
		`SELECT `+targetColumns+` FROM ping_target ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("sql-target-store: list: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var targets []ping.Target

	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("sql-target-store: scan: %w", err)
		}

		targets = append(targets, target)
	}

	return targets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (ping.Target, error) {
	var target ping.Target

	if err := row.Scan(
		&target.DeviceID,
		&target.Name,
		&target.Address.IPAddress,
		&target.Address.Hostname,
		&target.Monitored,
		&target.IntervalSeconds,
		&target.Version,
		&target.CreatedAt,
		&target.UpdatedAt,
	); err != nil {
		return ping.Target{}, err
	}

	target.CreatedAt = target.CreatedAt.UTC()
	target.UpdatedAt = target.UpdatedAt.UTC()

	return target, nil
}
