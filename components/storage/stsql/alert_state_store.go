package stsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// AlertStateStore persists alert states in the alert_state table.
type AlertStateStore struct {
	db *DB
}

// NewAlertStateStore is an initialization of AlertStateStore.
func NewAlertStateStore(db *DB) *AlertStateStore {
	return &AlertStateStore{db: db}
}

// Get returns the alert state for the device.
func (s *AlertStateStore) Get(ctx context.Context, deviceID string) (ping.AlertState, error) {
	var (
		state            ping.AlertState
		lastAlertSent    sql.NullTime
		lastRecoverySent sql.NullTime
		lastFailure      sql.NullTime
		lastSuccess      sql.NullTime
	)

	err := s.db.queryRow(ctx, `SELECT device_id, consecutive_failures, consecutive_successes,
			is_alerting, last_alert_sent, last_recovery_sent, last_failure_time,
			last_success_time, version, created_at, updated_at
		FROM alert_state WHERE device_id = ?`, deviceID).Scan(
		&state.DeviceID,
		&state.ConsecutiveFailures,
		&state.ConsecutiveSuccesses,
		&state.Alerting,
		&lastAlertSent,
		&lastRecoverySent,
		&lastFailure,
		&lastSuccess,
		&state.Version,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ping.AlertState{}, status.StatusNoData
		}

		return ping.AlertState{}, fmt.Errorf("sql-alert-state-store: select device_id=%s: %w",
			deviceID, err)
	}

	state.LastAlertSent = fromNullTime(lastAlertSent)
	state.LastRecoverySent = fromNullTime(lastRecoverySent)
	state.LastFailure = fromNullTime(lastFailure)
	state.LastSuccess = fromNullTime(lastSuccess)
	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()

	return state, nil
}

// Save inserts the state when state.Version is 0, otherwise replaces it with the version check.
func (s *AlertStateStore) Save(ctx context.Context, state ping.AlertState) (ping.AlertState, error) {
	var (
		res sql.Result
		err error
	)

	if state.Version == 0 {
		res, err = s.db.exec(ctx, `INSERT INTO alert_state (device_id, consecutive_failures,
				consecutive_successes, is_alerting, last_alert_sent, last_recovery_sent,
				last_failure_time, last_success_time, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT (device_id) DO NOTHING`,
			state.DeviceID,
			state.ConsecutiveFailures,
			state.ConsecutiveSuccesses,
			state.Alerting,
			nullTime(state.LastAlertSent),
			nullTime(state.LastRecoverySent),
			nullTime(state.LastFailure),
			nullTime(state.LastSuccess),
			state.CreatedAt.UTC(),
			state.UpdatedAt.UTC(),
		)
	} else {
		res, err = s.db.exec(ctx, `UPDATE alert_state SET
				consecutive_failures = ?,
				consecutive_successes = ?,
				is_alerting = ?,
				last_alert_sent = ?,
				last_recovery_sent = ?,
				last_failure_time = ?,
				last_success_time = ?,
				updated_at = ?,
				version = version + 1
			WHERE device_id = ? AND version = ?`,
			state.ConsecutiveFailures,
			state.ConsecutiveSuccesses,
			state.Alerting,
			nullTime(state.LastAlertSent),
			nullTime(state.LastRecoverySent),
			nullTime(state.LastFailure),
			nullTime(state.LastSuccess),
			state.UpdatedAt.UTC(),
			state.DeviceID,
			state.Version,
		)
	}
	if err != nil {
		return ping.AlertState{}, fmt.Errorf("sql-alert-state-store: save device_id=%s: %w",
			state.DeviceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return ping.AlertState{}, err
	}

	if n == 0 {
		return ping.AlertState{}, fmt.Errorf("sql-alert-state-store: device_id=%s version=%d: %w",
			state.DeviceID, state.Version, status.StatusStale)
	}

	state.Version++

	return state, nil
}

// Delete removes the state.
func (s *AlertStateStore) Delete(ctx context.Context, deviceID string) error {
	if _, err := s.db.exec(ctx,
		`DELETE FROM alert_state WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("sql-alert-state-store: delete device_id=%s: %w", deviceID, err)
	}

	return nil
}
