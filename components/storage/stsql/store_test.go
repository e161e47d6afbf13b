package stsql

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/status"
	"github.com/open-control-systems/ping-monitor/components/storage/sttest"
)

func openTestSQLite(t *testing.T) *DB {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "ping.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, db.Migrate(context.Background()))

	// Migration is idempotent.
	require.NoError(t, db.Migrate(context.Background()))

	return db
}

func setupMockPostgres(t *testing.T) (*DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return NewDB(sqlDB, DialectPostgres), mock
}

func TestSQLiteTargetStore(t *testing.T) {
	sttest.RunTargetStoreChecks(t, NewTargetStore(openTestSQLite(t)))
}

func TestSQLiteResultStore(t *testing.T) {
	sttest.RunResultStoreChecks(t, NewResultStore(openTestSQLite(t)))
}

func TestSQLiteAlertStateStore(t *testing.T) {
	sttest.RunAlertStateStoreChecks(t, NewAlertStateStore(openTestSQLite(t)))
}

func TestSQLiteStoresCleanup(t *testing.T) {
	db := openTestSQLite(t)

	sttest.RunCleanupChecks(t, sttest.Stores{
		Targets:     NewTargetStore(db),
		Results:     NewResultStore(db),
		AlertStates: NewAlertStateStore(db),
	})
}

func TestRebind(t *testing.T) {
	pg := NewDB(nil, DialectPostgres)
	assert.Equal(t,
		"UPDATE t SET a = $1 WHERE b = $2 AND c = $3",
		pg.rebind("UPDATE t SET a = ? WHERE b = ? AND c = ?"))

	lite := NewDB(nil, DialectSQLite)
	assert.Equal(t, "SELECT ? FROM t", lite.rebind("SELECT ? FROM t"))
}

func TestPostgresTargetUpdateStale(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewTargetStore(db)

	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE ping_target SET`)).
		WithArgs("printer", "192.168.4.3", "", true, 30, sqlmock.AnyArg(), "0xA", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{
		"device_id", "device_name", "ip_address", "hostname", "is_monitored",
		"ping_interval_seconds", "version", "created_at", "updated_at",
	}).AddRow("0xA", "printer", "192.168.4.2", "", true, 30, int64(2), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ping_target WHERE device_id = $1`)).
		WithArgs("0xA").
		WillReturnRows(rows)

	_, err := store.Update(context.Background(), ping.Target{
		DeviceID:        "0xA",
		Name:            "printer",
		Address:         ping.Address{IPAddress: "192.168.4.3"},
		Monitored:       true,
		IntervalSeconds: 30,
		UpdatedAt:       now,
		Version:         1,
	})
	require.ErrorIs(t, err, status.StatusStale)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTargetUpdateMissing(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewTargetStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE ping_target SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ping_target WHERE device_id = $1`)).
		WithArgs("0xA").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}))

	_, err := store.Update(context.Background(), ping.Target{DeviceID: "0xA", Version: 1})
	require.ErrorIs(t, err, status.StatusNoData)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTargetCreateConflict(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewTargetStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (device_id) DO NOTHING`)).
		WithArgs("0xA", "", "10.0.0.1", "", false, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Create(context.Background(), ping.Target{
		DeviceID: "0xA",
		Address:  ping.Address{IPAddress: "10.0.0.1"},
	})
	require.ErrorIs(t, err, status.StatusConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAlertStateSaveInsertRace(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewAlertStateStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO alert_state`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Save(context.Background(), ping.AlertState{
		DeviceID:            "0xA",
		ConsecutiveFailures: 1,
	})
	require.ErrorIs(t, err, status.StatusStale)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAlertStateSaveUpdate(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewAlertStateStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE device_id = $9 AND version = $10`)).
		WithArgs(3, 0, true,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), "0xA", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Save(context.Background(), ping.AlertState{
		DeviceID:            "0xA",
		ConsecutiveFailures: 3,
		Alerting:            true,
		LastAlertSent:       time.Now(),
		Version:             4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.Version)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResultListLimit(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewResultStore(db)

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"time", "device_id", "round_trip_time", "status"}).
		AddRow(now, "0xA", 12.5, "success").
		AddRow(now.Add(-time.Second), "0xA", nil, "timeout")

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "time" DESC LIMIT $2`)).
		WithArgs("0xA", 2).
		WillReturnRows(rows)

	results, err := store.List(context.Background(), "0xA", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NotNil(t, results[0].RTT)
	assert.Equal(t, time.Microsecond*12500, *results[0].RTT)
	assert.Equal(t, ping.StatusSuccess, results[0].Status)

	assert.Nil(t, results[1].RTT)
	assert.Equal(t, ping.StatusTimeout, results[1].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResultListUnknownStatus(t *testing.T) {
	db, mock := setupMockPostgres(t)
	store := NewResultStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ping_result`)).
		WillReturnRows(sqlmock.NewRows([]string{"time", "device_id", "round_trip_time", "status"}).
			AddRow(time.Now(), "0xA", nil, "exploded"))

	_, err := store.List(context.Background(), "0xA", 0)
	require.Error(t, err)
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "")
	require.ErrorIs(t, err, status.StatusNotSupported)
}
