package stsql

func schema(dialect Dialect) []string {
	rttType := "DOUBLE PRECISION"
	if dialect == DialectSQLite {
		rttType = "REAL"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS ping_target (
			device_id TEXT PRIMARY KEY,
			device_name TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			hostname TEXT NOT NULL DEFAULT '',
			is_monitored BOOLEAN NOT NULL DEFAULT FALSE,
			ping_interval_seconds INTEGER NOT NULL DEFAULT 0,
			version BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ping_result (
			"time" TIMESTAMP NOT NULL,
			device_id TEXT NOT NULL,
			round_trip_time ` + rttType + `,
			status TEXT NOT NULL,
			PRIMARY KEY ("time", device_id)
		)`,
		`CREATE INDEX IF NOT EXISTS ping_result_device_time
			ON ping_result (device_id, "time" DESC)`,
		`CREATE TABLE IF NOT EXISTS alert_state (
			device_id TEXT PRIMARY KEY,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			consecutive_successes INTEGER NOT NULL DEFAULT 0,
			is_alerting BOOLEAN NOT NULL DEFAULT FALSE,
			last_alert_sent TIMESTAMP,
			last_recovery_sent TIMESTAMP,
			last_failure_time TIMESTAMP,
			last_success_time TIMESTAMP,
			version BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
}
