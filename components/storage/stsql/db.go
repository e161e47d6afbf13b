package stsql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	// Register SQL drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// Dialect identifies the SQL flavor.
type Dialect string

const (
	// DialectPostgres - PostgreSQL (or TimescaleDB) via lib/pq.
	DialectPostgres Dialect = "postgres"

	// DialectSQLite - embedded SQLite via mattn/go-sqlite3.
	DialectSQLite Dialect = "sqlite"
)

// DB is a thin wrapper over database/sql aware of the placeholder style.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// NewDB is an initialization of DB.
func NewDB(db *sql.DB, dialect Dialect) *DB {
	return &DB{
		db:      db,
		dialect: dialect,
	}
}

// OpenSQLite opens the SQLite database, the parent directory is created if missing.
func OpenSQLite(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sql-db: mkdir data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return NewDB(db, DialectSQLite), nil
}

// OpenPostgres opens the PostgreSQL connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("sql-db: ping postgres: %w", err)
	}

	return NewDB(db, DialectPostgres), nil
}

// Open opens the database for the dialect.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case DialectSQLite:
		return OpenSQLite(dsn)
	case DialectPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("sql-db: unknown dialect=%s: %w", dialect,
			status.StatusNotSupported)
	}
}

// Dialect returns the SQL flavor.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates missing tables.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema(d.dialect) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sql-db: migrate: %w", err)
		}
	}

	return nil
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.rebind(query), args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.rebind(query), args...)
}

// rebind replaces `?` placeholders with `$N` for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}
