// Package history stores finished scans in PostgreSQL so earlier results can be
// listed, summarized, reported and visualized again.
package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/metrics"
)

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultListLimit       = 50
	maxListLimit           = 500
)

// Scan outcomes recorded in the status column.
const (
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"-"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultConfig returns the default database configuration.
// Database name and credentials must be configured explicitly.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
	}
}

// DSN renders the lib/pq key=value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// ScanRecord is one finished scan.
type ScanRecord struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Target        string         `db:"target" json:"target"`
	Command       string         `db:"command" json:"command"`
	Status        string         `db:"status" json:"status"`
	ErrorMessage  sql.NullString `db:"error_message" json:"-"`
	XMLOutput     string         `db:"xml_output" json:"-"`
	HostCount     int            `db:"host_count" json:"host_count"`
	OpenPortCount int            `db:"open_port_count" json:"open_port_count"`
	StartedAt     time.Time      `db:"started_at" json:"started_at"`
	FinishedAt    time.Time      `db:"finished_at" json:"finished_at"`
}

// Duration is the wall time the scan took.
func (r *ScanRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists scan records.
type Store interface {
	Record(ctx context.Context, rec *ScanRecord) error
	List(ctx context.Context, limit int) ([]*ScanRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*ScanRecord, error)
	Close() error
}

// DB is the PostgreSQL backed Store.
type DB struct {
	*sqlx.DB
}

// Connect establishes a connection to PostgreSQL.
// Returned errors never include the DSN.
func Connect(ctx context.Context, cfg *Config) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseConnection, "Failed to connect to history database", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{DB: conn}, nil
}

// ConnectAndMigrate connects and applies pending migrations.
func ConnectAndMigrate(ctx context.Context, cfg *Config) (*DB, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := NewMigrator(db.DB).Up(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.CodeDatabaseMigration, "Failed to migrate history database", err)
	}

	return db, nil
}

// NewDB wraps an existing sqlx handle.
func NewDB(conn *sqlx.DB) *DB {
	return &DB{DB: conn}
}

// sanitizeDBError hides driver details from API clients; the cause is kept for logs.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.New(errors.CodeNotFound, "Scan not found").WithOperation(operation)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return errors.Wrap(errors.CodeDatabaseConnection, "History database unavailable", err).WithOperation(operation)
	}

	return errors.Wrap(errors.CodeDatabaseQuery, fmt.Sprintf("History operation failed: %s", operation), err).
		WithOperation(operation)
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordHistoryQuery(operation, time.Since(start), *err == nil)
}

// Record inserts a finished scan. A zero ID is replaced with a new UUID.
func (db *DB) Record(ctx context.Context, rec *ScanRecord) (err error) {
	defer observe("record", time.Now(), &err)

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO scan_history (id, target, command, status, error_message, xml_output,
			host_count, open_port_count, started_at, finished_at)
		VALUES (:id, :target, :command, :status, :error_message, :xml_output,
			:host_count, :open_port_count, :started_at, :finished_at)`

	if _, err := db.NamedExecContext(ctx, query, rec); err != nil {
		return sanitizeDBError("record scan", err)
	}
	return nil
}

// List returns the most recent scans without their XML payload.
func (db *DB) List(ctx context.Context, limit int) (_ []*ScanRecord, err error) {
	defer observe("list", time.Now(), &err)

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, target, command, status, error_message, '' AS xml_output,
			host_count, open_port_count, started_at, finished_at
		FROM scan_history
		ORDER BY started_at DESC
		LIMIT $1`

	var records []*ScanRecord
	if err := db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, sanitizeDBError("list scans", err)
	}
	return records, nil
}

// Get returns one scan including its XML output.
func (db *DB) Get(ctx context.Context, id uuid.UUID) (_ *ScanRecord, err error) {
	defer observe("get", time.Now(), &err)

	query := `
		SELECT id, target, command, status, error_message, xml_output,
			host_count, open_port_count, started_at, finished_at
		FROM scan_history
		WHERE id = $1`

	var rec ScanRecord
	if err := db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, sanitizeDBError("get scan", err)
	}
	return &rec, nil
}
