package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"shanyrakkit/core"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for SQL configuration.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		DSN:             "",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements engine.Storage over a relational database via sqlx.
//
// The *sqlx.DB handle is long-lived and pooled; it is owned by the process
// and shared across requests, never torn down per call. Point and member
// adjustments run as single UPDATE increment expressions so concurrent
// writers against the same row cannot lose updates.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a pooled connection and verifies it.
func New(cfg Config) (*Store, error) {
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &Store{db: db, driver: cfg.Driver}, nil
}

// NewWithDB creates a Store using an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS shanyraks (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	color      TEXT NOT NULL,
	points     BIGINT NOT NULL DEFAULT 0,
	members    BIGINT NOT NULL DEFAULT 0,
	seq        BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const schemaMySQL = `
CREATE TABLE IF NOT EXISTS shanyraks (
	id         VARCHAR(36) PRIMARY KEY,
	name       VARCHAR(255) NOT NULL UNIQUE,
	color      VARCHAR(64) NOT NULL,
	points     BIGINT NOT NULL DEFAULT 0,
	members    BIGINT NOT NULL DEFAULT 0,
	seq        BIGINT NOT NULL AUTO_INCREMENT,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	UNIQUE KEY (seq)
)`

// EnsureSchema creates the shanyraks table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := schemaPostgres
	if s.driver == DriverMySQL {
		ddl = schemaMySQL
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return core.Internal("failed to ensure schema", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, name, color string) (core.Shanyrak, error) {
	id := core.ShanyrakID(uuid.NewString())
	now := time.Now().UTC()
	query := s.db.Rebind(`INSERT INTO shanyraks (id, name, color, points, members, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, id, name, color, now, now); err != nil {
		if isUniqueViolation(err) {
			return core.Shanyrak{}, core.Conflictf("shanyrak %q already exists", name)
		}
		return core.Shanyrak{}, core.Internal("failed to insert shanyrak", err)
	}
	return s.get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id core.ShanyrakID) (core.Shanyrak, error) {
	return s.get(ctx, id)
}

func (s *Store) get(ctx context.Context, id core.ShanyrakID) (core.Shanyrak, error) {
	var row core.Shanyrak
	query := s.db.Rebind(`SELECT id, name, color, points, members, seq, created_at, updated_at
		FROM shanyraks WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
		}
		return core.Shanyrak{}, core.Internal("failed to get shanyrak", err)
	}
	return row, nil
}

func (s *Store) List(ctx context.Context) ([]core.Shanyrak, error) {
	var rows []core.Shanyrak
	err := s.db.SelectContext(ctx, &rows, `SELECT id, name, color, points, members, seq, created_at, updated_at
		FROM shanyraks ORDER BY seq ASC`)
	if err != nil {
		return nil, core.Internal("failed to list shanyraks", err)
	}
	return rows, nil
}

func (s *Store) ListByPoints(ctx context.Context) ([]core.Shanyrak, error) {
	var rows []core.Shanyrak
	err := s.db.SelectContext(ctx, &rows, `SELECT id, name, color, points, members, seq, created_at, updated_at
		FROM shanyraks ORDER BY points DESC, seq ASC`)
	if err != nil {
		return nil, core.Internal("failed to list shanyraks by points", err)
	}
	return rows, nil
}

// AddPoints applies the delta inside the database so concurrent awards
// against the same row serialize on the row lock.
func (s *Store) AddPoints(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	query := s.db.Rebind(`UPDATE shanyraks SET points = points + ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		return core.Shanyrak{}, core.Internal("failed to add points", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Shanyrak{}, core.Internal("failed to read update result", err)
	}
	if affected == 0 {
		return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
	}
	return s.get(ctx, id)
}

// AdjustMembers applies the delta conditionally: the WHERE clause rejects
// adjustments that would drive the count below zero, leaving the row intact.
func (s *Store) AdjustMembers(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	query := s.db.Rebind(`UPDATE shanyraks SET members = members + ?, updated_at = ?
		WHERE id = ? AND members + ? >= 0`)
	res, err := s.db.ExecContext(ctx, query, delta, time.Now().UTC(), id, delta)
	if err != nil {
		return core.Shanyrak{}, core.Internal("failed to adjust members", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Shanyrak{}, core.Internal("failed to read update result", err)
	}
	if affected == 0 {
		// distinguish a missing row from a rejected negative adjustment
		row, err := s.get(ctx, id)
		if err != nil {
			return core.Shanyrak{}, err
		}
		return core.Shanyrak{}, core.Invalidf("members cannot go below 0 (current %d, delta %d)", row.Members, delta)
	}
	return s.get(ctx, id)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
