package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"consultdesk/internal/domain"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the embedded sqlite store used for local development and tests.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var _ domain.Store = (*DB)(nil)

// NewDB opens (and bootstraps) the sqlite database at path. ":memory:" is
// accepted for tests.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var dsn string
	if path == ":memory:" {
		// Named per instance so parallel tests never share a database.
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path + "?_busy_timeout=5000"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS consultations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			fullname TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			consultation_type TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL DEFAULT '',
			detailed_message TEXT NOT NULL DEFAULT '',
			has_paid BOOLEAN NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			slot_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS availability (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			is_booked BOOLEAN NOT NULL DEFAULT 0,
			consultation_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stotras (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			symptoms TEXT NOT NULL DEFAULT '[]',
			benefits TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_consultations_user_id ON consultations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_consultations_created_at ON consultations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_availability_date ON availability(date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// notFound maps sql.ErrNoRows onto the store-agnostic sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// requireAffected turns a zero-row update into ErrNotFound.
func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
