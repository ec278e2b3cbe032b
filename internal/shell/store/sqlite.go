package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/stagehand/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteLedger
// =============================================================================

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sqlx.DB
}

// NewSQLiteLedger opens the ledger database and runs migrations.
func NewSQLiteLedger(dsn string) (*SQLiteLedger, error) {
	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, newStoreError("NewSQLiteLedger", "", "", err.Error(), ErrConnectionFailed)
	}

	// SQLite allows one writer; this also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, newStoreError("NewSQLiteLedger", "", "", err.Error(), ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, newStoreError("NewSQLiteLedger", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteLedger{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

// =============================================================================
// Release Operations
// =============================================================================

// releaseRow represents a release row in the database.
type releaseRow struct {
	Seq          int64  `db:"seq"`
	ID           string `db:"id"`
	Hostname     string `db:"hostname"`
	Stage        string `db:"stage"`
	Version      string `db:"version"`
	Status       string `db:"status"`
	ErrorMessage string `db:"error_message"`
	CreatedAt    string `db:"created_at"`
}

func (s *SQLiteLedger) RecordRelease(ctx context.Context, record *ReleaseRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if !record.Stage.IsValid() {
		return newStoreError("RecordRelease", record.Hostname, record.ID.String(), fmt.Sprintf("invalid stage %q", record.Stage), ErrInvalidData)
	}
	if !record.Status.IsValid() {
		return newStoreError("RecordRelease", record.Hostname, record.ID.String(), fmt.Sprintf("invalid status %q", record.Status), ErrInvalidData)
	}
	if record.Hostname == "" || record.Version == "" {
		return newStoreError("RecordRelease", record.Hostname, record.ID.String(), "hostname and version are required", ErrInvalidData)
	}

	query := `
		INSERT INTO releases (
			id, hostname, stage, version, status, error_message, created_at
		) VALUES (
			:id, :hostname, :stage, :version, :status, :error_message, :created_at
		)`

	row := map[string]any{
		"id":            record.ID.String(),
		"hostname":      record.Hostname,
		"stage":         string(record.Stage),
		"version":       record.Version,
		"status":        string(record.Status),
		"error_message": record.Error,
		"created_at":    record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: releases.id") {
			return newStoreError("RecordRelease", record.Hostname, record.ID.String(), "release already recorded", ErrDuplicateID)
		}
		return newStoreError("RecordRelease", record.Hostname, record.ID.String(), err.Error(), err)
	}

	return nil
}

func (s *SQLiteLedger) CurrentRelease(ctx context.Context, hostname string, stage domain.Stage) (*ReleaseRecord, error) {
	var row releaseRow
	query := `
		SELECT * FROM releases
		WHERE hostname = ? AND stage = ? AND status = ?
		ORDER BY seq DESC
		LIMIT 1`

	if err := s.db.GetContext(ctx, &row, query, hostname, string(stage), string(ReleaseStatusPrepared)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newStoreError("CurrentRelease", hostname, "", "no prepared release in stage "+string(stage), ErrNotFound)
		}
		return nil, newStoreError("CurrentRelease", hostname, "", err.Error(), err)
	}

	record, err := rowToRelease(row)
	if err != nil {
		return nil, newStoreError("CurrentRelease", hostname, row.ID, err.Error(), ErrInvalidData)
	}
	return record, nil
}

func (s *SQLiteLedger) ListReleases(ctx context.Context, hostname string, limit int) ([]ReleaseRecord, error) {
	var rows []releaseRow
	query := `
		SELECT * FROM releases
		WHERE hostname = ?
		ORDER BY seq DESC
		LIMIT ?`

	if err := s.db.SelectContext(ctx, &rows, query, hostname, normalizeLimit(limit)); err != nil {
		return nil, newStoreError("ListReleases", hostname, "", err.Error(), err)
	}

	records := make([]ReleaseRecord, 0, len(rows))
	for _, row := range rows {
		record, err := rowToRelease(row)
		if err != nil {
			return nil, newStoreError("ListReleases", hostname, row.ID, err.Error(), ErrInvalidData)
		}
		records = append(records, *record)
	}
	return records, nil
}

func rowToRelease(row releaseRow) (*ReleaseRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &ReleaseRecord{
		ID:        id,
		Hostname:  row.Hostname,
		Stage:     domain.Stage(row.Stage),
		Version:   row.Version,
		Status:    ReleaseStatus(row.Status),
		Error:     row.ErrorMessage,
		CreatedAt: createdAt,
	}, nil
}
