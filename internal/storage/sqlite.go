// Package storage is the local SQLite store for applications and the
// knowledge index.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonathan/job-assistant/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DatabaseFile is the SQLite file created inside the data directory.
const DatabaseFile = "job_assistant.db"

var _ ApplicationStore = (*Store)(nil)

// Store wraps a SQLite database with methods for applications and the knowledge index.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, DatabaseFile)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection: :memory: databases are per-connection, and writers never contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that have not been recorded yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Applications ---

const applicationColumns = `id, created_at, run_id, job_url, job_title, company, location, industry, seniority,
	match_score, recommendation, confidence, cover_letter, application_email,
	job_analysis_json, match_analysis_json, writer_output_json, advisor_output_json, status, notes`

// Save inserts a new application row and returns its id.
func (s *Store) Save(ctx context.Context, rec *types.ApplicationRecord) (int64, error) {
	row, err := RowFromRecord(rec)
	if err != nil {
		return 0, &PersistenceError{Op: "encode application", Cause: err}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (created_at, run_id, job_url, job_title, company, location, industry, seniority,
			match_score, recommendation, confidence, cover_letter, application_email,
			job_analysis_json, match_analysis_json, writer_output_json, advisor_output_json, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.CreatedAt.UTC().Format(time.RFC3339Nano), row.RunID, row.JobURL, row.JobTitle, row.Company,
		row.Location, row.Industry, row.Seniority, row.MatchScore, row.Recommendation, row.Confidence,
		row.CoverLetter, row.ApplicationEmail, row.JobAnalysisJSON, row.MatchAnalysisJSON,
		row.WriterOutputJSON, row.AdvisorOutputJSON, row.Status, row.Notes,
	)
	if err != nil {
		return 0, &PersistenceError{Op: "save application", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &PersistenceError{Op: "read application id", Cause: err}
	}
	return id, nil
}

// Get returns the application with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*types.ApplicationRecord, error) {
	var row Row
	var createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id).Scan(
		&row.ID, &createdAt, &row.RunID, &row.JobURL, &row.JobTitle, &row.Company, &row.Location,
		&row.Industry, &row.Seniority, &row.MatchScore, &row.Recommendation, &row.Confidence,
		&row.CoverLetter, &row.ApplicationEmail, &row.JobAnalysisJSON, &row.MatchAnalysisJSON,
		&row.WriterOutputJSON, &row.AdvisorOutputJSON, &row.Status, &row.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load application", Cause: err}
	}
	if row.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return row.Record()
}

// List returns the newest applications first.
func (s *Store) List(ctx context.Context, limit int) ([]types.ApplicationSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, job_title, company, match_score, recommendation, status
		FROM applications ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list applications", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	var results []types.ApplicationSummary
	for rows.Next() {
		var (
			id                                    int64
			createdAt, title, company, rec, state string
			score                                 *int64
		)
		if err := rows.Scan(&id, &createdAt, &title, &company, &score, &rec, &state); err != nil {
			return nil, &PersistenceError{Op: "list applications", Cause: err}
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, Summary(id, t, title, company, score, rec, state))
	}
	return results, rows.Err()
}

// UpdateStatus sets the tracking status and notes of an application.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status, notes string) error {
	if err := ValidateStatus(status); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE applications SET status = ?, notes = ? WHERE id = ?`, status, notes, id)
	if err != nil {
		return &PersistenceError{Op: "update status", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &PersistenceError{Op: "update status", Cause: err}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
