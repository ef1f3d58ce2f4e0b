package db

import (
	"context"

	"github.com/jonathan/job-assistant/internal/storage"
	"github.com/jonathan/job-assistant/internal/types"
)

var _ storage.ApplicationStore = (*DB)(nil)

const applicationColumns = `id, created_at, run_id, job_url, job_title, company, location, industry, seniority,
	match_score, recommendation, confidence, cover_letter, application_email,
	job_analysis_json::text, match_analysis_json::text, writer_output_json::text, advisor_output_json::text, status, notes`

// Save inserts a new application row and returns its id.
func (db *DB) Save(ctx context.Context, rec *types.ApplicationRecord) (int64, error) {
	row, err := storage.RowFromRecord(rec)
	if err != nil {
		return 0, &storage.PersistenceError{Op: "encode application", Cause: err}
	}

	var id int64
	err = db.pool.QueryRow(ctx,
		`INSERT INTO applications (created_at, run_id, job_url, job_title, company, location, industry, seniority,
			match_score, recommendation, confidence, cover_letter, application_email,
			job_analysis_json, match_analysis_json, writer_output_json, advisor_output_json, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id`,
		row.CreatedAt, row.RunID, row.JobURL, row.JobTitle, row.Company, row.Location, row.Industry,
		row.Seniority, row.MatchScore, row.Recommendation, row.Confidence, row.CoverLetter,
		row.ApplicationEmail, row.JobAnalysisJSON, row.MatchAnalysisJSON, row.WriterOutputJSON,
		row.AdvisorOutputJSON, row.Status, row.Notes,
	).Scan(&id)
	if err != nil {
		return 0, &storage.PersistenceError{Op: "save application", Cause: err}
	}
	return id, nil
}

// Get returns the application with the given id, or storage.ErrNotFound.
func (db *DB) Get(ctx context.Context, id int64) (*types.ApplicationRecord, error) {
	var row storage.Row
	err := db.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id).Scan(
		&row.ID, &row.CreatedAt, &row.RunID, &row.JobURL, &row.JobTitle, &row.Company, &row.Location,
		&row.Industry, &row.Seniority, &row.MatchScore, &row.Recommendation, &row.Confidence,
		&row.CoverLetter, &row.ApplicationEmail, &row.JobAnalysisJSON, &row.MatchAnalysisJSON,
		&row.WriterOutputJSON, &row.AdvisorOutputJSON, &row.Status, &row.Notes,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, &storage.PersistenceError{Op: "load application", Cause: err}
	}
	return row.Record()
}

// List returns the newest applications first.
func (db *DB) List(ctx context.Context, limit int) ([]types.ApplicationSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, created_at, job_title, company, match_score, recommendation, status
		 FROM applications ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "list applications", Cause: err}
	}
	defer rows.Close()

	var results []types.ApplicationSummary
	for rows.Next() {
		var s types.ApplicationSummary
		var score *int64
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.JobTitle, &s.Company, &score, &s.Recommendation, &s.Status); err != nil {
			return nil, &storage.PersistenceError{Op: "list applications", Cause: err}
		}
		results = append(results, storage.Summary(s.ID, s.CreatedAt, s.JobTitle, s.Company, score, s.Recommendation, s.Status))
	}
	return results, rows.Err()
}

// UpdateStatus sets the tracking status and notes of an application.
func (db *DB) UpdateStatus(ctx context.Context, id int64, status, notes string) error {
	if err := storage.ValidateStatus(status); err != nil {
		return err
	}
	tag, err := db.pool.Exec(ctx, `UPDATE applications SET status = $1, notes = $2 WHERE id = $3`, status, notes, id)
	if err != nil {
		if pgCode(err) == codeCheckViolation {
			return storage.ErrInvalidStatus
		}
		return &storage.PersistenceError{Op: "update status", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
