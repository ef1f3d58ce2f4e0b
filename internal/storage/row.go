package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/job-assistant/internal/types"
)

// DefaultListLimit is used when List is called without a positive limit.
const DefaultListLimit = 20

// ApplicationStore persists pipeline runs. Both the SQLite and Postgres
// backends implement it.
type ApplicationStore interface {
	Save(ctx context.Context, rec *types.ApplicationRecord) (int64, error)
	Get(ctx context.Context, id int64) (*types.ApplicationRecord, error)
	List(ctx context.Context, limit int) ([]types.ApplicationSummary, error)
	UpdateStatus(ctx context.Context, id int64, status, notes string) error
}

// Row is the column form of an ApplicationRecord shared by the SQL backends.
// Nil JSON columns mean the run did not produce that output.
type Row struct {
	ID                int64
	CreatedAt         time.Time
	RunID             string
	JobURL            string
	JobTitle          string
	Company           string
	Location          string
	Industry          string
	Seniority         string
	MatchScore        *int64
	Recommendation    string
	Confidence        string
	CoverLetter       string
	ApplicationEmail  string
	JobAnalysisJSON   *string
	MatchAnalysisJSON *string
	WriterOutputJSON  *string
	AdvisorOutputJSON *string
	Status            string
	Notes             string
}

// RowFromRecord flattens rec into its columns.
func RowFromRecord(rec *types.ApplicationRecord) (Row, error) {
	row := Row{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		RunID:     rec.RunID,
		JobURL:    rec.JobURL,
		Status:    rec.Status,
		Notes:     rec.Notes,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.Status == "" {
		row.Status = types.StatusGenerated
	}

	if a := rec.JobAnalysis; a != nil {
		row.JobTitle, row.Company, row.Location = a.Title, a.Company, a.Location
		row.Industry, row.Seniority = a.Industry, a.Seniority
	}
	if m := rec.MatchAnalysis; m != nil {
		score := int64(m.OverallScore)
		row.MatchScore = &score
	}
	if w := rec.WriterOutput; w != nil {
		row.CoverLetter, row.ApplicationEmail = w.CoverLetter, w.ApplicationEmail
	}
	if a := rec.AdvisorOutput; a != nil {
		row.Recommendation, row.Confidence = a.OverallRecommendation, a.ConfidenceLevel
	}

	var err error
	if row.JobAnalysisJSON, err = marshalOptional(rec.JobAnalysis); err != nil {
		return Row{}, err
	}
	if row.MatchAnalysisJSON, err = marshalOptional(rec.MatchAnalysis); err != nil {
		return Row{}, err
	}
	if row.WriterOutputJSON, err = marshalOptional(rec.WriterOutput); err != nil {
		return Row{}, err
	}
	if row.AdvisorOutputJSON, err = marshalOptional(rec.AdvisorOutput); err != nil {
		return Row{}, err
	}
	return row, nil
}

// Record rebuilds the full record from its JSON columns.
func (r Row) Record() (*types.ApplicationRecord, error) {
	rec := &types.ApplicationRecord{
		ID:        r.ID,
		RunID:     r.RunID,
		CreatedAt: r.CreatedAt,
		JobURL:    r.JobURL,
		Status:    r.Status,
		Notes:     r.Notes,
	}
	var err error
	if rec.JobAnalysis, err = unmarshalOptional[types.JobAnalysis](r.JobAnalysisJSON); err != nil {
		return nil, err
	}
	if rec.MatchAnalysis, err = unmarshalOptional[types.MatchAnalysis](r.MatchAnalysisJSON); err != nil {
		return nil, err
	}
	if rec.WriterOutput, err = unmarshalOptional[types.WriterOutput](r.WriterOutputJSON); err != nil {
		return nil, err
	}
	if rec.AdvisorOutput, err = unmarshalOptional[types.AdvisorOutput](r.AdvisorOutputJSON); err != nil {
		return nil, err
	}
	return rec, nil
}

func marshalOptional[T any](v *T) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	s := string(b)
	return &s, nil
}

func unmarshalOptional[T any](s *string) (*T, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal([]byte(*s), out); err != nil {
		return nil, fmt.Errorf("decoding %T: %w", out, err)
	}
	return out, nil
}

// Summary converts list columns into the list view.
func Summary(id int64, createdAt time.Time, title, company string, score *int64, recommendation, status string) types.ApplicationSummary {
	s := types.ApplicationSummary{
		ID:             id,
		CreatedAt:      createdAt,
		JobTitle:       title,
		Company:        company,
		Recommendation: recommendation,
		Status:         status,
	}
	if score != nil {
		v := int(*score)
		s.MatchScore = &v
	}
	return s
}
