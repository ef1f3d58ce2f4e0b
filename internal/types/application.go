package types

import "time"

// Application statuses tracked after materials are generated.
const (
	StatusGenerated    = "generated"
	StatusApplied      = "applied"
	StatusInterviewing = "interviewing"
	StatusOffered      = "offered"
	StatusRejected     = "rejected"
	StatusWithdrawn    = "withdrawn"
)

// ApplicationStatuses lists every accepted status in lifecycle order.
var ApplicationStatuses = []string{
	StatusGenerated,
	StatusApplied,
	StatusInterviewing,
	StatusOffered,
	StatusRejected,
	StatusWithdrawn,
}

// ApplicationRecord is one persisted pipeline run, complete or partial.
type ApplicationRecord struct {
	ID            int64          `json:"id"`
	RunID         string         `json:"run_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	JobURL        string         `json:"job_url,omitempty"`
	JobAnalysis   *JobAnalysis   `json:"job_analysis"`
	MatchAnalysis *MatchAnalysis `json:"match_analysis"`
	WriterOutput  *WriterOutput  `json:"writer_output"`
	AdvisorOutput *AdvisorOutput `json:"advisor_output"`
	Status        string         `json:"status"`
	Notes         string         `json:"notes,omitempty"`
}

// ApplicationSummary is the list view of a persisted application.
type ApplicationSummary struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	JobTitle       string    `json:"job_title,omitempty"`
	Company        string    `json:"company,omitempty"`
	MatchScore     *int      `json:"match_score,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Status         string    `json:"status"`
}

// StatusUpdate changes the tracking status of an application.
type StatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=generated applied interviewing offered rejected withdrawn"`
	Notes  string `json:"notes,omitempty"`
}

// Validate validates the StatusUpdate using the validator.
func (u *StatusUpdate) Validate() error {
	return validate.Struct(u)
}

// Summary derives the list view from a full record.
func (r *ApplicationRecord) Summary() ApplicationSummary {
	s := ApplicationSummary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Status:    r.Status,
	}
	if r.JobAnalysis != nil {
		s.JobTitle = r.JobAnalysis.Title
		s.Company = r.JobAnalysis.Company
	}
	if r.MatchAnalysis != nil {
		score := r.MatchAnalysis.OverallScore
		s.MatchScore = &score
	}
	if r.AdvisorOutput != nil {
		s.Recommendation = r.AdvisorOutput.OverallRecommendation
	}
	return s
}

// NewApplicationRecord captures whatever outputs a run produced.
func NewApplicationRecord(runID string, state ApplicationState) *ApplicationRecord {
	return &ApplicationRecord{
		RunID:         runID,
		CreatedAt:     time.Now().UTC(),
		JobURL:        state.JobURL,
		JobAnalysis:   state.JobAnalysis,
		MatchAnalysis: state.MatchAnalysis,
		WriterOutput:  state.WriterOutput,
		AdvisorOutput: state.AdvisorOutput,
		Status:        StatusGenerated,
	}
}
