// Package types provides type definitions for structured data used throughout the job-assistant system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// DefaultSalaryInfo is used when a posting does not state compensation.
const DefaultSalaryInfo = "Not specified"

// JobAnalysis is the structured reading of a job posting.
type JobAnalysis struct {
	Title              string   `json:"title" validate:"required"`
	Company            string   `json:"company" validate:"required"`
	Location           string   `json:"location"`
	Seniority          string   `json:"seniority"`
	SalaryInfo         string   `json:"salary_info"`
	RequiredSkills     []string `json:"required_skills"`
	PreferredSkills    []string `json:"preferred_skills"`
	Responsibilities   []string `json:"responsibilities"`
	CulturalIndicators []string `json:"cultural_indicators"`
	Industry           string   `json:"industry"`
	Summary            string   `json:"summary" validate:"required"`
}

// SkillMatch ties a job skill to evidence from the candidate's knowledge base.
type SkillMatch struct {
	Skill    string `json:"skill" validate:"required"`
	Evidence string `json:"evidence"`
	Strength string `json:"strength"`
}

// MatchAnalysis compares the job requirements against the candidate profile.
type MatchAnalysis struct {
	OverallScore        int          `json:"overall_score" validate:"min=0,max=100"`
	StrongMatches       []SkillMatch `json:"strong_matches" validate:"dive"`
	PartialMatches      []SkillMatch `json:"partial_matches" validate:"dive"`
	Gaps                []string     `json:"gaps"`
	TransferableSkills  []string     `json:"transferable_skills"`
	UniqueSellingPoints []string     `json:"unique_selling_points"`
	MatchSummary        string       `json:"match_summary" validate:"required"`
}

// WriterOutput holds the generated application materials.
type WriterOutput struct {
	CoverLetter      string   `json:"cover_letter" validate:"required"`
	ApplicationEmail string   `json:"application_email" validate:"required"`
	KeyThemes        []string `json:"key_themes"`
}

// AdvisorOutput holds the application strategy.
type AdvisorOutput struct {
	OverallRecommendation string   `json:"overall_recommendation" validate:"required"`
	Strategy              string   `json:"strategy" validate:"required"`
	CVTailoring           []string `json:"cv_tailoring"`
	InterviewPrep         []string `json:"interview_prep"`
	PotentialQuestions    []string `json:"potential_questions"`
	NetworkingSuggestions []string `json:"networking_suggestions"`
	RiskFactors           []string `json:"risk_factors"`
	ConfidenceLevel       string   `json:"confidence_level"`
}

var validate = validator.New()

// Validate validates the JobAnalysis using the validator.
func (a *JobAnalysis) Validate() error {
	return validate.Struct(a)
}

// Normalize fills defaults the model is allowed to omit.
func (a *JobAnalysis) Normalize() {
	if a.SalaryInfo == "" {
		a.SalaryInfo = DefaultSalaryInfo
	}
}

// Validate validates the MatchAnalysis using the validator.
func (m *MatchAnalysis) Validate() error {
	return validate.Struct(m)
}

// Validate validates the WriterOutput using the validator.
func (w *WriterOutput) Validate() error {
	return validate.Struct(w)
}

// Validate validates the AdvisorOutput using the validator.
func (a *AdvisorOutput) Validate() error {
	return validate.Struct(a)
}
