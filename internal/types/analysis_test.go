//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchAnalysis_ScoreBounds(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		wantErr bool
	}{
		{"zero", 0, false},
		{"middle", 72, false},
		{"hundred", 100, false},
		{"negative", -1, true},
		{"over", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MatchAnalysis{OverallScore: tt.score, MatchSummary: "solid fit"}
			err := m.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatchAnalysis_NestedSkillMatchRequiresSkill(t *testing.T) {
	m := &MatchAnalysis{
		OverallScore:  50,
		MatchSummary:  "partial",
		StrongMatches: []SkillMatch{{Skill: "", Evidence: "led migrations"}},
	}
	assert.Error(t, m.Validate())
}

func TestJobAnalysis_Normalize(t *testing.T) {
	a := &JobAnalysis{Title: "Backend Engineer", Company: "Acme", Summary: "Build APIs"}
	a.Normalize()
	assert.Equal(t, DefaultSalaryInfo, a.SalaryInfo)

	a.SalaryInfo = "$150k"
	a.Normalize()
	assert.Equal(t, "$150k", a.SalaryInfo)
}

func TestJobAnalysis_ValidateRequiresTitle(t *testing.T) {
	a := &JobAnalysis{Company: "Acme", Summary: "Build APIs"}
	require.Error(t, a.Validate())

	a.Title = "Backend Engineer"
	require.NoError(t, a.Validate())
}

func TestApplicationState_Flags(t *testing.T) {
	var s ApplicationState
	assert.False(t, s.Failed())
	assert.False(t, s.Complete())

	s.Error = "boom"
	assert.True(t, s.Failed())

	s = ApplicationState{
		JobAnalysis:   &JobAnalysis{},
		MatchAnalysis: &MatchAnalysis{},
		WriterOutput:  &WriterOutput{},
		AdvisorOutput: &AdvisorOutput{},
	}
	assert.True(t, s.Complete())
}

func TestStatusUpdate_Validate(t *testing.T) {
	for _, status := range ApplicationStatuses {
		u := &StatusUpdate{Status: status}
		assert.NoError(t, u.Validate(), status)
	}

	u := &StatusUpdate{Status: "ghosted"}
	assert.Error(t, u.Validate())
	u = &StatusUpdate{}
	assert.Error(t, u.Validate())
}

func TestApplicationRecord_Summary(t *testing.T) {
	rec := &ApplicationRecord{
		ID:            7,
		Status:        StatusApplied,
		JobAnalysis:   &JobAnalysis{Title: "SRE", Company: "Acme"},
		MatchAnalysis: &MatchAnalysis{OverallScore: 81},
		AdvisorOutput: &AdvisorOutput{OverallRecommendation: "Apply"},
	}

	s := rec.Summary()
	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, "SRE", s.JobTitle)
	assert.Equal(t, "Acme", s.Company)
	require.NotNil(t, s.MatchScore)
	assert.Equal(t, 81, *s.MatchScore)
	assert.Equal(t, "Apply", s.Recommendation)

	empty := (&ApplicationRecord{ID: 1, Status: StatusGenerated}).Summary()
	assert.Nil(t, empty.MatchScore)
	assert.Empty(t, empty.Company)
}
