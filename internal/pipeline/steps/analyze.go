package steps

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/llm"
	"github.com/jonathan/job-assistant/internal/prompts"
	"github.com/jonathan/job-assistant/internal/schemas"
	"github.com/jonathan/job-assistant/internal/types"
)

// AnalyzeStage extracts a JobAnalysis from the posting text.
type AnalyzeStage struct {
	client llm.Client
	logger *zap.Logger
}

// NewAnalyzeStage creates the analysis stage.
func NewAnalyzeStage(client llm.Client, logger *zap.Logger) *AnalyzeStage {
	return &AnalyzeStage{client: client, logger: logger}
}

// Name implements Stage.
func (s *AnalyzeStage) Name() string { return StageAnalyze }

// Run implements Stage.
func (s *AnalyzeStage) Run(ctx context.Context, state types.ApplicationState) types.ApplicationState {
	if state.Failed() {
		return state
	}
	if err := ValidateDependencies(state, StageAnalyze); err != nil {
		return fail(state, StageAnalyze, err)
	}

	prompt, err := prompts.Render(prompts.KeyAnalyzeJob, map[string]string{
		"JobText": state.JobText,
	})
	if err != nil {
		return fail(state, StageAnalyze, err)
	}

	analysis, err := llm.Generate[types.JobAnalysis](ctx, s.client, llm.Request{
		Prompt: prompt,
		Schema: schemas.JobAnalysis,
		Tier:   llm.TierStandard,
	})
	if err != nil {
		return fail(state, StageAnalyze, err)
	}

	stageLogger(ctx, s.logger, StageAnalyze).Info("analyzed job posting",
		zap.String("title", analysis.Title),
		zap.String("company", analysis.Company),
		zap.Int("required_skills", len(analysis.RequiredSkills)))

	state.JobAnalysis = analysis
	return state
}
