package steps

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/llm"
	"github.com/jonathan/job-assistant/internal/prompts"
	"github.com/jonathan/job-assistant/internal/schemas"
	"github.com/jonathan/job-assistant/internal/types"
)

const (
	// AdviseQuery is the broad profile query behind the strategy advice.
	AdviseQuery = "professional profile achievements skills"
	// AdviseTopK is how many profile chunks the advisor sees.
	AdviseTopK = 5
)

// AdviseStage produces the application strategy.
type AdviseStage struct {
	client    llm.Client
	retriever Retriever
	logger    *zap.Logger
}

// NewAdviseStage creates the advice stage.
func NewAdviseStage(client llm.Client, retriever Retriever, logger *zap.Logger) *AdviseStage {
	return &AdviseStage{client: client, retriever: retriever, logger: logger}
}

// Name implements Stage.
func (s *AdviseStage) Name() string { return StageAdvise }

// Run implements Stage.
func (s *AdviseStage) Run(ctx context.Context, state types.ApplicationState) types.ApplicationState {
	if state.Failed() {
		return state
	}
	if err := ValidateDependencies(state, StageAdvise); err != nil {
		return fail(state, StageAdvise, err)
	}
	job, match := state.JobAnalysis, state.MatchAnalysis

	hits, err := s.retriever.Retrieve(ctx, AdviseQuery, AdviseTopK)
	if err != nil {
		return fail(state, StageAdvise, err)
	}

	prompt, err := prompts.Render(prompts.KeyAdviseStrategy, map[string]string{
		"Title":          job.Title,
		"Company":        job.Company,
		"Location":       orNone(job.Location),
		"Industry":       orNone(job.Industry),
		"Seniority":      orNone(job.Seniority),
		"MatchScore":     strconv.Itoa(match.OverallScore),
		"StrongMatches":  joinList(skillNames(match.StrongMatches)),
		"PartialMatches": joinList(skillNames(match.PartialMatches)),
		"Gaps":           joinList(match.Gaps),
		"SellingPoints":  joinList(match.UniqueSellingPoints),
		"Context":        joinHits(hits),
	})
	if err != nil {
		return fail(state, StageAdvise, err)
	}

	advice, err := llm.Generate[types.AdvisorOutput](ctx, s.client, llm.Request{
		Prompt: prompt,
		Schema: schemas.AdvisorOutput,
		Tier:   llm.TierAdvanced,
	})
	if err != nil {
		return fail(state, StageAdvise, err)
	}

	stageLogger(ctx, s.logger, StageAdvise).Info("prepared application strategy",
		zap.String("recommendation", advice.OverallRecommendation),
		zap.String("confidence", advice.ConfidenceLevel))

	state.AdvisorOutput = advice
	return state
}
