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
	// WriteQuery is the broad profile query behind the written materials.
	WriteQuery = "professional profile experience achievements"
	// WriteTopK is how many profile chunks the writer sees.
	WriteTopK = 8
	// maxStrongMatchesInPrompt limits the matches quoted to the writer.
	maxStrongMatchesInPrompt = 5
)

// WriteStage drafts the cover letter and application email.
type WriteStage struct {
	client    llm.Client
	retriever Retriever
	logger    *zap.Logger
}

// NewWriteStage creates the writing stage.
func NewWriteStage(client llm.Client, retriever Retriever, logger *zap.Logger) *WriteStage {
	return &WriteStage{client: client, retriever: retriever, logger: logger}
}

// Name implements Stage.
func (s *WriteStage) Name() string { return StageWrite }

// Run implements Stage.
func (s *WriteStage) Run(ctx context.Context, state types.ApplicationState) types.ApplicationState {
	if state.Failed() {
		return state
	}
	if err := ValidateDependencies(state, StageWrite); err != nil {
		return fail(state, StageWrite, err)
	}
	job, match := state.JobAnalysis, state.MatchAnalysis

	hits, err := s.retriever.Retrieve(ctx, WriteQuery, WriteTopK)
	if err != nil {
		return fail(state, StageWrite, err)
	}

	strong := skillNames(match.StrongMatches)
	if len(strong) > maxStrongMatchesInPrompt {
		strong = strong[:maxStrongMatchesInPrompt]
	}

	prompt, err := prompts.Render(prompts.KeyWriteMaterials, map[string]string{
		"Title":         job.Title,
		"Company":       job.Company,
		"Location":      orNone(job.Location),
		"Industry":      orNone(job.Industry),
		"MatchScore":    strconv.Itoa(match.OverallScore),
		"StrongMatches": joinList(strong),
		"SellingPoints": joinList(match.UniqueSellingPoints),
		"MatchSummary":  match.MatchSummary,
		"Context":       joinHits(hits),
	})
	if err != nil {
		return fail(state, StageWrite, err)
	}

	out, err := llm.Generate[types.WriterOutput](ctx, s.client, llm.Request{
		Prompt: prompt,
		Schema: schemas.WriterOutput,
		Tier:   llm.TierAdvanced,
	})
	if err != nil {
		return fail(state, StageWrite, err)
	}

	stageLogger(ctx, s.logger, StageWrite).Info("drafted application materials",
		zap.Int("cover_letter_chars", len(out.CoverLetter)),
		zap.Strings("themes", out.KeyThemes))

	state.WriterOutput = out
	return state
}
