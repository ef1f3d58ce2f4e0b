package steps

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/llm"
	"github.com/jonathan/job-assistant/internal/prompts"
	"github.com/jonathan/job-assistant/internal/schemas"
	"github.com/jonathan/job-assistant/internal/types"
)

const (
	// DefaultMatchTopK is the per-query hit count for skill matching.
	DefaultMatchTopK = 5
	// MaxResponsibilityQueries bounds how many responsibilities become queries.
	MaxResponsibilityQueries = 5
	// ContextSeparator joins retrieved chunks into one prompt section.
	ContextSeparator = "\n\n---\n\n"
)

// MatchStage scores the candidate against the job using evidence retrieved
// per requirement.
type MatchStage struct {
	client    llm.Client
	retriever Retriever
	topK      int
	logger    *zap.Logger
}

// NewMatchStage creates the matching stage. topK <= 0 uses DefaultMatchTopK.
func NewMatchStage(client llm.Client, retriever Retriever, topK int, logger *zap.Logger) *MatchStage {
	if topK <= 0 {
		topK = DefaultMatchTopK
	}
	return &MatchStage{client: client, retriever: retriever, topK: topK, logger: logger}
}

// Name implements Stage.
func (s *MatchStage) Name() string { return StageMatch }

// MatchQueries builds one retrieval query per required skill, per preferred
// skill and per leading responsibility, in that order.
func MatchQueries(analysis *types.JobAnalysis) []string {
	queries := make([]string, 0, len(analysis.RequiredSkills)+len(analysis.PreferredSkills)+MaxResponsibilityQueries)
	for _, skill := range analysis.RequiredSkills {
		queries = append(queries, "experience with "+skill)
	}
	for _, skill := range analysis.PreferredSkills {
		queries = append(queries, "experience with "+skill)
	}
	responsibilities := analysis.Responsibilities
	if len(responsibilities) > MaxResponsibilityQueries {
		responsibilities = responsibilities[:MaxResponsibilityQueries]
	}
	return append(queries, responsibilities...)
}

// Run implements Stage.
func (s *MatchStage) Run(ctx context.Context, state types.ApplicationState) types.ApplicationState {
	if state.Failed() {
		return state
	}
	if err := ValidateDependencies(state, StageMatch); err != nil {
		return fail(state, StageMatch, err)
	}
	log := stageLogger(ctx, s.logger, StageMatch)
	job := state.JobAnalysis

	queries := MatchQueries(job)
	hits, err := s.retriever.MultiQueryRetrieve(ctx, queries, s.topK)
	if err != nil {
		return fail(state, StageMatch, err)
	}
	log.Debug("retrieved match evidence", zap.Int("queries", len(queries)), zap.Int("hits", len(hits)))

	prompt, err := prompts.Render(prompts.KeyMatchSkills, map[string]string{
		"Title":            job.Title,
		"Company":          job.Company,
		"Seniority":        orNone(job.Seniority),
		"RequiredSkills":   joinList(job.RequiredSkills),
		"PreferredSkills":  joinList(job.PreferredSkills),
		"Responsibilities": bulletList(job.Responsibilities),
		"Context":          joinHits(hits),
	})
	if err != nil {
		return fail(state, StageMatch, err)
	}

	match, err := llm.Generate[types.MatchAnalysis](ctx, s.client, llm.Request{
		Prompt: prompt,
		Schema: schemas.MatchAnalysis,
		Tier:   llm.TierStandard,
	})
	if err != nil {
		return fail(state, StageMatch, err)
	}

	log.Info("matched candidate to job",
		zap.Int("score", match.OverallScore),
		zap.Int("strong", len(match.StrongMatches)),
		zap.Int("gaps", len(match.Gaps)))

	state.MatchAnalysis = match
	return state
}

func joinHits(hits []types.RetrievalHit) string {
	if len(hits) == 0 {
		return "None"
	}
	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Text
	}
	return strings.Join(texts, ContextSeparator)
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return "- " + strings.Join(items, "\n- ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

func skillNames(matches []types.SkillMatch) []string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Skill
	}
	return names
}
