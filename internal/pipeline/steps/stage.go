package steps

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/logger"
	"github.com/jonathan/job-assistant/internal/types"
)

// Stage is one step of the pipeline. Run never returns an error: failures are
// recorded in the returned state's Error field.
type Stage interface {
	Name() string
	Run(ctx context.Context, state types.ApplicationState) types.ApplicationState
}

// Retriever is the read side of the knowledge index used by the stages.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]types.RetrievalHit, error)
	MultiQueryRetrieve(ctx context.Context, queries []string, topK int) ([]types.RetrievalHit, error)
}

// Scraper fetches a job posting and returns its cleaned text.
type Scraper interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Exporter writes a run's outputs to a durable artifact and returns its location.
type Exporter interface {
	Export(state types.ApplicationState) (string, error)
}

// ApplicationSaver stores a run's outputs and returns the new record id.
type ApplicationSaver interface {
	Save(ctx context.Context, rec *types.ApplicationRecord) (int64, error)
}

type runIDKey struct{}

// WithRunID tags ctx with the id of the pipeline run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// stageLogger scopes a logger to the stage and current run.
func stageLogger(ctx context.Context, base *zap.Logger, stage string) *zap.Logger {
	return logger.WithFields(base, logger.RunFields(RunIDFromContext(ctx), stage)...)
}

// fail records err as the state's terminal error.
func fail(state types.ApplicationState, stage string, err error) types.ApplicationState {
	state.Error = fmt.Sprintf("%s failed: %v", stage, err)
	return state
}
