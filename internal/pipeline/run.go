// Package pipeline runs the application stages as a state machine that
// always ends by persisting whatever the run produced.
package pipeline

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/llm"
	"github.com/jonathan/job-assistant/internal/logger"
	"github.com/jonathan/job-assistant/internal/pipeline/steps"
	"github.com/jonathan/job-assistant/internal/types"
)

// StageDone is the terminal state reached after persistence.
const StageDone = "done"

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	RunID    string                 `json:"run_id"`
	Stage    string                 `json:"stage"`
	Category string                 `json:"category"`
	Message  string                 `json:"message"`
	State    types.ApplicationState `json:"state"`
}

// ProgressCallback is called after every stage
type ProgressCallback func(event ProgressEvent)

// Dependencies are the collaborators the standard stages need.
type Dependencies struct {
	Scraper   steps.Scraper
	Generator llm.Client
	Retriever steps.Retriever
	Exporter  steps.Exporter
	Store     steps.ApplicationSaver
	// MatchTopK is the per-query hit count for skill matching.
	MatchTopK int
	Logger    *zap.Logger
}

// Orchestrator drives a run through the stages.
type Orchestrator struct {
	stages map[string]steps.Stage
	logger *zap.Logger
}

// New builds an orchestrator over the standard stages.
func New(deps Dependencies) *Orchestrator {
	o, err := NewOrchestrator([]steps.Stage{
		steps.NewValidateStage(deps.Scraper, deps.Logger),
		steps.NewAnalyzeStage(deps.Generator, deps.Logger),
		steps.NewMatchStage(deps.Generator, deps.Retriever, deps.MatchTopK, deps.Logger),
		steps.NewWriteStage(deps.Generator, deps.Retriever, deps.Logger),
		steps.NewAdviseStage(deps.Generator, deps.Retriever, deps.Logger),
		steps.NewPersistStage(deps.Exporter, deps.Store, deps.Logger),
	}, deps.Logger)
	if err != nil {
		panic(err)
	}
	return o
}

// NewOrchestrator looks stages up by name. Every registered step must be
// provided exactly once.
func NewOrchestrator(stages []steps.Stage, log *zap.Logger) (*Orchestrator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	byName := make(map[string]steps.Stage, len(stages))
	for _, stage := range stages {
		if _, ok := steps.StepRegistry[stage.Name()]; !ok {
			return nil, fmt.Errorf("unknown stage: %s", stage.Name())
		}
		if _, dup := byName[stage.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage: %s", stage.Name())
		}
		byName[stage.Name()] = stage
	}
	for name := range steps.StepRegistry {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("missing stage: %s", name)
		}
	}
	return &Orchestrator{stages: byName, logger: log}, nil
}

// Next returns the stage that follows current given the state it produced.
// A failed state skips straight to persistence; persistence ends the run.
func Next(current string, state types.ApplicationState) string {
	if current == steps.StagePersist {
		return StageDone
	}
	if state.Failed() {
		return steps.StagePersist
	}
	ordered := steps.Ordered()
	for i, def := range ordered {
		if def.Name == current && i+1 < len(ordered) {
			return ordered[i+1].Name
		}
	}
	return steps.StagePersist
}

// Stream runs the pipeline and yields every stage with the state it produced.
// The sequence ends after persistence. A run id is assigned when ctx has none.
func (o *Orchestrator) Stream(ctx context.Context, initial types.ApplicationState) iter.Seq2[string, types.ApplicationState] {
	return func(yield func(string, types.ApplicationState) bool) {
		runCtx := ctx
		if steps.RunIDFromContext(runCtx) == "" {
			runCtx = steps.WithRunID(runCtx, uuid.NewString())
		}
		log := logger.WithFields(o.logger, logger.RunFields(steps.RunIDFromContext(runCtx), "")...)

		state := initial
		for current := steps.StageValidate; current != StageDone; {
			state = o.runStage(runCtx, log, current, state)
			log.Debug("stage finished", zap.String(logger.FieldStage, current), zap.Bool("failed", state.Failed()))
			if !yield(current, state) {
				return
			}
			current = Next(current, state)
		}
	}
}

// runStage runs one stage and turns a panic into a recorded stage error so
// the run still reaches persistence.
func (o *Orchestrator) runStage(ctx context.Context, log *zap.Logger, name string, state types.ApplicationState) (out types.ApplicationState) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("stage panicked", zap.String(logger.FieldStage, name), zap.Any("panic", r), zap.Stack("stack"))
			msg := fmt.Sprintf("%s failed: panic: %v", name, r)
			if state.Error != "" {
				msg = state.Error + "; " + msg
			}
			out = state
			out.Error = msg
		}
	}()
	return o.stages[name].Run(ctx, state)
}

// Run executes the pipeline to completion and returns the final state.
// onProgress, when set, is called after every stage.
func (o *Orchestrator) Run(ctx context.Context, initial types.ApplicationState, onProgress ProgressCallback) types.ApplicationState {
	runID := steps.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = steps.WithRunID(ctx, runID)
	}
	log := logger.WithFields(o.logger, logger.RunFields(runID, "")...)
	log.Info("pipeline started", zap.String("job_url", initial.JobURL), zap.Bool("has_text", initial.JobText != ""))

	final := initial
	for stage, state := range o.Stream(ctx, initial) {
		final = state
		if onProgress != nil {
			onProgress(ProgressEvent{
				RunID:    runID,
				Stage:    stage,
				Category: steps.StepRegistry[stage].Category,
				Message:  describe(stage, state),
				State:    state,
			})
		}
	}

	if final.Failed() {
		log.Warn("pipeline finished with error", zap.String("error", final.Error), zap.Int64("db_id", final.DBID))
	} else {
		log.Info("pipeline finished", zap.Int64("db_id", final.DBID), zap.String("output", final.OutputPath))
	}
	return final
}

func describe(stage string, state types.ApplicationState) string {
	switch {
	case stage == steps.StagePersist && state.DBID != 0:
		return fmt.Sprintf("saved application #%d", state.DBID)
	case state.Failed():
		return state.Error
	case stage == steps.StageValidate:
		return fmt.Sprintf("job posting ready (%d chars)", len(state.JobText))
	case stage == steps.StageAnalyze && state.JobAnalysis != nil:
		return fmt.Sprintf("analyzed %s at %s", state.JobAnalysis.Title, state.JobAnalysis.Company)
	case stage == steps.StageMatch && state.MatchAnalysis != nil:
		return fmt.Sprintf("match score %d/100", state.MatchAnalysis.OverallScore)
	case stage == steps.StageWrite:
		return "drafted cover letter and email"
	case stage == steps.StageAdvise && state.AdvisorOutput != nil:
		return "recommendation: " + state.AdvisorOutput.OverallRecommendation
	default:
		return stage + " complete"
	}
}
