package steps

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/types"
)

// InputError means a run was started with neither a job URL nor job text.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// ErrNoInput is returned when a run has nothing to analyze.
var ErrNoInput = &InputError{Message: "no job URL or text provided"}

// ValidateStage acquires the posting text. Supplied text wins over a URL.
type ValidateStage struct {
	scraper Scraper
	logger  *zap.Logger
}

// NewValidateStage creates the acquisition stage.
func NewValidateStage(scraper Scraper, logger *zap.Logger) *ValidateStage {
	return &ValidateStage{scraper: scraper, logger: logger}
}

// Name implements Stage.
func (s *ValidateStage) Name() string { return StageValidate }

// Run implements Stage.
func (s *ValidateStage) Run(ctx context.Context, state types.ApplicationState) types.ApplicationState {
	log := stageLogger(ctx, s.logger, StageValidate)

	if strings.TrimSpace(state.JobText) != "" {
		log.Debug("using supplied job text", zap.Int("chars", len(state.JobText)))
		return state
	}

	url := strings.TrimSpace(state.JobURL)
	if url == "" {
		state.Error = ErrNoInput.Error()
		return state
	}

	text, err := s.scraper.Fetch(ctx, url)
	if err != nil {
		log.Warn("scrape failed", zap.String("url", url), zap.Error(err))
		return fail(state, StageValidate, err)
	}

	log.Info("scraped job posting", zap.String("url", url), zap.Int("chars", len(text)))
	state.JobText = text
	return state
}
