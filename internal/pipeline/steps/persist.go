package steps

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/types"
)

// PersistStage exports and stores whatever outputs exist. It always runs,
// and its own failures are appended to the state's error.
type PersistStage struct {
	exporter Exporter
	store    ApplicationSaver
	logger   *zap.Logger
}

// NewPersistStage creates the terminal stage.
func NewPersistStage(exporter Exporter, store ApplicationSaver, logger *zap.Logger) *PersistStage {
	return &PersistStage{exporter: exporter, store: store, logger: logger}
}

// Name implements Stage.
func (s *PersistStage) Name() string { return StagePersist }

// Run implements Stage.
func (s *PersistStage) Run(ctx context.Context, state types.ApplicationState) types.ApplicationState {
	log := stageLogger(ctx, s.logger, StagePersist)
	var problems []string

	path, err := s.exporter.Export(state)
	if err != nil {
		log.Error("export failed", zap.Error(err))
		problems = append(problems, err.Error())
	} else {
		state.OutputPath = path
	}

	id, err := s.store.Save(ctx, types.NewApplicationRecord(RunIDFromContext(ctx), state))
	if err != nil {
		log.Error("save failed", zap.Error(err))
		problems = append(problems, err.Error())
	} else {
		state.DBID = id
	}

	if len(problems) > 0 {
		msg := fmt.Sprintf("%s failed: %s", StagePersist, strings.Join(problems, "; "))
		if state.Error != "" {
			msg = state.Error + "; " + msg
		}
		state.Error = msg
		return state
	}

	log.Info("saved application",
		zap.Int64("id", state.DBID),
		zap.String("path", state.OutputPath),
		zap.Bool("complete", state.Complete()))
	return state
}
