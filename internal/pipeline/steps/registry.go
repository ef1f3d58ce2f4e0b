// Package steps implements the pipeline stages that turn a job posting into
// application materials, plus the table that describes them.
package steps

import (
	"fmt"
	"sort"

	"github.com/jonathan/job-assistant/internal/types"
)

// Stage names, in execution order.
const (
	StageValidate = "validate"
	StageAnalyze  = "analyze"
	StageMatch    = "match"
	StageWrite    = "write"
	StageAdvise   = "advise"
	StagePersist  = "persist"
)

// Stage categories used when reporting progress.
const (
	CategoryIngestion  = "ingestion"
	CategoryAnalysis   = "analysis"
	CategoryGeneration = "generation"
	CategoryStorage    = "storage"
)

// State fields a stage may depend on.
const (
	FieldJobText       = "job_text"
	FieldJobAnalysis   = "job_analysis"
	FieldMatchAnalysis = "match_analysis"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name     string
	Order    int
	Category string
	// Requires lists state fields that must be populated before the step runs.
	Requires []string
	// Terminal steps run even after an earlier step failed.
	Terminal bool
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	StageValidate: {
		Name:     StageValidate,
		Order:    0,
		Category: CategoryIngestion,
	},
	StageAnalyze: {
		Name:     StageAnalyze,
		Order:    1,
		Category: CategoryAnalysis,
		Requires: []string{FieldJobText},
	},
	StageMatch: {
		Name:     StageMatch,
		Order:    2,
		Category: CategoryAnalysis,
		Requires: []string{FieldJobAnalysis},
	},
	StageWrite: {
		Name:     StageWrite,
		Order:    3,
		Category: CategoryGeneration,
		Requires: []string{FieldJobAnalysis, FieldMatchAnalysis},
	},
	StageAdvise: {
		Name:     StageAdvise,
		Order:    4,
		Category: CategoryGeneration,
		Requires: []string{FieldJobAnalysis, FieldMatchAnalysis},
	},
	StagePersist: {
		Name:     StagePersist,
		Order:    5,
		Category: CategoryStorage,
		Terminal: true,
	},
}

// Ordered returns the step definitions in execution order.
func Ordered() []StepDefinition {
	defs := make([]StepDefinition, 0, len(StepRegistry))
	for _, def := range StepRegistry {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Order < defs[j].Order })
	return defs
}

// DependencyError reports state fields a step needs but does not have.
type DependencyError struct {
	Step          string
	MissingFields []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingFields)
}

// ValidateDependencies checks that state carries every field the step requires.
func ValidateDependencies(state types.ApplicationState, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, field := range def.Requires {
		if !hasField(state, field) {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{Step: stepName, MissingFields: missing}
	}
	return nil
}

func hasField(state types.ApplicationState, field string) bool {
	switch field {
	case FieldJobText:
		return state.JobText != ""
	case FieldJobAnalysis:
		return state.JobAnalysis != nil
	case FieldMatchAnalysis:
		return state.MatchAnalysis != nil
	default:
		return false
	}
}
