package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/ingestion"
	"github.com/jonathan/job-assistant/internal/observability"
	"github.com/jonathan/job-assistant/internal/pipeline"
	"github.com/jonathan/job-assistant/internal/pipeline/steps"
	"github.com/jonathan/job-assistant/internal/types"
)

var errNoInput = errors.New("provide --url, --text, or --text-file")

var (
	runJobURL     string
	runJobText    string
	runTextFile   string
	runReindex    bool
	runUseBrowser bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the application pipeline on a job posting",
	Long: `Index the knowledge base, then analyze a job posting, match it against
the knowledge base, draft a cover letter and outreach email, and advise on
strategy. Results are exported as JSON and saved to the application database.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runJobURL, "url", "u", "", "Job posting URL")
	runCmd.Flags().StringVarP(&runJobText, "text", "t", "", "Job posting text")
	runCmd.Flags().StringVarP(&runTextFile, "text-file", "f", "", "Path to a file holding the job posting text")
	runCmd.Flags().BoolVar(&runReindex, "reindex", false, "Rebuild the knowledge index before running")
	runCmd.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Render thin pages in headless Chrome")
	rootCmd.AddCommand(runCmd)
}

// runInput builds the initial state from the input flags.
// It returns a zero state and nil error when no input was given.
func runInput(jobURL, jobText, textFile string) (types.ApplicationState, error) {
	if jobText != "" && textFile != "" {
		return types.ApplicationState{}, fmt.Errorf("--text and --text-file are mutually exclusive")
	}

	state := types.ApplicationState{
		JobURL:  strings.TrimSpace(jobURL),
		JobText: strings.TrimSpace(jobText),
	}
	if textFile != "" {
		text, _, err := ingestion.ReadTextFile(textFile)
		if err != nil {
			return types.ApplicationState{}, err
		}
		state.JobText = text
	}
	return state, nil
}

func hasInput(state types.ApplicationState) bool {
	return state.JobURL != "" || state.JobText != ""
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	initial, err := runInput(runJobURL, runJobText, runTextFile)
	if err != nil {
		return err
	}
	if !hasInput(initial) && !runReindex {
		return errNoInput
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	retriever, err := a.retriever(ctx)
	if err != nil {
		return err
	}
	count, err := a.reindex(ctx, retriever, runReindex)
	if err != nil {
		return fmt.Errorf("failed to index knowledge base: %w", err)
	}
	fmt.Fprintf(out, "Knowledge base: %d chunks indexed\n", count)

	if !hasInput(initial) {
		return nil
	}

	orch, err := a.orchestrator(ctx, retriever)
	if err != nil {
		return err
	}

	final := execute(ctx, orch, initial, out)
	a.logger.Debug("run complete", zap.Int64("db_id", final.DBID), zap.Bool("failed", final.Failed()))
	if final.Failed() {
		return errRunFailed
	}
	return nil
}

// execute runs the pipeline, printing each stage as it finishes and the
// first error as soon as it appears, then the full results.
func execute(ctx context.Context, orch *pipeline.Orchestrator, initial types.ApplicationState, out io.Writer) types.ApplicationState {
	printer := observability.NewPrinter(out)
	total := len(steps.StepRegistry)
	reported := false

	final := orch.Run(ctx, initial, func(event pipeline.ProgressEvent) {
		printer.PrintStage(steps.StepRegistry[event.Stage].Order+1, total, event.Stage, event.Message)
		if event.State.Failed() && !reported {
			reported = true
			printer.PrintError(event.State.Error)
		}
	})

	fmt.Fprintln(out)
	printer.PrintFinal(final)
	return final
}
