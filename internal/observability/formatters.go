// Package observability provides formatted console output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/jonathan/job-assistant/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in short lists
	maxItemsToShow = 5
	// textWidth is the usable width inside a box
	textWidth = boxWidth - 4
)

// Score bands for the match score label.
const (
	strongScore   = 70
	moderateScore = 40
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Long lines wrap.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrap(line, textWidth) {
			fmt.Fprintf(p.out, "│ %s │\n", pad(wrapped))
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s to textWidth runes.
func pad(s string) string {
	if n := utf8.RuneCountInString(s); n < textWidth {
		return s + strings.Repeat(" ", textWidth-n)
	}
	return s
}

// wrap splits line on word boundaries so no piece exceeds width runes.
// Words longer than width are split.
func wrap(line string, width int) []string {
	if utf8.RuneCountInString(line) <= width {
		return []string{line}
	}

	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	if len(indent) > width/2 {
		indent = ""
	}
	var lines []string
	var current []rune
	for _, word := range strings.Fields(line) {
		w := []rune(word)
		for len(w) > width-len(indent) {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			cut := width - len(indent)
			lines = append(lines, indent+string(w[:cut]))
			w = w[cut:]
		}
		switch {
		case len(current) == 0:
			current = append([]rune(indent), w...)
		case len(current)+1+len(w) <= width:
			current = append(append(current, ' '), w...)
		default:
			lines = append(lines, string(current))
			current = append([]rune(indent), w...)
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}

func bullets(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", heading)
	count := len(items)
	if limit > 0 {
		count = min(count, limit)
	}
	for _, item := range items[:count] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if count < len(items) {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-count)
	}
	sb.WriteString("\n")
}

func field(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%-12s %s\n", label+":", value)
}

// ScoreLabel names the band of a match score.
func ScoreLabel(score int) string {
	switch {
	case score >= strongScore:
		return "strong"
	case score >= moderateScore:
		return "moderate"
	default:
		return "weak"
	}
}

// PrintJobAnalysis outputs the structured reading of the posting.
func (p *Printer) PrintJobAnalysis(analysis *types.JobAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder
	field(&sb, "Title", analysis.Title)
	field(&sb, "Company", analysis.Company)
	field(&sb, "Location", analysis.Location)
	field(&sb, "Seniority", analysis.Seniority)
	field(&sb, "Industry", analysis.Industry)
	field(&sb, "Salary", analysis.SalaryInfo)
	sb.WriteString("\n")

	if len(analysis.RequiredSkills) > 0 {
		fmt.Fprintf(&sb, "Required: %s\n", strings.Join(analysis.RequiredSkills, ", "))
	}
	if len(analysis.PreferredSkills) > 0 {
		fmt.Fprintf(&sb, "Preferred: %s\n", strings.Join(analysis.PreferredSkills, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(analysis.Summary)

	p.printBox("JOB ANALYSIS", strings.TrimSpace(sb.String()))
}

// PrintMatchAnalysis outputs the score, matches, gaps and summary.
func (p *Printer) PrintMatchAnalysis(match *types.MatchAnalysis) {
	if match == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Match score: %d/100 (%s)\n\n", match.OverallScore, ScoreLabel(match.OverallScore))

	writeMatches := func(heading string, matches []types.SkillMatch) {
		if len(matches) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s:\n", heading)
		for _, m := range matches {
			fmt.Fprintf(&sb, "  • %s", m.Skill)
			if m.Strength != "" {
				fmt.Fprintf(&sb, " [%s]", m.Strength)
			}
			sb.WriteString("\n")
			if m.Evidence != "" {
				fmt.Fprintf(&sb, "    %s\n", m.Evidence)
			}
		}
		sb.WriteString("\n")
	}
	writeMatches("Strong matches", match.StrongMatches)
	writeMatches("Partial matches", match.PartialMatches)
	bullets(&sb, "Gaps", match.Gaps, 0)
	bullets(&sb, "Transferable skills", match.TransferableSkills, maxItemsToShow)
	bullets(&sb, "Unique selling points", match.UniqueSellingPoints, 0)
	sb.WriteString(match.MatchSummary)

	p.printBox("SKILL MATCH", strings.TrimSpace(sb.String()))
}

// PrintWriterOutput outputs the cover letter and email in full.
func (p *Printer) PrintWriterOutput(output *types.WriterOutput) {
	if output == nil {
		return
	}

	p.printBox("COVER LETTER", strings.TrimSpace(output.CoverLetter))
	p.printBox("APPLICATION EMAIL", strings.TrimSpace(output.ApplicationEmail))
	if len(output.KeyThemes) > 0 {
		var sb strings.Builder
		bullets(&sb, "Key themes", output.KeyThemes, 0)
		p.printBox("KEY THEMES", strings.TrimSpace(sb.String()))
	}
}

// PrintAdvisorOutput outputs the recommendation and strategy.
func (p *Printer) PrintAdvisorOutput(output *types.AdvisorOutput) {
	if output == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recommendation: %s", output.OverallRecommendation)
	if output.ConfidenceLevel != "" {
		fmt.Fprintf(&sb, " (confidence: %s)", output.ConfidenceLevel)
	}
	sb.WriteString("\n\n")
	sb.WriteString(output.Strategy)
	sb.WriteString("\n\n")

	bullets(&sb, "CV tailoring", output.CVTailoring, 0)
	bullets(&sb, "Interview prep", output.InterviewPrep, 0)
	bullets(&sb, "Likely questions", output.PotentialQuestions, 0)
	bullets(&sb, "Networking", output.NetworkingSuggestions, 0)
	bullets(&sb, "Risk factors", output.RiskFactors, 0)

	p.printBox("APPLICATION STRATEGY", strings.TrimSpace(sb.String()))
}

// PrintStage outputs one line per completed stage.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStage(index, total int, stage, message string) {
	fmt.Fprintf(p.out, "[%d/%d] %-8s %s\n", index, total, stage, message)
}

// PrintError outputs a run error.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintError(message string) {
	fmt.Fprintf(p.out, "✗ Error: %s\n", message)
}

// PrintSaved outputs where the run was stored.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSaved(outputPath string, dbID int64) {
	if outputPath == "" && dbID == 0 {
		return
	}
	fmt.Fprintln(p.out, "Results saved:")
	if outputPath != "" {
		fmt.Fprintf(p.out, "  JSON:        %s\n", outputPath)
	}
	if dbID != 0 {
		fmt.Fprintf(p.out, "  Database ID: %d\n", dbID)
	}
}

// PrintFinal outputs every result present in the final state, then the error if any.
func (p *Printer) PrintFinal(state types.ApplicationState) {
	p.PrintJobAnalysis(state.JobAnalysis)
	p.PrintMatchAnalysis(state.MatchAnalysis)
	p.PrintWriterOutput(state.WriterOutput)
	p.PrintAdvisorOutput(state.AdvisorOutput)
	p.PrintSaved(state.OutputPath, state.DBID)
	if state.Error != "" {
		p.PrintError(state.Error)
	}
}

// PrintApplications outputs the application list as a table.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintApplications(apps []types.ApplicationSummary) {
	if len(apps) == 0 {
		fmt.Fprintln(p.out, "No applications found.")
		return
	}

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCOMPANY\tTITLE\tSCORE\tRECOMMENDATION\tSTATUS")
	for _, a := range apps {
		score := "-"
		if a.MatchScore != nil {
			score = fmt.Sprintf("%d", *a.MatchScore)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04"),
			orDash(a.Company), orDash(a.JobTitle), score, orDash(a.Recommendation), a.Status)
	}
	tw.Flush()
}

// PrintApplication outputs one stored application in full.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintApplication(rec *types.ApplicationRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	field(&sb, "ID", fmt.Sprintf("%d", rec.ID))
	field(&sb, "Created", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	field(&sb, "Run", rec.RunID)
	field(&sb, "URL", rec.JobURL)
	field(&sb, "Status", rec.Status)
	field(&sb, "Notes", rec.Notes)
	p.printBox("APPLICATION", strings.TrimSpace(sb.String()))

	p.PrintJobAnalysis(rec.JobAnalysis)
	p.PrintMatchAnalysis(rec.MatchAnalysis)
	p.PrintWriterOutput(rec.WriterOutput)
	p.PrintAdvisorOutput(rec.AdvisorOutput)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
