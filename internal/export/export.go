// Package export writes pipeline results to timestamped JSON files.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/types"
)

const (
	// DefaultDir is where exports land when no directory is configured.
	DefaultDir = "output"
	// maxSlugRunes bounds each of the company and title parts of a file name.
	maxSlugRunes = 20
	// maxAttempts bounds the suffixes tried when a file name is taken.
	maxAttempts = 10
	unknownSlug = "unknown"
	timeLayout  = "20060102_150405"
)

// Error represents a failed export.
type Error struct {
	Path  string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Path, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Document is the exported file layout. Absent outputs are written as null.
type Document struct {
	ExportedAt    time.Time            `json:"exported_at"`
	JobURL        *string              `json:"job_url"`
	JobAnalysis   *types.JobAnalysis   `json:"job_analysis"`
	MatchAnalysis *types.MatchAnalysis `json:"match_analysis"`
	WriterOutput  *types.WriterOutput  `json:"writer_output"`
	AdvisorOutput *types.AdvisorOutput `json:"advisor_output"`
}

// Exporter writes one file per run and never overwrites an existing file.
type Exporter struct {
	Dir    string
	Now    func() time.Time
	Logger *zap.Logger
}

// New creates an exporter writing into dir.
func New(dir string, logger *zap.Logger) *Exporter {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{Dir: dir, Now: time.Now, Logger: logger}
}

// Export writes the state's outputs and returns the file path.
func (e *Exporter) Export(state types.ApplicationState) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", &Error{Path: e.Dir, Cause: err}
	}

	now := e.Now()
	doc := Document{
		ExportedAt:    now,
		JobAnalysis:   state.JobAnalysis,
		MatchAnalysis: state.MatchAnalysis,
		WriterOutput:  state.WriterOutput,
		AdvisorOutput: state.AdvisorOutput,
	}
	if state.JobURL != "" {
		url := state.JobURL
		doc.JobURL = &url
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &Error{Path: e.Dir, Cause: err}
	}

	base := FileBase(now, state.JobAnalysis)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		name := base
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d", base, attempt)
		}
		path := filepath.Join(e.Dir, name+".json")

		err := writeExclusive(path, data)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &Error{Path: path, Cause: err}
		}
		e.Logger.Info("exported application", zap.String("path", path))
		return path, nil
	}
	return "", &Error{Path: filepath.Join(e.Dir, base+".json"), Cause: fs.ErrExist}
}

// FileBase is the file name without extension: timestamp, company and title.
func FileBase(t time.Time, analysis *types.JobAnalysis) string {
	company, title := unknownSlug, unknownSlug
	if analysis != nil {
		company, title = Slug(analysis.Company), Slug(analysis.Title)
	}
	return fmt.Sprintf("%s_%s_%s", t.Format(timeLayout), company, title)
}

// Slug lowercases s, replaces spaces and path separators with underscores and
// keeps the first 20 runes. Blank input yields "unknown".
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(s)
	if runes := []rune(s); len(runes) > maxSlugRunes {
		s = string(runes[:maxSlugRunes])
	}
	if s == "" {
		return unknownSlug
	}
	return s
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
