package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonathan/job-assistant/internal/types"
	"go.uber.org/zap"
)

// Directory is a knowledge base stored as markdown files in one folder.
type Directory struct {
	Path   string
	Logger *zap.Logger
}

// NewDirectory returns a Directory rooted at path.
func NewDirectory(path string, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{Path: path, Logger: logger}
}

// Files returns the markdown files in the directory, sorted by name.
func (d *Directory) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(d.Path, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge base %s: %w", d.Path, err)
	}
	sort.Strings(files)
	return files, nil
}

// Chunks reads and chunks every markdown file in the directory.
// A missing or empty directory yields no chunks.
func (d *Directory) Chunks() ([]types.KnowledgeChunk, error) {
	if _, err := os.Stat(d.Path); os.IsNotExist(err) {
		d.Logger.Warn("knowledge base directory does not exist", zap.String("path", d.Path))
		return nil, nil
	}

	files, err := d.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		d.Logger.Warn("no markdown files found in knowledge base", zap.String("path", d.Path))
		return nil, nil
	}

	var all []types.KnowledgeChunk
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		chunks := Chunk(string(data), filepath.Base(path))
		d.Logger.Debug("loaded knowledge file",
			zap.String("file", filepath.Base(path)),
			zap.Int("chunks", len(chunks)))
		all = append(all, chunks...)
	}

	d.Logger.Info("knowledge base loaded", zap.Int("files", len(files)), zap.Int("chunks", len(all)))
	return all, nil
}
