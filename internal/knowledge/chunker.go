// Package knowledge loads the personal knowledge base and splits it into retrievable chunks.
package knowledge

import (
	"path/filepath"
	"strings"

	"github.com/jonathan/job-assistant/internal/types"
)

// IntroSection names the content that precedes the first heading.
const IntroSection = "intro"

const headingPrefix = "## "

// Chunk splits a markdown document into one chunk per second-level section.
// The heading line stays as the first line of its section. Sections with only
// whitespace are dropped.
func Chunk(text, filename string) []types.KnowledgeChunk {
	base := filepath.Base(filename)
	source := strings.TrimSuffix(base, filepath.Ext(base))
	category := Categorize(base)

	var chunks []types.KnowledgeChunk
	section := IntroSection
	var lines []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content == "" {
			return
		}
		chunks = append(chunks, types.KnowledgeChunk{
			Text: content,
			Metadata: types.ChunkMetadata{
				Source:   source,
				Category: category,
				Section:  section,
			},
		})
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, headingPrefix) {
			flush()
			section = strings.TrimSpace(strings.TrimLeft(line, "# "))
			lines = []string{line}
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return chunks
}

// Categorize derives a coarse category from a knowledge-base filename.
func Categorize(filename string) string {
	base := filepath.Base(filename)
	switch {
	case strings.HasPrefix(base, "experience_"):
		return "experience"
	case strings.HasPrefix(base, "skills_"):
		return "skills"
	case strings.HasPrefix(base, "cv_"):
		return "profile"
	default:
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
}
