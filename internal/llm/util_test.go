package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{\"title\": \"SRE\"}\n```", `{"title": "SRE"}`},
		{"bare fence", "```\n{\"title\": \"SRE\"}\n```", `{"title": "SRE"}`},
		{"plain", `{"title": "SRE"}`, `{"title": "SRE"}`},
		{"preamble", "Here is the analysis:\n{\"overall_score\": 80}", `{"overall_score": 80}`},
		{"trailing prose", "{\"a\": 1}\n\nHope this helps!", `{"a": 1}`},
		{"array", "Themes:\n[\"ownership\", \"scale\"]", `["ownership", "scale"]`},
		{"braces in strings", `{"cover_letter": "Dear {team}, hi"} ok`, `{"cover_letter": "Dear {team}, hi"}`},
		{"escaped quotes", `{"q": "say \"hi\" }"}`, `{"q": "say \"hi\" }"}`},
		{"no json", "no structured content", "no structured content"},
		{"unbalanced", `{"a": 1`, `{"a": 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"x": {"y": [1, 2]}}`, extractJSONObject(`{"x": {"y": [1, 2]}} tail`))
	assert.Equal(t, `[[1], [2]]`, extractJSONArray(`[[1], [2]] tail`))
	assert.Equal(t, "", extractJSONObject("not json"))
	assert.Equal(t, "", extractJSONArray(""))
}
