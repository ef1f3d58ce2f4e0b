package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/job-assistant/internal/schemas"
)

// Request describes one structured generation call.
type Request struct {
	// Prompt is the fully formatted instruction text.
	Prompt string
	// Schema names an embedded JSON Schema the response must satisfy.
	Schema string
	Tier   ModelTier
}

type validatable interface {
	Validate() error
}

type normalizable interface {
	Normalize()
}

// Generate asks the model for JSON, checks it against the named schema, and
// decodes it into T. When T has Normalize or Validate methods they run after
// decoding. Every failure is returned as a *GenerationError.
func Generate[T any](ctx context.Context, client Client, req Request) (*T, error) {
	prompt, err := withSchema(req.Prompt, req.Schema)
	if err != nil {
		return nil, &GenerationError{Schema: req.Schema, Message: "load schema", Cause: err}
	}

	raw, err := client.GenerateJSON(ctx, prompt, req.Tier)
	if err != nil {
		return nil, &GenerationError{Schema: req.Schema, Message: "model call failed", Cause: err}
	}

	cleaned := CleanJSONBlock(raw)
	if err := schemas.ValidateNamed(req.Schema, cleaned); err != nil {
		return nil, &GenerationError{Schema: req.Schema, Message: "response does not match schema", Cause: err}
	}

	out := new(T)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return nil, &GenerationError{Schema: req.Schema, Message: "decode response", Cause: err}
	}

	if n, ok := any(out).(normalizable); ok {
		n.Normalize()
	}
	if v, ok := any(out).(validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, &GenerationError{Schema: req.Schema, Message: "invalid field values", Cause: err}
		}
	}

	return out, nil
}

// withSchema appends the output contract to the prompt.
func withSchema(prompt, name string) (string, error) {
	schema, err := schemas.Get(name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(prompt))
	sb.WriteString("\n\nRespond with a single JSON object that conforms to this JSON Schema. ")
	sb.WriteString("Do not wrap it in markdown or add commentary.\n")
	sb.WriteString(fmt.Sprintf("```json\n%s\n```\n", strings.TrimSpace(schema)))
	return sb.String(), nil
}
