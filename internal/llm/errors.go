package llm

import "fmt"

// APICallError represents an error from the Gemini API
type APICallError struct {
	Model   string
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call to %s failed: %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("API call to %s failed: %s", e.Model, e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// GenerationError means a structured output could not be produced, whether
// the model call failed or its response did not match the schema.
type GenerationError struct {
	Schema  string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("could not generate %s: %s: %v", e.Schema, e.Message, e.Cause)
	}
	return fmt.Sprintf("could not generate %s: %s", e.Schema, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
