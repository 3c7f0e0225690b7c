// Package llm provides the language-model runner used by the scoring
// pipeline. Implementations return the raw text completion plus token usage.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable means no LLM binding is configured for this process.
var ErrUnavailable = errors.New("llm not configured")

// Usage is per-call token accounting.
type Usage struct {
	TokensIn  int
	TokensOut int
}

// Result is one completion.
type Result struct {
	Text  string
	Usage Usage
}

// Runner executes a single prompt and returns the completion text.
type Runner interface {
	// Complete runs system+user prompts through the model.
	Complete(ctx context.Context, system, user string) (*Result, error)
	// Model identifies the configured model for telemetry rows.
	Model() string
	// Available reports whether the runner can serve calls.
	Available() bool
}
