package llm

import (
	"context"
)

// Generation defaults, matching the serving defaults the handlers use.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
)

// GenerateOptions are per-request overrides. Nil pointer fields fall back to
// the handle's load-time defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature *float64
	TopP        *float64
}

// Generator produces text from a prompt. Loaded handles implement this.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
