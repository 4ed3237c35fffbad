package ports

import "context"

// CompletionOptions tunes a single completion request.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// Format asks the provider for a response format, e.g. "json".
	Format string
}

// LanguageModel is the external text completion service used by the
// extraction stages.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}
