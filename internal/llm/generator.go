package llm

import "context"

// Generator defines the interface for single-shot free-text completion
type Generator interface {
	// Generate sends prompt to the model and returns its raw reply text
	Generate(ctx context.Context, prompt string) (string, error)
	// Close closes the generator and releases resources
	Close() error
}

// maxNewTokens caps the reply length; a split suggestion is a short JSON object
const maxNewTokens = 256
