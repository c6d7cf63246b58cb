// Package llm provides the text-generation client used by the
// conversation engine.
package llm

import "context"

// Client is the interface the engine uses to reach a text-generation
// service. Implementations convert wire formats at this boundary.
type Client interface {
	// Generate sends a single completion request and returns the
	// response text.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// GenerateRequest is a provider-neutral completion request.
type GenerateRequest struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// GenerateResponse is a provider-neutral completion response.
type GenerateResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
