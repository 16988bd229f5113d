// Package llm abstracts the completion providers used for keyword
// expansion and headline summaries.
package llm

import "context"

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response holds the completion text and token accounting.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider is a completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config holds provider construction settings.
type Config struct {
	Provider       string
	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	MaxTokens      int
	Temperature    float64
	TimeoutSecs    int
}
