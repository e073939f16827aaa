package llm

import "context"

// Request is the uniform input every generation backend accepts: a composed
// prompt, optional system instructions, and a token budget.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Provider is a single language-model backend. A provider either returns
// non-empty text or an error; retry/backoff policy, if any, belongs inside
// the provider's own call, never in the chain.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
