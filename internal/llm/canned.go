package llm

import (
	"context"
	"strings"
)

// CannedProvider is the last resort in a chain: it answers every prompt with
// a fixed message and never fails, short of the caller cancelling.
type CannedProvider struct {
	name    string
	message string
}

func NewCannedProvider(name, message string) *CannedProvider {
	if strings.TrimSpace(message) == "" {
		message = "Thanks for reaching out. A member of our support team will follow up with you shortly."
	}
	if name == "" {
		name = "canned"
	}
	return &CannedProvider{name: name, message: message}
}

func (p *CannedProvider) Name() string { return p.name }

func (p *CannedProvider) Generate(ctx context.Context, _ Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.message, nil
}
