package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCannedProviderAlwaysAnswers(t *testing.T) {
	p := NewCannedProvider("canned", "we will get back to you")

	text, err := p.Generate(context.Background(), Request{Prompt: "anything"})
	require.NoError(t, err)
	require.Equal(t, "we will get back to you", text)
}

func TestCannedProviderDefaultMessage(t *testing.T) {
	p := NewCannedProvider("canned", "")

	text, err := p.Generate(context.Background(), Request{Prompt: "anything"})
	require.NoError(t, err)
	require.NotEmpty(t, text)
}

func TestCannedProviderHonorsCancellation(t *testing.T) {
	p := NewCannedProvider("canned", "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{Prompt: "anything"})
	require.ErrorIs(t, err, context.Canceled)
}
