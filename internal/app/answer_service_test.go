package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"supportchat/internal/llm"
	"supportchat/internal/model"
	"supportchat/internal/rag"
)

type stubRetriever struct {
	chunks []rag.ScoredChunk
	err    error
	calls  int
}

func (s *stubRetriever) Retrieve(ctx context.Context, tenantID uint, query string, k int) ([]rag.ScoredChunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

type stubGenerator struct {
	lastReq llm.Request
	result  llm.Result
	err     error
}

func (s *stubGenerator) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	s.lastReq = req
	if s.err != nil {
		return llm.Result{}, s.err
	}
	return s.result, nil
}

func scoredChunk(id uint, content string, score float64) rag.ScoredChunk {
	return rag.ScoredChunk{Chunk: model.Chunk{ID: id, Content: content}, Score: score}
}

func TestAnswerRejectsInvalidInput(t *testing.T) {
	svc := NewAnswerService(&stubRetriever{}, &stubGenerator{}, 4, 20, 24000)

	_, err := svc.Answer(context.Background(), AnswerInput{TenantID: 0, Message: "hello"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Answer(context.Background(), AnswerInput{TenantID: 1, Message: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnswerGroundsPromptInRetrievedChunks(t *testing.T) {
	retriever := &stubRetriever{chunks: []rag.ScoredChunk{
		scoredChunk(5, "Refunds are accepted within 30 days of purchase.", 0.91),
	}}
	generator := &stubGenerator{result: llm.Result{Text: "  You can get a refund within 30 days.  ", Provider: "gemini"}}
	svc := NewAnswerService(retriever, generator, 4, 20, 24000)

	answer, err := svc.Answer(context.Background(), AnswerInput{
		TenantID: 1,
		Message:  "what is the refund policy?",
	})
	require.NoError(t, err)
	require.Equal(t, "You can get a refund within 30 days.", answer.Text)
	require.Equal(t, "gemini", answer.Provider)
	require.Equal(t, []uint{5}, answer.ChunkIDs)

	require.Contains(t, generator.lastReq.Prompt, "Based on the following information:")
	require.Contains(t, generator.lastReq.Prompt, "Refunds are accepted within 30 days")
	require.Contains(t, generator.lastReq.Prompt, "Customer question: what is the refund policy?")
	require.NotEmpty(t, generator.lastReq.System)
}

func TestAnswerWithoutDocuments(t *testing.T) {
	generator := &stubGenerator{result: llm.Result{Text: "happy to help", Provider: "openai"}}
	svc := NewAnswerService(&stubRetriever{}, generator, 4, 20, 24000)

	answer, err := svc.Answer(context.Background(), AnswerInput{TenantID: 1, Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "happy to help", answer.Text)
	require.Empty(t, answer.ChunkIDs)
	require.NotContains(t, generator.lastReq.Prompt, "Based on the following information:")
}

func TestAnswerSurvivesRetrievalOutage(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("embedding api down")}
	generator := &stubGenerator{result: llm.Result{Text: "answer anyway", Provider: "gemini"}}
	svc := NewAnswerService(retriever, generator, 4, 20, 24000)

	answer, err := svc.Answer(context.Background(), AnswerInput{TenantID: 1, Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "answer anyway", answer.Text)
	require.Empty(t, answer.ChunkIDs)
}

func TestAnswerPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retriever := &stubRetriever{err: errors.New("context canceled")}
	svc := NewAnswerService(retriever, &stubGenerator{}, 4, 20, 24000)

	_, err := svc.Answer(ctx, AnswerInput{TenantID: 1, Message: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnswerIncludesRecentTurns(t *testing.T) {
	generator := &stubGenerator{result: llm.Result{Text: "ok", Provider: "gemini"}}
	svc := NewAnswerService(&stubRetriever{}, generator, 4, 20, 24000)

	_, err := svc.Answer(context.Background(), AnswerInput{
		TenantID: 1,
		Message:  "and how long does shipping take?",
		RecentTurns: []Turn{
			{Sender: model.SenderUser, Content: "do you ship to Canada?"},
			{Sender: model.SenderAssistant, Content: "Yes, we ship to Canada."},
		},
	})
	require.NoError(t, err)
	require.Contains(t, generator.lastReq.Prompt, "Conversation so far:")
	require.Contains(t, generator.lastReq.Prompt, "Customer: do you ship to Canada?")
	require.Contains(t, generator.lastReq.Prompt, "Assistant: Yes, we ship to Canada.")
}

func TestAnswerShedsChunksBeforeTurns(t *testing.T) {
	longA := strings.Repeat("a", 50)
	longB := strings.Repeat("b", 50)
	retriever := &stubRetriever{chunks: []rag.ScoredChunk{
		scoredChunk(1, longA, 0.9),
		scoredChunk(2, longB, 0.8),
	}}
	generator := &stubGenerator{result: llm.Result{Text: "ok", Provider: "gemini"}}
	svc := NewAnswerService(retriever, generator, 4, 20, 120)

	answer, err := svc.Answer(context.Background(), AnswerInput{TenantID: 1, Message: "hi"})
	require.NoError(t, err)
	// The lowest-scored chunk is dropped to fit the budget; the best one stays
	// and is the only citation.
	require.Equal(t, []uint{1}, answer.ChunkIDs)
	require.Contains(t, generator.lastReq.Prompt, longA)
	require.NotContains(t, generator.lastReq.Prompt, longB)
}

func TestAnswerShedsOldestTurnsLast(t *testing.T) {
	generator := &stubGenerator{result: llm.Result{Text: "ok", Provider: "gemini"}}
	svc := NewAnswerService(&stubRetriever{}, generator, 4, 20, 130)

	_, err := svc.Answer(context.Background(), AnswerInput{
		TenantID: 1,
		Message:  "q",
		RecentTurns: []Turn{
			{Sender: model.SenderUser, Content: strings.Repeat("x", 30)},
			{Sender: model.SenderAssistant, Content: strings.Repeat("y", 30)},
			{Sender: model.SenderUser, Content: strings.Repeat("z", 30)},
		},
	})
	require.NoError(t, err)
	require.NotContains(t, generator.lastReq.Prompt, strings.Repeat("x", 30))
	require.Contains(t, generator.lastReq.Prompt, strings.Repeat("z", 30))
}

func TestAnswerCapsTurnsToConfiguredMax(t *testing.T) {
	generator := &stubGenerator{result: llm.Result{Text: "ok", Provider: "gemini"}}
	svc := NewAnswerService(&stubRetriever{}, generator, 4, 2, 24000)

	_, err := svc.Answer(context.Background(), AnswerInput{
		TenantID: 1,
		Message:  "q",
		RecentTurns: []Turn{
			{Sender: model.SenderUser, Content: "oldest turn"},
			{Sender: model.SenderAssistant, Content: "middle turn"},
			{Sender: model.SenderUser, Content: "newest turn"},
		},
	})
	require.NoError(t, err)
	require.NotContains(t, generator.lastReq.Prompt, "oldest turn")
	require.Contains(t, generator.lastReq.Prompt, "middle turn")
	require.Contains(t, generator.lastReq.Prompt, "newest turn")
}
