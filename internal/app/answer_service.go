package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"supportchat/internal/llm"
	"supportchat/internal/model"
	"supportchat/internal/rag"
)

const systemInstructions = "You are a support assistant for this organization. " +
	"Answer the customer's question using the provided knowledge-base excerpts when they are relevant. " +
	"If the excerpts do not contain the answer, say so and give general guidance. Do not make up facts."

// ChunkRetriever is the read side of the embedding index.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, tenantID uint, query string, k int) ([]rag.ScoredChunk, error)
}

// AnswerGenerator produces text for a composed prompt; the provider chain
// implements it.
type AnswerGenerator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Result, error)
}

// Turn is one prior exchange in the conversation, supplied by the session store.
type Turn struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type AnswerInput struct {
	TenantID    uint
	SessionID   string
	Message     string
	RecentTurns []Turn // chronological, oldest first
}

// Answer is a generated reply plus the grounding evidence behind it.
type Answer struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	ChunkIDs []uint `json:"chunk_ids"`
}

// AnswerService is the RAG orchestrator: retrieve relevant chunks, compose a
// prompt within the length budget, run the provider chain. Apart from
// malformed input it never fails from the caller's perspective; degraded
// paths (no documents, retrieval outage, all providers down) all still
// produce an answer.
type AnswerService struct {
	retriever      ChunkRetriever
	generator      AnswerGenerator
	topK           int
	maxTurns       int
	maxPromptChars int
}

func NewAnswerService(retriever ChunkRetriever, generator AnswerGenerator, topK, maxTurns, maxPromptChars int) *AnswerService {
	if topK < 1 {
		topK = 4
	}
	if maxTurns < 1 {
		maxTurns = 20
	}
	if maxPromptChars <= 0 {
		maxPromptChars = 24000
	}
	return &AnswerService{
		retriever:      retriever,
		generator:      generator,
		topK:           topK,
		maxTurns:       maxTurns,
		maxPromptChars: maxPromptChars,
	}
}

func (s *AnswerService) Answer(ctx context.Context, input AnswerInput) (*Answer, error) {
	if input.TenantID == 0 {
		return nil, ErrInvalidInput
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrInvalidInput
	}

	chunks, err := s.retriever.Retrieve(ctx, input.TenantID, message, s.topK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Retrieval being down must not take chat down with it; answer from
		// conversation context alone.
		log.Printf("retrieval failed for tenant %d: %v", input.TenantID, err)
		chunks = nil
	}

	prompt, used := s.composePrompt(chunks, input.RecentTurns, message)

	result, err := s.generator.Generate(ctx, llm.Request{
		System: systemInstructions,
		Prompt: prompt,
	})
	if err != nil {
		// Only context cancellation escapes the chain; no partial answer.
		return nil, err
	}

	chunkIDs := make([]uint, len(used))
	for i := range used {
		chunkIDs[i] = used[i].Chunk.ID
	}
	return &Answer{
		Text:     strings.TrimSpace(result.Text),
		Provider: result.Provider,
		ChunkIDs: chunkIDs,
	}, nil
}

// composePrompt assembles retrieved excerpts (score order), recent turns
// (chronological), and the new message. When the result exceeds the length
// budget it sheds lowest-score chunks first, then oldest turns; the user's
// own message is never cut.
func (s *AnswerService) composePrompt(chunks []rag.ScoredChunk, turns []Turn, message string) (string, []rag.ScoredChunk) {
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}

	for {
		prompt := renderPrompt(chunks, turns, message)
		if len([]rune(prompt)) <= s.maxPromptChars {
			return prompt, chunks
		}
		if len(chunks) > 0 {
			chunks = chunks[:len(chunks)-1]
			continue
		}
		if len(turns) > 0 {
			turns = turns[1:]
			continue
		}
		return prompt, chunks
	}
}

func renderPrompt(chunks []rag.ScoredChunk, turns []Turn, message string) string {
	var b strings.Builder

	if len(chunks) > 0 {
		b.WriteString("Based on the following information:\n\n")
		for i, c := range chunks {
			fmt.Fprintf(&b, "%d. %s\n\n", i+1, c.Chunk.Content)
		}
	}

	if len(turns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range turns {
			label := "Customer"
			if t.Sender == model.SenderAssistant {
				label = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, t.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Customer question: %s\n", message)
	return b.String()
}
