package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"supportchat/internal/model"
	"supportchat/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

// AsyncMessagePublisher hands finished turns to the persistence queue.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is the short-lived conversation cache in front of MySQL.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// ChatService drives a widget conversation: resolve or create the session,
// load recent turns, get an answer from the orchestrator, queue both turns
// for persistence. Sessions are created lazily on the first message, the way
// an anonymous widget visitor expects.
type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	answers      *AnswerService
	maxContext   int
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	answers *AnswerService,
	maxContext int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		answers:      answers,
		maxContext:   maxContext,
	}
}

type HandleMessageInput struct {
	TenantID  uint
	SessionID string // empty on a visitor's first message
	Content   string
}

type ChatResult struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Provider  string `json:"provider"`
	ChunkIDs  []uint `json:"chunk_ids,omitempty"`
}

func (s *ChatService) HandleMessage(ctx context.Context, input HandleMessageInput) (*ChatResult, error) {
	if input.TenantID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}

	session, err := s.resolveSession(input.TenantID, input.SessionID)
	if err != nil {
		return nil, err
	}

	recent, err := s.messageRepo.ListRecentBySessionID(session.ID, s.maxContext)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, len(recent))
	for i, m := range recent {
		turns[i] = Turn{Sender: m.Sender, Content: m.Content}
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, session.ID)
		_ = s.historyCache.DeleteHistory(ctx, session.ID)
	}

	userMessage := model.Message{
		SessionID: session.ID,
		TenantID:  input.TenantID,
		Sender:    model.SenderUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, userMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	answer, err := s.answers.Answer(ctx, AnswerInput{
		TenantID:    input.TenantID,
		SessionID:   session.ExternalID,
		Message:     content,
		RecentTurns: turns,
	})
	if err != nil {
		return nil, err
	}

	assistantMessage := model.Message{
		SessionID: session.ID,
		TenantID:  input.TenantID,
		Sender:    model.SenderAssistant,
		Content:   answer.Text,
		Provider:  answer.Provider,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, assistantMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	_ = s.sessionRepo.TouchActivity(session.ID, time.Now())

	return &ChatResult{
		SessionID: session.ExternalID,
		Reply:     answer.Text,
		Provider:  answer.Provider,
		ChunkIDs:  answer.ChunkIDs,
	}, nil
}

// GetHistory returns a session's messages, cache first.
func (s *ChatService) GetHistory(ctx context.Context, tenantID uint, sessionExternalID string, limit int) ([]model.Message, error) {
	if tenantID == 0 || strings.TrimSpace(sessionExternalID) == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByExternalID(tenantID, sessionExternalID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, session.ID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, session.ID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(session.ID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, session.ID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, session.ID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) ListSessions(tenantID uint, limit int) ([]model.Session, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByTenant(tenantID, limit)
}

func (s *ChatService) resolveSession(tenantID uint, externalID string) (*model.Session, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID != "" {
		session, err := s.sessionRepo.GetByExternalID(tenantID, externalID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}
	if externalID == "" {
		externalID = uuid.NewString()
	}
	session := &model.Session{
		ExternalID:   externalID,
		TenantID:     tenantID,
		LastActivity: time.Now(),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
