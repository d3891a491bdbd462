package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/config"
	"github.com/liliang-cn/docuchat/internal/domain"
	"github.com/liliang-cn/docuchat/internal/notify"
)

// Capabilities bundles the AI capabilities a conversation calls
type Capabilities interface {
	SuggestionCapability
	AnswerCapability
	SummaryCapability
}

// SessionRecorder keeps the session audit trail
type SessionRecorder interface {
	Create(id string) error
	RecordDocument(id string, doc *domain.Document) error
	RecordQuestion(id string) error
	End(id string) error
}

// ChatService keeps one conversation per session and expires idle ones
type ChatService struct {
	sessions    *cache.Cache
	ingest      *IngestService
	suggestions *SuggestionClient
	answers     *AnswerClient
	summaries   *SummaryClient
	notifier    notify.Notifier
	recorder    SessionRecorder
	logger      *zap.Logger
}

// NewChatService creates a new chat service. recorder may be nil.
func NewChatService(
	cfg config.SessionConfig,
	ingest *IngestService,
	capabilities Capabilities,
	notifier notify.Notifier,
	recorder SessionRecorder,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	s := &ChatService{
		sessions:    cache.New(ttl, cleanup),
		ingest:      ingest,
		suggestions: NewSuggestionClient(capabilities, logger),
		answers:     NewAnswerClient(capabilities, logger),
		summaries:   NewSummaryClient(capabilities, logger),
		notifier:    notifier,
		recorder:    recorder,
		logger:      logger,
	}
	s.sessions.OnEvicted(s.onEvicted)
	return s
}

// CreateSession starts a new, empty conversation
func (s *ChatService) CreateSession() (domain.Snapshot, error) {
	id := uuid.New().String()
	conv := NewConversation(id, ConversationOptions{
		Loader:      s.ingest,
		Suggestions: s.suggestions,
		Answers:     s.answers,
		Summaries:   s.summaries,
		Notifier:    s.notifier,
		Logger:      s.logger,
	})

	if s.recorder != nil {
		if err := s.recorder.Create(id); err != nil {
			return domain.Snapshot{}, err
		}
	}
	s.sessions.Set(id, conv, cache.DefaultExpiration)
	s.logger.Info("session created", zap.String("session_id", id))

	return conv.Snapshot(), nil
}

// Get returns the conversation for a session and extends its lifetime
func (s *ChatService) Get(id string) (*Conversation, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	conv := v.(*Conversation)
	s.sessions.Set(id, conv, cache.DefaultExpiration)
	return conv, nil
}

// GetSnapshot returns the current state of a session
func (s *ChatService) GetSnapshot(id string) (domain.Snapshot, error) {
	conv, err := s.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return conv.Snapshot(), nil
}

// UploadDocument replaces the session's document. The snapshot is returned
// even when the upload fails so callers can render the error status.
func (s *ChatService) UploadDocument(ctx context.Context, id, filename string, data []byte, mimeType string) (domain.Snapshot, error) {
	conv, err := s.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}

	before := conv.Document()
	uploadErr := conv.UploadDocumentFile(ctx, filename, data, mimeType)
	// A failed load leaves the previous document in place; record only replacements.
	if doc := conv.Document(); doc != nil && doc != before && s.recorder != nil {
		if err := s.recorder.RecordDocument(id, doc); err != nil {
			s.logger.Warn("failed to record document", zap.String("session_id", id), zap.Error(err))
		}
	}
	return conv.Snapshot(), uploadErr
}

// RefreshSuggestions regenerates the suggestions of a session
func (s *ChatService) RefreshSuggestions(ctx context.Context, id string) (domain.Snapshot, error) {
	conv, err := s.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	err = conv.RefreshSuggestions(ctx)
	return conv.Snapshot(), err
}

// AskQuestion submits a question to a session
func (s *ChatService) AskQuestion(ctx context.Context, id, question string) (*domain.QuestionResponse, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	answer, err := conv.SubmitQuestion(ctx, question)
	resp := &domain.QuestionResponse{Answer: answer, Snapshot: conv.Snapshot()}
	if err != nil {
		return resp, err
	}

	if s.recorder != nil {
		if err := s.recorder.RecordQuestion(id); err != nil {
			s.logger.Warn("failed to record question", zap.String("session_id", id), zap.Error(err))
		}
	}
	return resp, nil
}

// SelectSuggestion sets the question draft of a session
func (s *ChatService) SelectSuggestion(id, text string) (domain.Snapshot, error) {
	conv, err := s.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	conv.SelectSuggestion(text)
	return conv.Snapshot(), nil
}

// Dismiss clears the error status of a session
func (s *ChatService) Dismiss(id string) (domain.Snapshot, error) {
	conv, err := s.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	conv.Dismiss()
	return conv.Snapshot(), nil
}

// Summarize summarizes the document of a session
func (s *ChatService) Summarize(ctx context.Context, id string) (*domain.SummaryResult, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	summary, err := conv.Summarize(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.SummaryResult{SessionID: id, Summary: summary}, nil
}

// EndSession drops a session
func (s *ChatService) EndSession(id string) error {
	if _, ok := s.sessions.Get(id); !ok {
		return domain.ErrNotFound
	}
	s.sessions.Delete(id)
	return nil
}

// ActiveSessions returns the number of live sessions
func (s *ChatService) ActiveSessions() int {
	return s.sessions.ItemCount()
}

// Shutdown ends every session
func (s *ChatService) Shutdown() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

func (s *ChatService) onEvicted(id string, v interface{}) {
	if conv, ok := v.(*Conversation); ok {
		conv.Close()
	}
	if s.recorder != nil {
		if err := s.recorder.End(id); err != nil {
			s.logger.Warn("failed to record session end", zap.String("session_id", id), zap.Error(err))
		}
	}
	s.logger.Info("session ended", zap.String("session_id", id))
}
