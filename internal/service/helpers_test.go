package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// fakeCapabilities is a scriptable stand-in for the AI capabilities. A
// non-nil gate makes the matching call block until the gate is closed or
// the context is cancelled.
type fakeCapabilities struct {
	mu sync.Mutex

	suggestions []string
	suggestErr  error
	suggestGate chan struct{}

	answer        string
	answerErr     error
	answerGate    chan struct{}
	answerStarted chan struct{}

	summary    string
	summaryErr error

	suggestCalls int
	answerCalls  int
	summaryCalls int
	lastAnswer   *domain.AnswerRequest
	lastSuggest  *domain.SuggestionRequest
	answerCtxErr error
}

func (f *fakeCapabilities) GenerateSuggestions(ctx context.Context, req *domain.SuggestionRequest) (*domain.SuggestionResponse, error) {
	f.mu.Lock()
	f.suggestCalls++
	f.lastSuggest = req
	gate := f.suggestGate
	suggestions, err := f.suggestions, f.suggestErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.SuggestionResponse{Suggestions: suggestions}, nil
}

func (f *fakeCapabilities) AnswerQuestion(ctx context.Context, req *domain.AnswerRequest) (*domain.AnswerResponse, error) {
	f.mu.Lock()
	f.answerCalls++
	f.lastAnswer = req
	gate, started := f.answerGate, f.answerStarted
	answer, err := f.answer, f.answerErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.answerCtxErr = ctx.Err()
			f.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.AnswerResponse{Answer: answer}, nil
}

func (f *fakeCapabilities) SummarizeDocument(ctx context.Context, req *domain.SummaryRequest) (*domain.SummaryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &domain.SummaryResponse{Summary: f.summary}, nil
}

func (f *fakeCapabilities) calls() (suggest, answer, summary int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestCalls, f.answerCalls, f.summaryCalls
}

// eventRecorder collects notified events
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Notify(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, len(r.events))
	for i, e := range r.events {
		titles[i] = e.Title
	}
	return titles
}

func (r *eventRecorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.Event{}
	}
	return r.events[len(r.events)-1]
}

func newTestConversation(t *testing.T, caps *fakeCapabilities) (*Conversation, *eventRecorder) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	events := &eventRecorder{}
	conv := NewConversation("test-session", ConversationOptions{
		Loader:      NewIngestService(logger),
		Suggestions: NewSuggestionClient(caps, logger),
		Answers:     NewAnswerClient(caps, logger),
		Summaries:   NewSummaryClient(caps, logger),
		Notifier:    events,
		Logger:      logger,
	})
	return conv, events
}
