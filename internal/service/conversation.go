package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/domain"
	"github.com/liliang-cn/docuchat/internal/notify"
)

// MinQuestionLength is the minimum number of characters in a question
const MinQuestionLength = 2

// Event titles shown to users
const (
	titleSuccess              = "Success"
	titleSuggestionsGenerated = "Suggestions Generated"
	titleSuggestionsFailed    = "Error generating suggestions"
	titleError                = "Error"

	descUploadSucceeded    = "File uploaded successfully and suggestions generated."
	descSuggestionsRefresh = "Successfully generated question suggestions."
	descUploadFailed       = "File upload failed: "
)

// DocumentLoader turns uploaded bytes into a document
type DocumentLoader interface {
	LoadFile(filename string, fileBytes []byte, mimeType string) (*domain.Document, error)
}

// ConversationOptions holds the collaborators of a conversation
type ConversationOptions struct {
	Loader      DocumentLoader
	Suggestions *SuggestionClient
	Answers     *AnswerClient
	Summaries   *SummaryClient
	Notifier    notify.Notifier
	Logger      *zap.Logger
}

// Conversation owns the state of one document chat. It is the only writer
// of that state. The mutex is never held while an external call runs.
type Conversation struct {
	id          string
	loader      DocumentLoader
	suggestions *SuggestionClient
	answers     *AnswerClient
	summaries   *SummaryClient
	notifier    notify.Notifier
	logger      *zap.Logger

	mu              sync.Mutex
	document        *domain.Document
	history         []domain.ChatMessage
	suggested       []string
	pendingQuestion string
	status          domain.Status
	sequence        int64

	// version changes whenever the document is replaced. A question captures
	// it on submission and discards its answer if it no longer matches.
	version    uint64
	uploading  bool
	asking     bool
	cancelAsk  context.CancelFunc
	lastActive time.Time
}

// NewConversation creates an empty conversation
func NewConversation(id string, opts ConversationOptions) *Conversation {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Conversation{
		id:          id,
		loader:      opts.Loader,
		suggestions: opts.Suggestions,
		answers:     opts.Answers,
		summaries:   opts.Summaries,
		notifier:    notifier,
		logger:      logger.With(zap.String("session_id", id)),
		history:     []domain.ChatMessage{},
		suggested:   []string{},
		status:      domain.IdleStatus(),
		lastActive:  time.Now(),
	}
}

// ID returns the session ID of the conversation
func (c *Conversation) ID() string {
	return c.id
}

// UploadDocument loads fileBytes as the conversation's document and
// generates suggestions for it.
func (c *Conversation) UploadDocument(ctx context.Context, fileBytes []byte, mimeType string) error {
	return c.UploadDocumentFile(ctx, "", fileBytes, mimeType)
}

// UploadDocumentFile is UploadDocument with the original filename recorded.
// A question in flight is superseded: its call is cancelled and its answer
// is never attached to the new document.
func (c *Conversation) UploadDocumentFile(ctx context.Context, filename string, fileBytes []byte, mimeType string) error {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return &domain.ServiceError{Kind: domain.ErrBusy}
	}
	c.uploading = true
	c.touchLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	doc, err := c.loader.LoadFile(filename, fileBytes, mimeType)
	if err != nil {
		c.mu.Lock()
		// The old document stays, so a question in flight keeps its status.
		if !c.asking {
			c.status = domain.ErrorStatus(err.Error())
		}
		c.mu.Unlock()

		c.logger.Warn("document load failed", zap.Error(err))
		c.emit(domain.EventError, titleError, descUploadFailed+err.Error())
		return err
	}

	c.mu.Lock()
	if c.cancelAsk != nil {
		c.logger.Info("superseding in-flight question")
		c.cancelAsk()
		c.cancelAsk = nil
		c.asking = false
	}
	c.version++
	c.document = doc
	c.suggested = []string{}
	c.status = domain.Status{Kind: domain.StatusAwaitingSuggestions}
	c.mu.Unlock()

	if err := c.generateSuggestions(ctx, doc); err != nil {
		c.emit(domain.EventError, titleSuggestionsFailed, err.Error())
		return err
	}

	c.emit(domain.EventSuccess, titleSuggestionsGenerated, descSuggestionsRefresh)
	c.emit(domain.EventSuccess, titleSuccess, descUploadSucceeded)
	return nil
}

// RefreshSuggestions asks for a new set of suggestions for the current document
func (c *Conversation) RefreshSuggestions(ctx context.Context) error {
	c.mu.Lock()
	if c.document == nil {
		c.mu.Unlock()
		return &domain.ValidationError{Kind: domain.ErrNoDocument}
	}
	if c.uploading || c.asking {
		c.mu.Unlock()
		return &domain.ServiceError{Kind: domain.ErrBusy}
	}
	c.uploading = true
	c.touchLocked()
	doc := c.document
	c.status = domain.Status{Kind: domain.StatusAwaitingSuggestions}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	if err := c.generateSuggestions(ctx, doc); err != nil {
		c.emit(domain.EventError, titleSuggestionsFailed, err.Error())
		return err
	}

	c.emit(domain.EventSuccess, titleSuggestionsGenerated, descSuggestionsRefresh)
	return nil
}

// generateSuggestions runs the suggestion client and stores its outcome.
// The caller holds the upload slot, so the document cannot change meanwhile.
func (c *Conversation) generateSuggestions(ctx context.Context, doc *domain.Document) error {
	suggestions, err := c.suggestions.Suggest(ctx, doc.ExtractedText)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = domain.ErrorStatus(err.Error())
		c.logger.Warn("suggestion generation failed", zap.Error(err))
		return err
	}
	c.suggested = suggestions
	c.status = domain.IdleStatus()
	c.logger.Debug("suggestions stored", zap.Int("count", len(suggestions)))
	return nil
}

// SubmitQuestion appends the question to the history, asks it against the
// current document and appends the answer. The question stays in the
// history even when answering fails.
func (c *Conversation) SubmitQuestion(ctx context.Context, text string) (*domain.ChatMessage, error) {
	question := strings.TrimSpace(text)

	c.mu.Lock()
	if c.document == nil {
		c.mu.Unlock()
		return nil, &domain.ValidationError{Kind: domain.ErrNoDocument}
	}
	if len([]rune(question)) < MinQuestionLength {
		c.mu.Unlock()
		return nil, &domain.ValidationError{Kind: domain.ErrTooShort}
	}
	// Only an upload may interrupt a question, never the reverse.
	if c.asking || c.uploading {
		c.mu.Unlock()
		return nil, &domain.ServiceError{Kind: domain.ErrBusy}
	}

	askCtx, cancel := context.WithCancel(ctx)
	c.asking = true
	c.cancelAsk = cancel
	version := c.version
	documentURI := c.document.DataURI
	c.appendLocked(domain.RoleUser, question)
	c.pendingQuestion = question
	c.status = domain.Status{Kind: domain.StatusAwaitingAnswer}
	c.touchLocked()
	c.mu.Unlock()

	answer, err := c.answers.Answer(askCtx, documentURI, question)
	cancel()

	c.mu.Lock()
	if c.version != version {
		c.mu.Unlock()
		c.logger.Info("discarding answer for replaced document")
		return nil, &domain.ServiceError{Kind: domain.ErrSuperseded}
	}
	c.asking = false
	c.cancelAsk = nil

	if err != nil {
		c.status = domain.ErrorStatus(err.Error())
		c.mu.Unlock()

		c.logger.Warn("answer failed", zap.Error(err))
		c.emit(domain.EventError, titleError, err.Error())
		return nil, err
	}

	msg := c.appendLocked(domain.RoleAssistant, answer)
	c.pendingQuestion = ""
	c.status = domain.IdleStatus()
	c.mu.Unlock()

	return &msg, nil
}

// SelectSuggestion places text in the question draft
func (c *Conversation) SelectSuggestion(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingQuestion = text
	c.touchLocked()
}

// Dismiss clears an error status
func (c *Conversation) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Kind == domain.StatusError {
		c.status = domain.IdleStatus()
	}
	c.touchLocked()
}

// Summarize returns a summary of the current document. It does not change
// the conversation.
func (c *Conversation) Summarize(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.document == nil {
		c.mu.Unlock()
		return "", &domain.ValidationError{Kind: domain.ErrNoDocument}
	}
	documentURI := c.document.DataURI
	c.touchLocked()
	c.mu.Unlock()

	summary, err := c.summaries.Summarize(ctx, documentURI)
	if err != nil {
		c.logger.Warn("summary failed", zap.Error(err))
		c.emit(domain.EventError, titleError, err.Error())
		return "", err
	}
	return summary, nil
}

// Snapshot returns a detached copy of the conversation state
func (c *Conversation) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := domain.Snapshot{
		SessionID:       c.id,
		History:         make([]domain.ChatMessage, len(c.history)),
		Suggestions:     make([]string, len(c.suggested)),
		PendingQuestion: c.pendingQuestion,
		Status:          c.status,
	}
	copy(snap.History, c.history)
	copy(snap.Suggestions, c.suggested)
	if c.document != nil {
		// Documents are immutable, so the byte slices can be shared.
		doc := *c.document
		snap.Document = &doc
	}
	return snap
}

// Document returns the current document, or nil
func (c *Conversation) Document() *domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.document
}

// LastActive returns the time of the last operation
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Close cancels any question in flight
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelAsk != nil {
		c.cancelAsk()
		c.cancelAsk = nil
	}
}

func (c *Conversation) appendLocked(role domain.Role, text string) domain.ChatMessage {
	c.sequence++
	msg := domain.ChatMessage{
		Role:      role,
		Text:      text,
		Sequence:  c.sequence,
		CreatedAt: time.Now(),
	}
	c.history = append(c.history, msg)
	return msg
}

func (c *Conversation) touchLocked() {
	c.lastActive = time.Now()
}

func (c *Conversation) emit(level domain.EventLevel, title, description string) {
	c.notifier.Notify(domain.Event{
		SessionID:   c.id,
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	})
}
