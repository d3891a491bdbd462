package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/config"
	"github.com/liliang-cn/docuchat/internal/domain"
	"github.com/liliang-cn/docuchat/internal/llm"
)

const (
	suggestionSystemPrompt = "You are an AI assistant designed to generate question suggestions for a given document. " +
		"The user will upload a document, and you will suggest 3 questions that the user could ask about the document. " +
		`Respond with JSON of the form {"suggestions": ["...", "...", "..."]}.`

	answerSystemPrompt = "You are a helpful AI assistant that answers questions based on the content of a document. " +
		"Use the attached document to answer the question."

	summarySystemPrompt = "You are an expert summarizer. Please summarize the attached document, " +
		"making sure to include all the key points."
)

// OrchestratorService implements the suggestion, answer and summary
// capabilities on top of an LLM provider
type OrchestratorService struct {
	provider llm.Provider
	cfg      config.LLMConfig
	logger   *zap.Logger
}

// NewOrchestratorService creates a new orchestrator service
func NewOrchestratorService(provider llm.Provider, cfg config.LLMConfig, logger *zap.Logger) *OrchestratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrchestratorService{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// GenerateSuggestions asks the model for questions about the document text
func (s *OrchestratorService) GenerateSuggestions(ctx context.Context, req *domain.SuggestionRequest) (*domain.SuggestionResponse, error) {
	text := truncateRunes(req.DocumentText, s.cfg.MaxDocumentChars)

	resp, err := s.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: suggestionSystemPrompt},
			{Role: llm.RoleUser, Content: "Document Text: " + text + "\n\nSuggestions:"},
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	return &domain.SuggestionResponse{Suggestions: parseSuggestions(resp.Content)}, nil
}

// AnswerQuestion answers a question with the decoded document attached
func (s *OrchestratorService) AnswerQuestion(ctx context.Context, req *domain.AnswerRequest) (*domain.AnswerResponse, error) {
	attachment, err := attachmentFromURI(req.DocumentDataURI)
	if err != nil {
		return nil, err
	}

	resp, err := s.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerSystemPrompt},
			{Role: llm.RoleUser, Content: "Question: " + req.Question + "\n\nAnswer:"},
		},
		Attachment: attachment,
	})
	if err != nil {
		return nil, err
	}

	return &domain.AnswerResponse{Answer: strings.TrimSpace(resp.Content)}, nil
}

// SummarizeDocument summarizes the decoded document
func (s *OrchestratorService) SummarizeDocument(ctx context.Context, req *domain.SummaryRequest) (*domain.SummaryResponse, error) {
	attachment, err := attachmentFromURI(req.DocumentDataURI)
	if err != nil {
		return nil, err
	}

	resp, err := s.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summarySystemPrompt},
			{Role: llm.RoleUser, Content: "Summarize this document."},
		},
		Attachment: attachment,
	})
	if err != nil {
		return nil, err
	}

	return &domain.SummaryResponse{Summary: strings.TrimSpace(resp.Content)}, nil
}

func (s *OrchestratorService) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	req.Model = s.cfg.Model
	req.MaxTokens = s.cfg.MaxTokens
	req.Temperature = s.cfg.Temperature

	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("llm completion",
		zap.String("provider", s.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.String("finish_reason", resp.FinishReason),
	)
	return resp, nil
}

func attachmentFromURI(uri string) (*llm.Attachment, error) {
	mimeType, data, err := domain.ParseDataURI(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &llm.Attachment{MIMEType: mimeType, Data: data}, nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// parseSuggestions accepts {"suggestions": [...]}, a bare JSON array, or
// one suggestion per line.
func parseSuggestions(content string) []string {
	content = stripCodeFence(content)

	var wrapped domain.SuggestionResponse
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Suggestions != nil {
		return wrapped.Suggestions
	}

	var list []string
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return list
	}

	var suggestions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			suggestions = append(suggestions, line)
		}
	}
	return suggestions
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.Index(content, "\n"); nl >= 0 {
		content = content[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(content), "```"))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
