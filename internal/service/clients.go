package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// SuggestionCapability generates questions a reader might ask about a document
type SuggestionCapability interface {
	GenerateSuggestions(ctx context.Context, req *domain.SuggestionRequest) (*domain.SuggestionResponse, error)
}

// AnswerCapability answers a question against an encoded document
type AnswerCapability interface {
	AnswerQuestion(ctx context.Context, req *domain.AnswerRequest) (*domain.AnswerResponse, error)
}

// SummaryCapability summarizes an encoded document
type SummaryCapability interface {
	SummarizeDocument(ctx context.Context, req *domain.SummaryRequest) (*domain.SummaryResponse, error)
}

// SuggestionClient validates input for and calls the suggestion capability.
// It never retries and never caches.
type SuggestionClient struct {
	capability SuggestionCapability
	logger     *zap.Logger
}

// NewSuggestionClient creates a new suggestion client
func NewSuggestionClient(capability SuggestionCapability, logger *zap.Logger) *SuggestionClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionClient{capability: capability, logger: logger}
}

// Suggest returns the suggestions for documentText in the order produced,
// with blank entries dropped.
func (c *SuggestionClient) Suggest(ctx context.Context, documentText string) ([]string, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, domain.NewInvalidInputError("document text is empty")
	}

	resp, err := c.capability.GenerateSuggestions(ctx, &domain.SuggestionRequest{DocumentText: documentText})
	if err != nil {
		c.logger.Warn("suggestion request failed", zap.Error(err))
		return nil, domain.NewUpstreamError(err)
	}
	if resp == nil {
		return []string{}, nil
	}

	suggestions := make([]string, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions, nil
}

// AnswerClient validates input for and calls the answering capability
type AnswerClient struct {
	capability AnswerCapability
	logger     *zap.Logger
}

// NewAnswerClient creates a new answer client
func NewAnswerClient(capability AnswerCapability, logger *zap.Logger) *AnswerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerClient{capability: capability, logger: logger}
}

// Answer asks question against the document encoded in documentURI.
func (c *AnswerClient) Answer(ctx context.Context, documentURI, question string) (string, error) {
	if _, _, err := domain.ParseDataURI(documentURI); err != nil {
		return "", domain.NewInvalidInputError(err.Error())
	}
	if strings.TrimSpace(question) == "" {
		return "", domain.NewInvalidInputError("question is empty")
	}

	resp, err := c.capability.AnswerQuestion(ctx, &domain.AnswerRequest{
		DocumentDataURI: documentURI,
		Question:        question,
	})
	if err != nil {
		c.logger.Warn("answer request failed", zap.Error(err))
		return "", domain.NewUpstreamError(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Answer, nil
}

// SummaryClient validates input for and calls the summarization capability
type SummaryClient struct {
	capability SummaryCapability
	logger     *zap.Logger
}

// NewSummaryClient creates a new summary client
func NewSummaryClient(capability SummaryCapability, logger *zap.Logger) *SummaryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryClient{capability: capability, logger: logger}
}

// Summarize returns a summary of the document encoded in documentURI.
func (c *SummaryClient) Summarize(ctx context.Context, documentURI string) (string, error) {
	if _, _, err := domain.ParseDataURI(documentURI); err != nil {
		return "", domain.NewInvalidInputError(err.Error())
	}

	resp, err := c.capability.SummarizeDocument(ctx, &domain.SummaryRequest{DocumentDataURI: documentURI})
	if err != nil {
		c.logger.Warn("summary request failed", zap.Error(err))
		return "", domain.NewUpstreamError(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Summary, nil
}
