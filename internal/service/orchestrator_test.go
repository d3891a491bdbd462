package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/liliang-cn/docuchat/internal/config"
	"github.com/liliang-cn/docuchat/internal/domain"
	"github.com/liliang-cn/docuchat/internal/llm"
)

type scriptedProvider struct {
	content string
	err     error
	last    llm.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.content, Model: "test-model"}, nil
}

func newTestOrchestrator(t *testing.T, p *scriptedProvider, maxChars int) *OrchestratorService {
	return NewOrchestratorService(p, config.LLMConfig{
		Model:            "test-model",
		MaxTokens:        512,
		Temperature:      0.3,
		MaxDocumentChars: maxChars,
	}, zaptest.NewLogger(t))
}

func TestGenerateSuggestionsParsesJSON(t *testing.T) {
	p := &scriptedProvider{content: `{"suggestions": ["What is the total?", "Who signed?", "When is it due?"]}`}
	svc := newTestOrchestrator(t, p, 0)

	resp, err := svc.GenerateSuggestions(context.Background(), &domain.SuggestionRequest{DocumentText: "invoice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"What is the total?", "Who signed?", "When is it due?"}, resp.Suggestions)

	assert.True(t, p.last.JSONMode)
	assert.Nil(t, p.last.Attachment)
	assert.Equal(t, "test-model", p.last.Model)
	assert.Equal(t, 512, p.last.MaxTokens)
	assert.InDelta(t, 0.3, p.last.Temperature, 1e-9)
	require.Len(t, p.last.Messages, 2)
	assert.Equal(t, llm.RoleSystem, p.last.Messages[0].Role)
	assert.Contains(t, p.last.Messages[1].Content, "Document Text: invoice")
}

func TestGenerateSuggestionsTruncatesDocument(t *testing.T) {
	p := &scriptedProvider{content: `[]`}
	svc := newTestOrchestrator(t, p, 5)

	_, err := svc.GenerateSuggestions(context.Background(), &domain.SuggestionRequest{DocumentText: "ééééééééé"})
	require.NoError(t, err)
	assert.Contains(t, p.last.Messages[1].Content, "Document Text: ééééé\n")
}

func TestParseSuggestions(t *testing.T) {
	cases := map[string]struct {
		in   string
		want []string
	}{
		"wrapped object": {`{"suggestions":["a?","b?"]}`, []string{"a?", "b?"}},
		"bare array":     {`["a?","b?","c?"]`, []string{"a?", "b?", "c?"}},
		"code fence":     {"```json\n{\"suggestions\":[\"x?\"]}\n```", []string{"x?"}},
		"numbered lines": {"1. What is it?\n2) Who wrote it?\n\n- Why 2024?", []string{"What is it?", "Who wrote it?", "Why 2024?"}},
		"leading digits": {"2024 revenue?", []string{"2024 revenue?"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseSuggestions(tc.in))
		})
	}
}

func TestAnswerQuestionAttachesDocument(t *testing.T) {
	p := &scriptedProvider{content: "  The total is $40.  "}
	svc := newTestOrchestrator(t, p, 0)

	resp, err := svc.AnswerQuestion(context.Background(), &domain.AnswerRequest{
		DocumentDataURI: domain.EncodeDataURI("application/pdf", samplePDF),
		Question:        "What is the total?",
	})
	require.NoError(t, err)
	assert.Equal(t, "The total is $40.", resp.Answer)

	require.NotNil(t, p.last.Attachment)
	assert.Equal(t, "application/pdf", p.last.Attachment.MIMEType)
	assert.Equal(t, samplePDF, p.last.Attachment.Data)
	assert.False(t, p.last.JSONMode)
	assert.Contains(t, p.last.Messages[1].Content, "Question: What is the total?")
}

func TestAnswerQuestionRejectsBadURI(t *testing.T) {
	p := &scriptedProvider{content: "unused"}
	svc := newTestOrchestrator(t, p, 0)

	_, err := svc.AnswerQuestion(context.Background(), &domain.AnswerRequest{DocumentDataURI: "garbage", Question: "q?"})
	assert.Error(t, err)
	assert.Empty(t, p.last.Messages)
}

func TestSummarizeDocumentPropagatesProviderError(t *testing.T) {
	cause := errors.New("upstream 500")
	p := &scriptedProvider{err: cause}
	svc := newTestOrchestrator(t, p, 0)

	_, err := svc.SummarizeDocument(context.Background(), &domain.SummaryRequest{
		DocumentDataURI: domain.EncodeDataURI("text/plain", []byte("text")),
	})
	assert.ErrorIs(t, err, cause)
}

func TestSummarizeDocument(t *testing.T) {
	p := &scriptedProvider{content: "Summary.\n"}
	svc := newTestOrchestrator(t, p, 0)

	resp, err := svc.SummarizeDocument(context.Background(), &domain.SummaryRequest{
		DocumentDataURI: domain.EncodeDataURI("text/plain", []byte("text")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Summary.", resp.Summary)
	assert.Equal(t, []byte("text"), p.last.Attachment.Data)
}
