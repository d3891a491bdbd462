package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docuchat/internal/config"
)

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &CompletionResponse{Content: "ok"}, nil
}

func TestSystemAndTurns(t *testing.T) {
	system, turns := systemAndTurns([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "be brief\n\nbe kind", system)
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestRateLimitedProviderPassesThrough(t *testing.T) {
	stub := &stubProvider{}
	p := NewRateLimitedProvider(stub, 600)
	assert.Equal(t, "stub", p.Name())

	resp, err := p.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, stub.calls)
}

func TestRateLimitedProviderDisabled(t *testing.T) {
	stub := &stubProvider{}
	assert.Same(t, Provider(stub), NewRateLimitedProvider(stub, 0))
}

func TestRateLimitedProviderHonoursContext(t *testing.T) {
	stub := &stubProvider{}
	p := NewRateLimitedProvider(stub, 1)

	_, err := p.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	// The second token is a minute away, longer than the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Complete(ctx, CompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestRateLimitedProviderPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	p := NewRateLimitedProvider(&stubProvider{err: boom}, 600)
	_, err := p.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	for _, name := range []string{config.ProviderGemini, config.ProviderClaude, config.ProviderOpenAI} {
		t.Run(name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), config.LLMConfig{Provider: name})
			assert.Error(t, err)
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), config.LLMConfig{Provider: "watson"})
	assert.Error(t, err)
}

func TestNewProviderOllama(t *testing.T) {
	p, err := NewProvider(context.Background(), config.LLMConfig{Provider: config.ProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewProvider(context.Background(), config.LLMConfig{Provider: config.ProviderClaude, APIKey: "k", RequestsPerMinute: 10})
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())
	assert.IsType(t, &RateLimitedProvider{}, p)
}

func TestAttachmentBlock(t *testing.T) {
	pdf := attachmentBlock(&Attachment{MIMEType: "application/pdf", Data: []byte("%PDF")})
	require.NotNil(t, pdf.OfDocument)
	require.NotNil(t, pdf.OfDocument.Source.OfBase64)
	assert.Equal(t, "JVBERg==", pdf.OfDocument.Source.OfBase64.Data)

	img := attachmentBlock(&Attachment{MIMEType: "image/png", Data: []byte{1, 2}})
	assert.NotNil(t, img.OfImage)

	text := attachmentBlock(&Attachment{MIMEType: "text/plain", Data: []byte("plain")})
	require.NotNil(t, text.OfDocument)
	require.NotNil(t, text.OfDocument.Source.OfText)
	assert.Equal(t, "plain", text.OfDocument.Source.OfText.Data)
}

func TestAttachmentParts(t *testing.T) {
	parts := attachmentParts(&Attachment{MIMEType: "image/jpeg", Data: []byte{0xff}}, "what is this?")
	require.Len(t, parts, 2)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[0].Type)
	assert.Equal(t, "data:image/jpeg;base64,/w==", parts[0].ImageURL.URL)
	assert.Equal(t, "what is this?", parts[1].Text)

	parts = attachmentParts(&Attachment{MIMEType: "application/pdf", Data: []byte("abc")}, "q")
	require.Len(t, parts, 2)
	assert.Equal(t, "Document:\nabc", parts[0].Text)
}

func TestOpenAIRole(t *testing.T) {
	assert.Equal(t, openai.ChatMessageRoleSystem, openAIRole(RoleSystem))
	assert.Equal(t, openai.ChatMessageRoleUser, openAIRole(RoleUser))
	assert.Equal(t, openai.ChatMessageRoleAssistant, openAIRole(RoleAssistant))
}
