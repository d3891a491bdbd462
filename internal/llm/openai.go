package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// OpenAIProvider implements Provider for OpenAI-compatible chat endpoints,
// Ollama included. The chat API has no file parts: images go as image_url
// data URIs and other documents are inlined as extracted text.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates a provider for OpenAI or an OpenAI-compatible server.
func NewOpenAIProvider(name, apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	lastUser := -1
	for i, msg := range req.Messages {
		if msg.Role == RoleUser {
			lastUser = i
		}
	}
	if lastUser < 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for i, msg := range req.Messages {
		m := openai.ChatCompletionMessage{Role: openAIRole(msg.Role)}
		if req.Attachment != nil && i == lastUser {
			m.MultiContent = attachmentParts(req.Attachment, msg.Content)
		} else {
			m.Content = msg.Content
		}
		messages = append(messages, m)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%s returned an empty response", p.name)
	}

	return &CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

func openAIRole(role Role) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func attachmentParts(a *Attachment, text string) []openai.ChatMessagePart {
	if isImage(a.MIMEType) {
		return []openai.ChatMessagePart{
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: domain.EncodeDataURI(a.MIMEType, a.Data)},
			},
			{Type: openai.ChatMessagePartTypeText, Text: text},
		}
	}
	return []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: "Document:\n" + domain.ExtractText(a.Data)},
		{Type: openai.ChatMessagePartTypeText, Text: text},
	}
}
