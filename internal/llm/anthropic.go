package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// AnthropicProvider implements Provider using the Claude Messages API. PDFs
// are sent as base64 document blocks, images as image blocks and anything
// else as a plain-text document.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Claude provider.
func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{
		client: &client,
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string {
	return "claude"
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	system, turns := systemAndTurns(req.Messages)
	if len(turns) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for i, msg := range turns {
		if msg.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		blocks := make([]anthropic.ContentBlockParamUnion, 0, 2)
		if req.Attachment != nil && i == len(turns)-1 {
			blocks = append(blocks, attachmentBlock(req.Attachment))
		}
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		messages = append(messages, anthropic.NewUserMessage(blocks...))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("claude returned an empty response (stop reason %q)", resp.StopReason)
	}

	return &CompletionResponse{
		Content:      content.String(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
	}, nil
}

func attachmentBlock(a *Attachment) anthropic.ContentBlockParamUnion {
	switch {
	case a.MIMEType == "application/pdf":
		return anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(a.Data),
		})
	case isImage(a.MIMEType):
		return anthropic.NewImageBlockBase64(a.MIMEType, base64.StdEncoding.EncodeToString(a.Data))
	default:
		return anthropic.NewDocumentBlock(anthropic.PlainTextSourceParam{
			Data: domain.ExtractText(a.Data),
		})
	}
}

// isImage reports whether the mime type is one the vision endpoints accept.
func isImage(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
