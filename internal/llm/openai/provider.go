package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Rrens/chat-widget/internal/llm"
)

// Provider implements llm.Provider for OpenAI compatible APIs
// (OpenAI itself, DeepSeek and other OpenAI style gateways)
type Provider struct {
	name         string
	apiKey       string
	defaultModel string
	models       []string
	client       *openai.Client
}

// NewProvider creates a new OpenAI compatible provider.
// An empty baseURL targets api.openai.com.
func NewProvider(name, apiKey, baseURL, defaultModel string) *Provider {
	if name == "" {
		name = "openai"
	}
	if defaultModel == "" {
		defaultModel = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Provider{
		name:         name,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		models:       modelsFor(name, defaultModel),
		client:       openai.NewClientWithConfig(config),
	}
}

func modelsFor(name, defaultModel string) []string {
	switch name {
	case "openai":
		return []string{
			openai.GPT4oMini,
			openai.GPT4o,
			openai.GPT4Turbo,
			openai.GPT3Dot5Turbo,
		}
	case "deepseek":
		return []string{"deepseek-chat", "deepseek-reasoner"}
	default:
		return []string{defaultModel}
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return p.models
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// Chat produces the next assistant message for a conversation
func (p *Provider) Chat(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: 0.4,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	return &llm.Response{
		Content:    llm.CleanReply(resp.Choices[0].Message.Content),
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
