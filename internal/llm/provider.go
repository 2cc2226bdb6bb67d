package llm

import "context"

// Message is one chat message sent to a provider
type Message struct {
	Role    string
	Content string
}

// Chat roles understood by every provider
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request contains a chat completion request
type Request struct {
	System   string
	Messages []Message
}

// Response contains LLM generation result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat produces the next assistant message for a conversation
	Chat(ctx context.Context, req Request, model string) (*Response, error)
}
