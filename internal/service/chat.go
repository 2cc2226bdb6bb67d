package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/Rrens/chat-widget/internal/llm"
)

// RateLimiter limits chat turns per key
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
}

// TurnGuard serialises chat turns per session
type TurnGuard interface {
	Acquire(ctx context.Context, sessionID string) (token string, ok bool, err error)
	Release(ctx context.Context, sessionID, token string) error
}

// ProviderSource resolves the provider that answers a turn
type ProviderSource interface {
	GetProvider(name string) (llm.Provider, error)
}

// ChatService relays widget chat turns to an LLM provider
type ChatService struct {
	providers  ProviderSource
	limiter    RateLimiter
	guard      TurnGuard
	maxHistory int
}

// NewChatService creates a new chat service. limiter and guard may be nil.
func NewChatService(providers ProviderSource, limiter RateLimiter, guard TurnGuard, maxHistory int) *ChatService {
	return &ChatService{
		providers:  providers,
		limiter:    limiter,
		guard:      guard,
		maxHistory: maxHistory,
	}
}

// Reply answers one visitor message for the given agent
func (s *ChatService) Reply(ctx context.Context, req domain.ChatRequest) (string, error) {
	if s.limiter != nil {
		allowed, _, _, err := s.limiter.Allow(ctx, req.AgentID+":"+req.SessionID)
		if err != nil {
			// Redis outages must not take the chat down
			log.Warn().Err(err).Str("agent_id", req.AgentID).Msg("rate limit check failed")
		} else if !allowed {
			return "", domain.ErrRateLimited
		}
	}

	if s.guard != nil && req.SessionID != "" {
		token, ok, err := s.guard.Acquire(ctx, req.SessionID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", req.SessionID).Msg("turn guard unavailable")
		} else if !ok {
			return "", domain.ErrTurnInFlight
		} else {
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), req.SessionID, token); err != nil {
					log.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to release turn guard")
				}
			}()
		}
	}

	provider, err := s.providers.GetProvider("")
	if err != nil {
		return "", fmt.Errorf("failed to get LLM provider: %w", err)
	}

	llmReq := llm.Request{
		System: llm.BuildSystemPrompt(llm.PromptContext{
			AgentID:  req.AgentID,
			PageURL:  req.VisitorInfo.URL,
			Referrer: req.VisitorInfo.Referrer,
		}),
		Messages: conversation(req, s.maxHistory),
	}

	resp, err := provider.Chat(ctx, llmReq, "")
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", domain.ErrEmptyReply
	}

	log.Info().
		Str("agent_id", req.AgentID).
		Str("session_id", req.SessionID).
		Str("provider", provider.Name()).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("chat reply generated")

	return resp.Content, nil
}

// Chat lets in-process widgets use the service as their transport
// without an HTTP round trip
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	return s.Reply(ctx, req)
}

// conversation turns the widget history into provider messages. The
// widget sends the history including the current message; older clients
// may omit it, in which case it is appended.
func conversation(req domain.ChatRequest, maxHistory int) []llm.Message {
	msgs := make([]llm.Message, 0, len(req.ConversationHistory)+1)
	for _, t := range req.ConversationHistory {
		msgs = append(msgs, llm.Message{Role: string(t.Role), Content: t.Content})
	}

	if n := len(msgs); n == 0 || msgs[n-1].Role != llm.RoleUser || msgs[n-1].Content != req.Message {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Message})
	}

	return llm.TrimHistory(msgs, maxHistory)
}
