package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/Rrens/chat-widget/internal/llm"
)

// MockProvider mocks the llm.Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) AvailableModels() []string {
	return []string{"mock-model"}
}

func (m *MockProvider) DefaultModel() string {
	return "mock-model"
}

func (m *MockProvider) IsConfigured() bool {
	return true
}

func (m *MockProvider) Chat(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

// MockProviderSource mocks the ProviderSource interface
type MockProviderSource struct {
	mock.Mock
}

func (m *MockProviderSource) GetProvider(name string) (llm.Provider, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(llm.Provider), args.Error(1)
}

// MockRateLimiter mocks the RateLimiter interface
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Int(1), args.Get(2).(time.Time), args.Error(3)
}

// MockTurnGuard mocks the TurnGuard interface
type MockTurnGuard struct {
	mock.Mock
}

func (m *MockTurnGuard) Acquire(ctx context.Context, sessionID string) (string, bool, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockTurnGuard) Release(ctx context.Context, sessionID, token string) error {
	args := m.Called(ctx, sessionID, token)
	return args.Error(0)
}

// MockTransport mocks the widget.Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
