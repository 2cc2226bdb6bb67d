package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/chat-widget/internal/config"
	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/Rrens/chat-widget/internal/llm"
	"github.com/Rrens/chat-widget/internal/service"
	"github.com/Rrens/chat-widget/internal/widget"
)

type echoProvider struct{}

func (echoProvider) Name() string              { return "echo" }
func (echoProvider) AvailableModels() []string { return []string{"echo"} }
func (echoProvider) DefaultModel() string      { return "echo" }
func (echoProvider) IsConfigured() bool        { return true }
func (echoProvider) Chat(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.Response{Content: "Vous avez dit : " + last.Content, Model: "echo"}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:              8080,
			MiddlewareTimeout: 5 * time.Second,
			AllowedOrigins:    []string{"https://shop.example.com"},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	llmRouter := llm.NewRouter("echo")
	llmRouter.RegisterProvider(echoProvider{})
	chat := service.NewChatService(llmRouter, nil, nil, 20)
	widgets := service.NewWidgetService(chat, service.WidgetServiceConfig{
		TTL:     time.Minute,
		Options: []widget.Option{widget.WithDelayPolicy(widget.DelayPolicy{})},
	})

	srv := httptest.NewServer(NewRouter(testConfig(), Dependencies{
		Store:   okPinger{},
		LLM:     llmRouter,
		Chat:    chat,
		Widgets: widgets,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_ProtocolClientRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	client := widget.NewClient(srv.URL, 2*time.Second)
	reply, err := client.Chat(context.Background(), domain.ChatRequest{
		AgentID:   "agent-7",
		SessionID: "session_1700000000000_abcdefghi",
		Message:   "Bonjour",
		ConversationHistory: []domain.ChatTurn{
			{Role: domain.RoleUser, Content: "Bonjour"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Vous avez dit : Bonjour", reply)
}

func TestRouter_EmbeddedWidgetOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	host, err := widget.ParseHost(strings.NewReader(`<html><body>
<script src="/w.js" data-agent-id="agent-7"></script></body></html>`), "https://shop.example.com/", "", "go-test")
	require.NoError(t, err)

	w, err := widget.Embed(host, widget.NewClient(srv.URL, 2*time.Second), widget.WithDelayPolicy(widget.DelayPolicy{}))
	require.NoError(t, err)
	defer w.Close()

	w.Toggle()
	require.True(t, w.Send("Un devis ?"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))

	msgs := w.Snapshot().Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "Vous avez dit : Un devis ?", msgs[2].Content)
}

func TestRouter_LongConversationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	host := widget.BlankHost("https://shop.example.com/", "", "go-test")
	cfg, err := widget.Resolve(map[string]string{widget.AttrAgentID: "agent-7"})
	require.NoError(t, err)
	w, err := widget.New(cfg, widget.NewClient(srv.URL, 2*time.Second), widget.WithDelayPolicy(widget.DelayPolicy{}))
	require.NoError(t, err)
	require.NoError(t, w.Mount(host))
	defer w.Close()

	w.Toggle()
	const turns = 130
	for i := 1; i <= turns; i++ {
		text := fmt.Sprintf("message %d", i)
		require.True(t, w.Send(text), "turn %d", i)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, w.Wait(ctx))
		cancel()

		msgs := w.Snapshot().Messages
		last := msgs[len(msgs)-1]
		require.Equal(t, "Vous avez dit : "+text, last.Content, "turn %d", i)
	}

	// greeting plus one user and one assistant entry per turn
	assert.Len(t, w.Snapshot().Messages, 1+2*turns)
}

func TestRouter_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/ready", http.StatusOK},
		{http.MethodGet, "/api/v1/llm-providers", http.StatusOK},
		{http.MethodGet, "/api/v1/widgets/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/widgets/7b1f4c1e-8a0e-4a55-9a59-1f0f9a3c2d11", http.StatusNotFound},
		{http.MethodGet, "/api/widget/chat", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/widget/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
