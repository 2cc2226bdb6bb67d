package widget

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records requests and answers them with reply. When gate is
// non-nil every call blocks until a value is sent on it.
type fakeTransport struct {
	mu    sync.Mutex
	calls []domain.ChatRequest
	reply func(req domain.ChatRequest) (string, error)
	gate  chan struct{}
}

func (f *fakeTransport) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.reply == nil {
		return "reply to " + req.Message, nil
	}
	return f.reply(req)
}

func (f *fakeTransport) Calls() []domain.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ChatRequest, len(f.calls))
	copy(out, f.calls)
	return out
}

const testPage = `<!DOCTYPE html>
<html><head><style>button { background: hotpink !important; }</style></head>
<body><main id="host-app">Host content</main>
<script src="https://cdn.example.com/widget.js" data-agent-id="agent-7" data-name="Léa" data-auto-open="true" data-delay="5000"></script>
</body></html>`

func newTestWidget(t *testing.T, cfg domain.WidgetConfig, transport Transport, opts ...Option) *Widget {
	t.Helper()
	w, err := New(cfg, transport, opts...)
	require.NoError(t, err)
	w.sleep = func(time.Duration) {}
	t.Cleanup(w.Close)
	return w
}

func mustResolve(t *testing.T, attrs map[string]string) domain.WidgetConfig {
	t.Helper()
	if _, ok := attrs[AttrAgentID]; !ok {
		attrs[AttrAgentID] = "agent-7"
	}
	cfg, err := Resolve(attrs)
	require.NoError(t, err)
	return cfg
}

func waitTurn(t *testing.T, w *Widget) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))
}

func TestEmbed_MissingAgentIDRendersNothing(t *testing.T) {
	page := strings.Replace(testPage, `data-agent-id="agent-7"`, `data-agent-id=""`, 1)
	host, err := ParseHost(strings.NewReader(page), "https://shop.example.com/", "", "test-agent")
	require.NoError(t, err)
	before := renderDocument(t, host)

	transport := &fakeTransport{}
	w, err := Embed(host, transport)

	assert.Nil(t, w)
	assert.ErrorIs(t, err, ErrMissingAgentID)
	assert.Equal(t, before, renderDocument(t, host))
	assert.Empty(t, transport.Calls())
}

func TestEmbed_NoScriptTag(t *testing.T) {
	host := BlankHost("https://shop.example.com/", "", "")
	_, err := Embed(host, &fakeTransport{})
	assert.ErrorIs(t, err, ErrNoScriptTag)
}

func TestNew_RequiresAgentAndTransport(t *testing.T) {
	_, err := New(domain.WidgetConfig{}, &fakeTransport{})
	assert.ErrorIs(t, err, ErrMissingAgentID)

	_, err = New(domain.WidgetConfig{AgentID: "a"}, nil)
	assert.Error(t, err)
}

func TestEmbed_MountsFromScriptTag(t *testing.T) {
	host, err := ParseHost(strings.NewReader(testPage), "https://shop.example.com/p/1", "https://google.com", "Mozilla/5.0")
	require.NoError(t, err)

	transport := &fakeTransport{}
	w, err := Embed(host, transport)
	require.NoError(t, err)
	w.sleep = func(time.Duration) {}
	t.Cleanup(w.Close)

	cfg := w.Config()
	assert.Equal(t, "agent-7", cfg.AgentID)
	assert.Equal(t, "Léa", cfg.DisplayName)
	assert.True(t, cfg.AutoOpen)
	assert.Equal(t, 5000, cfg.AutoOpenDelayMs)

	require.True(t, w.Send("Bonjour"))
	waitTurn(t, w)

	calls := transport.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.VisitorInfo{
		URL:       "https://shop.example.com/p/1",
		Referrer:  "https://google.com",
		UserAgent: "Mozilla/5.0",
	}, calls[0].VisitorInfo)
}

func TestWidget_SessionIDStableAcrossSends(t *testing.T) {
	transport := &fakeTransport{}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	id := w.Snapshot().SessionID
	for i := 0; i < 5; i++ {
		require.True(t, w.Send("message"))
		waitTurn(t, w)
		assert.Equal(t, id, w.Snapshot().SessionID)
	}

	for _, c := range transport.Calls() {
		assert.Equal(t, id, c.SessionID)
		assert.Equal(t, "agent-7", c.AgentID)
	}
}

func TestWidget_LogAlternatesUserAssistant(t *testing.T) {
	transport := &fakeTransport{
		reply: func(req domain.ChatRequest) (string, error) {
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			return "ok: " + req.Message, nil
		},
	}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	const turns = 8
	for i := 0; i < turns; i++ {
		require.True(t, w.Send("question"))
		waitTurn(t, w)
	}

	msgs := w.Snapshot().Messages
	require.Len(t, msgs, 2*turns)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role, "message %d", i)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role, "message %d", i)
		}
	}
}

func TestWidget_RequestCarriesHistory(t *testing.T) {
	transport := &fakeTransport{}
	w := newTestWidget(t, mustResolve(t, map[string]string{AttrGreeting: "Salut"}), transport)

	w.Toggle()
	require.True(t, w.Send("  Quels horaires ?  "))
	waitTurn(t, w)
	require.True(t, w.Send("Et le samedi ?"))
	waitTurn(t, w)

	calls := transport.Calls()
	require.Len(t, calls, 2)

	assert.Equal(t, "Quels horaires ?", calls[0].Message)
	assert.Equal(t, []domain.ChatTurn{
		{Role: domain.RoleAssistant, Content: "Salut"},
		{Role: domain.RoleUser, Content: "Quels horaires ?"},
	}, calls[0].ConversationHistory)

	assert.Equal(t, []domain.ChatTurn{
		{Role: domain.RoleAssistant, Content: "Salut"},
		{Role: domain.RoleUser, Content: "Quels horaires ?"},
		{Role: domain.RoleAssistant, Content: "reply to Quels horaires ?"},
		{Role: domain.RoleUser, Content: "Et le samedi ?"},
	}, calls[1].ConversationHistory)
}

func TestWidget_SendWhileAwaitingIsNoop(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	require.True(t, w.Send("first"))
	require.Eventually(t, func() bool { return len(transport.Calls()) == 1 }, time.Second, time.Millisecond)

	snap := w.Snapshot()
	require.True(t, snap.AwaitingReply)

	assert.False(t, w.Send("second"))
	assert.Len(t, w.Snapshot().Messages, len(snap.Messages))
	assert.Len(t, transport.Calls(), 1)

	transport.gate <- struct{}{}
	waitTurn(t, w)

	snap = w.Snapshot()
	assert.False(t, snap.AwaitingReply)
	assert.Len(t, snap.Messages, 2)
	assert.True(t, w.Send("second"))
	transport.gate <- struct{}{}
	waitTurn(t, w)
}

func TestWidget_BlankSendIsNoop(t *testing.T) {
	transport := &fakeTransport{}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	for _, text := range []string{"", "   ", "\n\t"} {
		assert.False(t, w.Send(text))
	}
	snap := w.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.HasInteracted)
	assert.Empty(t, transport.Calls())
}

func TestWidget_GreetingOnlyOnFirstOpen(t *testing.T) {
	w := newTestWidget(t, mustResolve(t, map[string]string{AttrGreeting: "Bienvenue !"}), &fakeTransport{})

	for i := 0; i < 3; i++ {
		w.Toggle()
		assert.Equal(t, StateOpen, w.Snapshot().State)
		w.Toggle()
		assert.Equal(t, StateClosed, w.Snapshot().State)
	}

	msgs := w.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Bienvenue !", msgs[0].Content)
}

func TestWidget_DefaultGreeting(t *testing.T) {
	w := newTestWidget(t, mustResolve(t, map[string]string{}), &fakeTransport{})
	w.Toggle()

	msgs := w.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultGreeting, msgs[0].Content)
}

func TestWidget_NoGreetingWhenLogNotEmpty(t *testing.T) {
	w := newTestWidget(t, mustResolve(t, map[string]string{}), &fakeTransport{})

	require.True(t, w.Send("hello"))
	waitTurn(t, w)
	w.Toggle()

	msgs := w.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestWidget_AutoOpenSuppressedAfterManualOpen(t *testing.T) {
	w := newTestWidget(t, mustResolve(t, map[string]string{AttrAutoOpen: "true"}), &fakeTransport{})

	w.Toggle()
	before := w.Snapshot()

	assert.False(t, w.AutoOpen())
	after := w.Snapshot()
	assert.Equal(t, StateOpen, after.State)
	assert.Equal(t, before.Messages, after.Messages)
	assert.Len(t, after.Messages, 1)
}

func TestWidget_AutoOpenSuppressedAfterManualOpenAndClose(t *testing.T) {
	w := newTestWidget(t, mustResolve(t, map[string]string{AttrAutoOpen: "true"}), &fakeTransport{})

	w.Toggle()
	w.Toggle()

	assert.False(t, w.AutoOpen())
	assert.Equal(t, StateClosed, w.Snapshot().State)
}

func TestWidget_AutoOpenDisabled(t *testing.T) {
	w := newTestWidget(t, mustResolve(t, map[string]string{}), &fakeTransport{})
	assert.False(t, w.AutoOpen())
	assert.Equal(t, StateClosed, w.Snapshot().State)
}

func TestWidget_AutoOpenTimerFires(t *testing.T) {
	cfg := mustResolve(t, map[string]string{AttrAutoOpen: "true", AttrDelay: "10"})
	w := newTestWidget(t, cfg, &fakeTransport{})
	require.NoError(t, w.Mount(BlankHost("", "", "")))

	require.Eventually(t, func() bool {
		return w.Snapshot().State == StateOpen
	}, time.Second, 5*time.Millisecond)

	snap := w.Snapshot()
	assert.True(t, snap.HasInteracted)
	assert.Len(t, snap.Messages, 1)
}

func TestWidget_FallbackOnTransportError(t *testing.T) {
	transport := &fakeTransport{
		reply: func(domain.ChatRequest) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	require.True(t, w.Send("hello"))
	waitTurn(t, w)

	snap := w.Snapshot()
	assert.False(t, snap.AwaitingReply)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, snap.Messages[1].Role)
	assert.Equal(t, FallbackMessage, snap.Messages[1].Content)

	transport.reply = nil
	require.True(t, w.Send("again"))
	waitTurn(t, w)
	assert.Equal(t, "reply to again", w.Snapshot().Messages[3].Content)
}

func TestWidget_FallbackOnTransportPanic(t *testing.T) {
	transport := &fakeTransport{
		reply: func(domain.ChatRequest) (string, error) {
			panic("boom")
		},
	}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	require.True(t, w.Send("hello"))
	waitTurn(t, w)

	msgs := w.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, FallbackMessage, msgs[1].Content)
}

func TestWidget_RequestTimeoutFallsBack(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport, WithRequestTimeout(20*time.Millisecond))

	require.True(t, w.Send("hello"))
	waitTurn(t, w)

	snap := w.Snapshot()
	assert.False(t, snap.AwaitingReply)
	assert.Equal(t, FallbackMessage, snap.Messages[len(snap.Messages)-1].Content)
}

func TestWidget_ReplyDelayApplied(t *testing.T) {
	var slept []time.Duration
	w := newTestWidget(t, mustResolve(t, map[string]string{}), &fakeTransport{},
		WithDelayPolicy(DelayPolicy{Min: 700 * time.Millisecond, Max: 700 * time.Millisecond}))
	w.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.True(t, w.Send("hello"))
	waitTurn(t, w)

	assert.Equal(t, []time.Duration{700 * time.Millisecond}, slept)
}

func TestWidget_ReplyWhileClosedRaisesNotification(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	w := newTestWidget(t, mustResolve(t, map[string]string{}), transport)

	w.Toggle()
	require.True(t, w.Send("hello"))
	w.Toggle()

	transport.gate <- struct{}{}
	waitTurn(t, w)

	snap := w.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.True(t, snap.Notification)
	assert.Len(t, snap.Messages, 3)

	w.Toggle()
	snap = w.Snapshot()
	assert.False(t, snap.Notification)
	assert.Len(t, snap.Messages, 3)
}

func TestDelayPolicy_Sample(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := DefaultDelayPolicy.Sample()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.Less(t, d, 1500*time.Millisecond)
	}

	assert.Equal(t, time.Duration(0), DelayPolicy{}.Sample())
	assert.Equal(t, 2*time.Second, DelayPolicy{Min: 2 * time.Second, Max: time.Second}.Sample())
}
