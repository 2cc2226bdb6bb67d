// Package widget implements the embeddable chat widget runtime: it resolves
// the host-supplied configuration, paints an isolated surface into the host
// page, owns the conversation session and exchanges turns with the chat
// backend.
package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRequestTimeout bounds a single chat exchange
const DefaultRequestTimeout = 30 * time.Second

var errNoTransport = errors.New("widget: transport is required")

// Widget is one mounted chat widget. It owns exactly one Session. All state
// changes happen under mu, so UI actions and reply completions interleave
// as if on a single thread; at most one turn is in flight at a time.
type Widget struct {
	mu sync.Mutex

	cfg       domain.WidgetConfig
	session   *Session
	surface   *Surface
	transport Transport
	host      *Host

	delay   DelayPolicy
	timeout time.Duration
	sleep   func(time.Duration)
	logger  zerolog.Logger

	notification bool
	autoOpen     *time.Timer
	turnDone     chan struct{}
}

// Option customises a Widget
type Option func(*Widget)

// WithDelayPolicy overrides the artificial reply delay
func WithDelayPolicy(p DelayPolicy) Option {
	return func(w *Widget) { w.delay = p }
}

// WithRequestTimeout bounds each chat exchange. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(w *Widget) { w.timeout = d }
}

// WithLogger sets the diagnostics logger
func WithLogger(l zerolog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// New creates a widget for an already resolved configuration (the
// embedded-component form). Nothing is rendered into a host until Mount.
func New(cfg domain.WidgetConfig, transport Transport, opts ...Option) (*Widget, error) {
	if strings.TrimSpace(cfg.AgentID) == "" {
		return nil, ErrMissingAgentID
	}
	if transport == nil {
		return nil, errNoTransport
	}

	w := &Widget{
		cfg:       cfg,
		session:   NewSession(),
		surface:   NewSurface(cfg),
		transport: transport,
		delay:     DefaultDelayPolicy,
		timeout:   DefaultRequestTimeout,
		sleep:     time.Sleep,
		logger:    log.Logger.With().Str("component", "widget").Str("agent_id", cfg.AgentID).Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Embed is the script-tag form: it reads the widget script tag of the host
// page, resolves it and mounts the widget. On a configuration error the
// host document is left untouched.
func Embed(host *Host, transport Transport, opts ...Option) (*Widget, error) {
	attrs, err := host.ScriptAttributes()
	if err != nil {
		return nil, err
	}
	cfg, err := Resolve(attrs)
	if err != nil {
		return nil, err
	}
	w, err := New(cfg, transport, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Mount(host); err != nil {
		return nil, err
	}
	return w, nil
}

// Mount paints the launcher into the host page and arms the auto-open timer
func (w *Widget) Mount(host *Host) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.surface.Mount(host.Document); err != nil {
		return err
	}
	w.host = host

	if w.cfg.AutoOpen {
		w.autoOpen = time.AfterFunc(w.cfg.AutoOpenDelay(), func() { w.AutoOpen() })
	}

	w.logger.Debug().
		Str("session_id", w.session.ID()).
		Str("root_id", w.surface.RootID()).
		Msg("widget mounted")
	return nil
}

// Toggle opens a closed panel or closes an open one
func (w *Widget) Toggle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.state == StateOpen {
		w.closeLocked()
		return
	}
	w.openLocked()
}

// AutoOpen is the auto-open timer callback. It opens the panel only if
// auto-open is enabled and the visitor has not interacted yet; the check
// happens at fire time.
func (w *Widget) AutoOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.cfg.AutoOpen || w.session.hasInteracted || w.session.state == StateOpen {
		return false
	}
	w.openLocked()
	return true
}

func (w *Widget) openLocked() {
	w.session.state = StateOpen
	w.session.hasInteracted = true
	w.notification = false
	w.surface.SetNotification(false)
	w.surface.SetOpen(true)

	if w.session.Len() == 0 {
		greeting := w.cfg.Greeting
		if strings.TrimSpace(greeting) == "" {
			greeting = DefaultGreeting
		}
		msg := w.session.Append(domain.RoleAssistant, greeting)
		w.surface.AppendMessageView(msg)
	}
	w.surface.FocusInput()
}

// closeLocked hides the panel; the log and any outstanding turn are kept
func (w *Widget) closeLocked() {
	w.session.state = StateClosed
	w.surface.SetOpen(false)
}

// Send starts a turn with the visitor's text. It returns false without
// side effects when the text is blank or a reply is still pending.
func (w *Widget) Send(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" || w.session.awaitingReply {
		return false
	}

	w.session.hasInteracted = true
	msg := w.session.Append(domain.RoleUser, text)
	w.surface.AppendMessageView(msg)

	w.session.awaitingReply = true
	w.surface.SetTypingIndicator(true)

	req := domain.ChatRequest{
		AgentID:             w.cfg.AgentID,
		SessionID:           w.session.ID(),
		Message:             text,
		ConversationHistory: w.session.History(),
		VisitorInfo:         w.visitorLocked(),
	}

	done := make(chan struct{})
	w.turnDone = done
	go w.runTurn(req, done)
	return true
}

func (w *Widget) visitorLocked() domain.VisitorInfo {
	if w.host == nil {
		return domain.VisitorInfo{}
	}
	return w.host.Visitor()
}

func (w *Widget) runTurn(req domain.ChatRequest, done chan struct{}) {
	defer close(done)

	reply, err := w.exchange(req)
	if err != nil {
		w.logger.Warn().
			Err(err).
			Str("session_id", req.SessionID).
			Msg("chat turn failed, showing fallback")
		w.completeTurn(FallbackMessage)
		return
	}

	w.sleep(w.delay.Sample())
	w.completeTurn(reply)
}

func (w *Widget) exchange(req domain.ChatRequest) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: transport panicked: %v", ErrTransport, r)
		}
	}()

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.transport.Chat(ctx, req)
}

func (w *Widget) completeTurn(content string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.surface.SetTypingIndicator(false)
	msg := w.session.Append(domain.RoleAssistant, content)
	w.surface.AppendMessageView(msg)
	w.session.awaitingReply = false

	if w.session.state == StateClosed {
		w.notification = true
		w.surface.SetNotification(true)
	}
}

// Wait blocks until the turn in flight, if any, has been applied to the log
func (w *Widget) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.turnDone
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the auto-open timer. An outstanding turn still completes.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.autoOpen != nil {
		w.autoOpen.Stop()
		w.autoOpen = nil
	}
}

// Snapshot is a read-only copy of a widget's state
type Snapshot struct {
	SessionID     string
	State         State
	HasInteracted bool
	AwaitingReply bool
	Notification  bool
	Messages      []domain.Message
}

// Snapshot returns the current state
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Snapshot{
		SessionID:     w.session.ID(),
		State:         w.session.state,
		HasInteracted: w.session.hasInteracted,
		AwaitingReply: w.session.awaitingReply,
		Notification:  w.notification,
		Messages:      w.session.Messages(),
	}
}

// Config returns the resolved configuration
func (w *Widget) Config() domain.WidgetConfig {
	return w.cfg
}

// RootID returns the id of the widget root element
func (w *Widget) RootID() string {
	return w.surface.RootID()
}

// HTML renders the widget subtree
func (w *Widget) HTML() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.surface.HTML()
}
