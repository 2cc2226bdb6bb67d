package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/Rrens/chat-widget/internal/widget"
)

// WidgetService hosts server-driven widget instances, one per page view.
// Instances are kept in memory only and evicted after an idle TTL.
type WidgetService struct {
	mu           sync.Mutex
	widgets      map[uuid.UUID]*widgetEntry
	transport    widget.Transport
	opts         []widget.Option
	ttl          time.Duration
	maxInstances int
	now          func() time.Time
}

type widgetEntry struct {
	w        *widget.Widget
	lastSeen time.Time
}

// WidgetServiceConfig tunes the widget registry
type WidgetServiceConfig struct {
	TTL          time.Duration
	MaxInstances int
	Options      []widget.Option
}

// NewWidgetService creates a new widget registry whose widgets talk to
// the backend through transport
func NewWidgetService(transport widget.Transport, cfg WidgetServiceConfig) *WidgetService {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &WidgetService{
		widgets:      make(map[uuid.UUID]*widgetEntry),
		transport:    transport,
		opts:         cfg.Options,
		ttl:          cfg.TTL,
		maxInstances: cfg.MaxInstances,
		now:          time.Now,
	}
}

// Mount creates and mounts a widget for one page view
func (s *WidgetService) Mount(ctx context.Context, req domain.MountRequest, userAgent string) (*domain.WidgetView, error) {
	if len(req.Attributes) == 0 && strings.TrimSpace(req.HTML) == "" {
		return nil, domain.ErrMissingHostPage
	}

	s.mu.Lock()
	full := s.fullLocked()
	s.mu.Unlock()
	if full {
		return nil, domain.ErrTooManyWidgets
	}

	id := uuid.New()
	opts := append([]widget.Option{
		widget.WithLogger(log.With().Str("component", "widget").Str("widget_id", id.String()).Logger()),
	}, s.opts...)

	w, err := s.build(req, userAgent, opts)
	if err != nil {
		return nil, err
	}

	// concurrent mounts may have filled the registry while this one was built
	s.mu.Lock()
	if s.fullLocked() {
		s.mu.Unlock()
		w.Close()
		return nil, domain.ErrTooManyWidgets
	}
	s.widgets[id] = &widgetEntry{w: w, lastSeen: s.now()}
	s.mu.Unlock()

	log.Info().
		Str("widget_id", id.String()).
		Str("agent_id", w.Config().AgentID).
		Str("page_url", req.PageURL).
		Msg("widget mounted")

	return s.view(id, w)
}

func (s *WidgetService) build(req domain.MountRequest, userAgent string, opts []widget.Option) (*widget.Widget, error) {
	host := widget.BlankHost(req.PageURL, req.Referrer, userAgent)
	if strings.TrimSpace(req.HTML) != "" {
		parsed, err := widget.ParseHost(strings.NewReader(req.HTML), req.PageURL, req.Referrer, userAgent)
		if err != nil {
			return nil, err
		}
		host = parsed
	}

	if len(req.Attributes) == 0 {
		return widget.Embed(host, s.transport, opts...)
	}

	cfg, err := widget.Resolve(req.Attributes)
	if err != nil {
		return nil, err
	}
	w, err := widget.New(cfg, s.transport, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Mount(host); err != nil {
		return nil, fmt.Errorf("failed to mount widget: %w", err)
	}
	return w, nil
}

// Toggle opens or closes the panel of a widget
func (s *WidgetService) Toggle(id uuid.UUID) (*domain.WidgetView, error) {
	w, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	w.Toggle()
	return s.view(id, w)
}

// Send submits a visitor message. accepted is false when the message was
// blank or a reply was still pending. With req.Wait the call returns once
// the turn has resolved.
func (s *WidgetService) Send(ctx context.Context, id uuid.UUID, req domain.SendRequest) (view *domain.WidgetView, accepted bool, err error) {
	w, err := s.touch(id)
	if err != nil {
		return nil, false, err
	}

	accepted = w.Send(req.Text)
	if accepted && req.Wait {
		if err := w.Wait(ctx); err != nil {
			return nil, true, fmt.Errorf("failed to wait for reply: %w", err)
		}
	}

	view, err = s.view(id, w)
	return view, accepted, err
}

// Get returns the current view of a widget
func (s *WidgetService) Get(id uuid.UUID) (*domain.WidgetView, error) {
	w, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	return s.view(id, w)
}

// Unmount drops a widget. Its in-flight turn, if any, still completes.
func (s *WidgetService) Unmount(id uuid.UUID) error {
	s.mu.Lock()
	entry, ok := s.widgets[id]
	delete(s.widgets, id)
	s.mu.Unlock()

	if !ok {
		return domain.ErrWidgetNotFound
	}
	entry.w.Close()
	return nil
}

// Count returns the number of mounted widgets
func (s *WidgetService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

// Sweep evicts widgets idle for longer than the TTL and returns how many
// were removed
func (s *WidgetService) Sweep(now time.Time) int {
	var expired []*widget.Widget

	s.mu.Lock()
	for id, entry := range s.widgets {
		if now.Sub(entry.lastSeen) > s.ttl {
			expired = append(expired, entry.w)
			delete(s.widgets, id)
		}
	}
	s.mu.Unlock()

	for _, w := range expired {
		w.Close()
	}
	return len(expired)
}

// Run sweeps idle widgets every interval until ctx is done
func (s *WidgetService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				log.Debug().Int("evicted", n).Msg("idle widgets evicted")
			}
		}
	}
}

// Shutdown waits for in-flight turns to resolve and drops every widget
func (s *WidgetService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	widgets := make([]*widget.Widget, 0, len(s.widgets))
	for _, entry := range s.widgets {
		widgets = append(widgets, entry.w)
	}
	s.widgets = make(map[uuid.UUID]*widgetEntry)
	s.mu.Unlock()

	var errs []error
	for _, w := range widgets {
		w.Close()
		if err := w.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *WidgetService) fullLocked() bool {
	return s.maxInstances > 0 && len(s.widgets) >= s.maxInstances
}

func (s *WidgetService) touch(id uuid.UUID) (*widget.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.widgets[id]
	if !ok {
		return nil, domain.ErrWidgetNotFound
	}
	entry.lastSeen = s.now()
	return entry.w, nil
}

func (s *WidgetService) view(id uuid.UUID, w *widget.Widget) (*domain.WidgetView, error) {
	snap := w.Snapshot()
	fragment, err := w.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to render widget: %w", err)
	}
	return &domain.WidgetView{
		WidgetID:      id.String(),
		SessionID:     snap.SessionID,
		Open:          snap.State == widget.StateOpen,
		AwaitingReply: snap.AwaitingReply,
		Notification:  snap.Notification,
		Messages:      snap.Messages,
		HTML:          fragment,
	}, nil
}
