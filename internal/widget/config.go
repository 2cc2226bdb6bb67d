package widget

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Rrens/chat-widget/internal/domain"
)

// Defaults applied by the resolver
const (
	DefaultAccentColor     = "#FF470F"
	DefaultPosition        = domain.PositionRight
	DefaultPlaceholder     = "Votre message..."
	DefaultDisplayName     = "Assistant"
	DefaultAutoOpenDelayMs = 3000
	DefaultGreeting        = "Bonjour ! Comment puis-je vous aider ?"

	hoverShift = -20
)

// ErrMissingAgentID is the configuration error raised when no agent id is
// supplied. Callers must abort initialization when they see it.
var ErrMissingAgentID = errors.New("widget: agent id is required (data-agent-id)")

// Script tag attribute names
const (
	AttrAgentID     = "data-agent-id"
	AttrColor       = "data-color"
	AttrPosition    = "data-position"
	AttrGreeting    = "data-greeting"
	AttrPlaceholder = "data-placeholder"
	AttrName        = "data-name"
	AttrAvatar      = "data-avatar"
	AttrAutoOpen    = "data-auto-open"
	AttrDelay       = "data-delay"
)

// Options is the embedded-component form of the widget configuration.
// Zero values fall back to the documented defaults. A nil AutoOpenDelayMs
// means "not supplied".
type Options struct {
	AgentID          string
	AccentColor      string
	Position         string
	Greeting         string
	InputPlaceholder string
	DisplayName      string
	AvatarURL        string
	AutoOpen         bool
	AutoOpenDelayMs  *int
}

// Resolve builds a WidgetConfig from the data-* attributes of the mounting
// script tag.
func Resolve(attrs map[string]string) (domain.WidgetConfig, error) {
	opts := Options{
		AgentID:          attrs[AttrAgentID],
		AccentColor:      attrs[AttrColor],
		Position:         attrs[AttrPosition],
		Greeting:         attrs[AttrGreeting],
		InputPlaceholder: attrs[AttrPlaceholder],
		DisplayName:      attrs[AttrName],
		AvatarURL:        attrs[AttrAvatar],
		AutoOpen:         strings.TrimSpace(attrs[AttrAutoOpen]) == "true",
	}
	if raw, ok := attrs[AttrDelay]; ok {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			opts.AutoOpenDelayMs = &v
		}
	}
	return ResolveOptions(opts)
}

// ResolveOptions builds a WidgetConfig from the embedded-component form
func ResolveOptions(opts Options) (domain.WidgetConfig, error) {
	agentID := strings.TrimSpace(opts.AgentID)
	if agentID == "" {
		return domain.WidgetConfig{}, ErrMissingAgentID
	}

	accent := strings.TrimSpace(opts.AccentColor)
	if !isHexColor(accent) {
		accent = DefaultAccentColor
	}

	position := DefaultPosition
	if domain.Position(strings.ToLower(strings.TrimSpace(opts.Position))) == domain.PositionLeft {
		position = domain.PositionLeft
	}

	delay := DefaultAutoOpenDelayMs
	if opts.AutoOpenDelayMs != nil && *opts.AutoOpenDelayMs >= 0 {
		delay = *opts.AutoOpenDelayMs
	}

	return domain.WidgetConfig{
		AgentID:          agentID,
		AccentColor:      accent,
		AccentHover:      DeriveAccent(accent, hoverShift),
		Position:         position,
		Greeting:         opts.Greeting,
		InputPlaceholder: orDefault(opts.InputPlaceholder, DefaultPlaceholder),
		DisplayName:      orDefault(opts.DisplayName, DefaultDisplayName),
		AvatarURL:        strings.TrimSpace(opts.AvatarURL),
		AutoOpen:         opts.AutoOpen,
		AutoOpenDelayMs:  delay,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
