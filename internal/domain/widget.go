package domain

import "time"

// Position anchors the widget to one edge of the viewport
type Position string

const (
	PositionLeft  Position = "left"
	PositionRight Position = "right"
)

// WidgetConfig is the resolved, immutable configuration of one widget
// instance. AgentID is always non-empty once resolved.
type WidgetConfig struct {
	AgentID          string   `json:"agentId"`
	AccentColor      string   `json:"accentColor"`
	AccentHover      string   `json:"accentHover"`
	Position         Position `json:"position"`
	Greeting         string   `json:"greeting"`
	InputPlaceholder string   `json:"inputPlaceholder"`
	DisplayName      string   `json:"displayName"`
	AvatarURL        string   `json:"avatarUrl,omitempty"`
	AutoOpen         bool     `json:"autoOpen"`
	AutoOpenDelayMs  int      `json:"autoOpenDelayMs"`
}

// AutoOpenDelay returns the auto-open delay as a duration
func (c WidgetConfig) AutoOpenDelay() time.Duration {
	return time.Duration(c.AutoOpenDelayMs) * time.Millisecond
}

// MountRequest asks the server to mount a widget instance for a page view.
// Either Attributes (the script tag's data-* attributes) or HTML (the host
// page containing the script tag) must be supplied.
type MountRequest struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	HTML       string            `json:"html,omitempty" validate:"omitempty,max=1048576"`
	PageURL    string            `json:"pageUrl" validate:"omitempty,max=2048"`
	Referrer   string            `json:"referrer" validate:"omitempty,max=2048"`
}

// SendRequest carries one visitor message to a mounted widget
type SendRequest struct {
	Text string `json:"text" validate:"max=4000"`
	Wait bool   `json:"wait"`
}

// WidgetView is the state of a mounted widget returned to the browser
type WidgetView struct {
	WidgetID      string    `json:"widgetId"`
	SessionID     string    `json:"sessionId"`
	Open          bool      `json:"open"`
	AwaitingReply bool      `json:"awaitingReply"`
	Notification  bool      `json:"notification"`
	Messages      []Message `json:"messages"`
	HTML          string    `json:"html"`
}
