package widget

import (
	"fmt"
	"strings"

	"github.com/Rrens/chat-widget/internal/domain"
)

const smallViewport = "(max-width: 480px)"

type cssRule struct {
	selector string
	decls    string
}

// Stylesheet returns the widget CSS with every selector scoped under the
// root id. Chrome elements reset inherited and host-injected properties
// with `all: initial` so a host stylesheet cannot restyle them by accident.
func Stylesheet(rootID string, cfg domain.WidgetConfig) string {
	edge := "right"
	if cfg.Position == domain.PositionLeft {
		edge = "left"
	}

	rules := []cssRule{
		{"", fmt.Sprintf("all: initial; position: fixed; bottom: 20px; %s: 20px; z-index: 2147483000; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; font-size: 14px; line-height: 1.4; color: #1F2937;", edge)},
		{"*", "box-sizing: border-box;"},
		{".cw-launcher", fmt.Sprintf("all: initial; position: relative; display: flex; align-items: center; justify-content: center; width: 60px; height: 60px; border-radius: 50%%; background: %s; box-shadow: 0 4px 14px rgba(0,0,0,0.25); cursor: pointer; float: %s;", cfg.AccentColor, edge)},
		{".cw-launcher:hover", fmt.Sprintf("background: %s;", cfg.AccentHover)},
		{".cw-launcher:focus-visible", "outline: 2px solid #1F2937; outline-offset: 2px;"},
		{".cw-badge", "all: initial; position: absolute; top: 2px; right: 2px; width: 14px; height: 14px; border-radius: 50%; background: #EF4444; border: 2px solid #FFFFFF;"},
		{".cw-panel", fmt.Sprintf("all: initial; display: flex; flex-direction: column; position: absolute; bottom: 76px; %s: 0; width: 360px; height: 520px; max-height: calc(100vh - 120px); background: #FFFFFF; border-radius: 16px; box-shadow: 0 12px 40px rgba(0,0,0,0.2); overflow: hidden; font-family: inherit;", edge)},
		{".cw-panel[hidden]", "display: none;"},
		{"[hidden]", "display: none !important;"},
		{".cw-header", fmt.Sprintf("all: initial; display: flex; align-items: center; gap: 10px; padding: 14px 16px; background: %s; color: #FFFFFF; font-family: inherit; font-weight: 600;", cfg.AccentColor)},
		{".cw-avatar", "all: initial; width: 32px; height: 32px; border-radius: 50%; object-fit: cover;"},
		{".cw-title", "all: initial; flex: 1; color: inherit; font: inherit;"},
		{".cw-close", "all: initial; cursor: pointer; color: #FFFFFF; font-size: 20px; line-height: 1; padding: 0 4px;"},
		{".cw-messages", "all: initial; display: flex; flex-direction: column; gap: 8px; flex: 1; padding: 16px; overflow-y: auto; background: #F9FAFB; font-family: inherit;"},
		{".cw-message", "all: initial; display: flex; font-family: inherit;"},
		{".cw-message.cw-user", "justify-content: flex-end;"},
		{".cw-bubble", "all: initial; max-width: 80%; padding: 10px 14px; border-radius: 14px; white-space: pre-wrap; word-wrap: break-word; font-family: inherit; font-size: 14px; line-height: 1.4;"},
		{".cw-user .cw-bubble", fmt.Sprintf("background: %s; color: #FFFFFF; border-bottom-right-radius: 4px;", cfg.AccentColor)},
		{".cw-assistant .cw-bubble", "background: #FFFFFF; color: #1F2937; border: 1px solid #E5E7EB; border-bottom-left-radius: 4px;"},
		{".cw-typing", "all: initial; display: flex; gap: 4px; padding: 10px 14px;"},
		{".cw-typing span", "all: initial; width: 6px; height: 6px; border-radius: 50%; background: #9CA3AF;"},
		{".cw-form", "all: initial; display: flex; gap: 8px; padding: 12px; border-top: 1px solid #E5E7EB; background: #FFFFFF;"},
		{".cw-input", "all: initial; flex: 1; padding: 10px 12px; border: 1px solid #D1D5DB; border-radius: 10px; font-family: inherit; font-size: 14px; color: #1F2937; background: #FFFFFF;"},
		{".cw-input:focus", fmt.Sprintf("border-color: %s;", cfg.AccentColor)},
		{".cw-send", fmt.Sprintf("all: initial; padding: 10px 14px; border-radius: 10px; background: %s; color: #FFFFFF; cursor: pointer; font-family: inherit; font-weight: 600;", cfg.AccentColor)},
		{".cw-send:hover", fmt.Sprintf("background: %s;", cfg.AccentHover)},
		{".cw-send[disabled], .cw-input[disabled]", "opacity: 0.6; cursor: not-allowed;"},
	}

	small := []cssRule{
		{"", fmt.Sprintf("bottom: 10px; %s: 10px;", edge)},
		{".cw-launcher", "width: 52px; height: 52px;"},
		{".cw-panel", "width: calc(100vw - 20px); height: calc(100vh - 90px); bottom: 64px; border-radius: 12px;"},
	}

	var b strings.Builder
	writeRules(&b, rootID, rules, "")
	b.WriteString("@media " + smallViewport + " {\n")
	writeRules(&b, rootID, small, "  ")
	b.WriteString("}\n")
	return b.String()
}

func writeRules(b *strings.Builder, rootID string, rules []cssRule, indent string) {
	for _, r := range rules {
		b.WriteString(indent)
		b.WriteString(scopeSelector(rootID, r.selector))
		b.WriteString(" { ")
		b.WriteString(r.decls)
		b.WriteString(" }\n")
	}
}

// scopeSelector prefixes each comma-separated part of sel with #rootID.
// An empty selector targets the root itself.
func scopeSelector(rootID, sel string) string {
	root := "#" + rootID
	if sel == "" {
		return root
	}
	parts := strings.Split(sel, ",")
	for i, p := range parts {
		parts[i] = root + " " + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
