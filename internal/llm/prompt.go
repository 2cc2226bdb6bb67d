package llm

import (
	"fmt"
	"strings"
)

// PromptContext describes which agent the assistant speaks for and where
// the visitor currently is
type PromptContext struct {
	AgentID  string
	PageURL  string
	Referrer string
}

// BuildSystemPrompt creates the system prompt for a widget conversation
func BuildSystemPrompt(pc PromptContext) string {
	var page strings.Builder
	if pc.PageURL != "" {
		fmt.Fprintf(&page, "\nThe visitor is currently on: %s", pc.PageURL)
	}
	if pc.Referrer != "" {
		fmt.Fprintf(&page, "\nThey arrived from: %s", pc.Referrer)
	}

	return fmt.Sprintf(`You are the chat assistant of agent %q embedded on a company website.

Rules:
1. Answer in the visitor's language (default to French)
2. Keep answers short: two or three sentences unless asked for detail
3. Never invent prices, dates or contact details you were not given
4. If you cannot help, offer to put the visitor in touch with the team
5. Plain text only, no markdown
%s`, pc.AgentID, page.String())
}

// TrimHistory keeps the last limit messages, dropping leading assistant
// messages so the conversation always starts with a user turn.
func TrimHistory(messages []Message, limit int) []Message {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	for len(messages) > 0 && messages[0].Role != RoleUser {
		messages = messages[1:]
	}
	return messages
}

// CleanReply normalises provider output for display in the widget
func CleanReply(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "Assistant:")
	return strings.TrimSpace(content)
}
