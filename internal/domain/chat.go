package domain

// VisitorInfo is a read-only snapshot of the host page taken once per send
type VisitorInfo struct {
	URL       string `json:"url" validate:"omitempty,max=2048"`
	Referrer  string `json:"referrer" validate:"omitempty,max=2048"`
	UserAgent string `json:"userAgent" validate:"omitempty,max=512"`
}

// ChatRequest is the body the widget posts to /api/widget/chat
type ChatRequest struct {
	AgentID             string      `json:"agentId" validate:"required,max=128"`
	SessionID           string      `json:"sessionId" validate:"required,max=128"`
	Message             string      `json:"message" validate:"required,max=4000"`
	ConversationHistory []ChatTurn  `json:"conversationHistory" validate:"dive"`
	VisitorInfo         VisitorInfo `json:"visitorInfo"`
}

// ChatResponse is the minimum contract of a successful chat reply
type ChatResponse struct {
	Response string `json:"response"`
}
