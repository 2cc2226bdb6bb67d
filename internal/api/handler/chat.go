package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/chat-widget/internal/api/response"
	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/Rrens/chat-widget/internal/service"
)

// maxChatBody bounds a chat request, which carries the whole conversation log
const maxChatBody = 8 << 20

// ChatHandler serves the endpoint the embedded widget talks to
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat answers one visitor message. On success the body is exactly
// {"response": "..."}; failures use the standard error envelope.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	reply, err := h.chatService.Reply(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			response.TooManyRequests(w, err.Error())
		case errors.Is(err, domain.ErrTurnInFlight):
			response.Error(w, http.StatusConflict, err.Error())
		default:
			log.Error().
				Err(err).
				Str("agent_id", req.AgentID).
				Str("session_id", req.SessionID).
				Msg("chat reply failed")
			response.Error(w, http.StatusBadGateway, "assistant unavailable")
		}
		return
	}

	response.Raw(w, http.StatusOK, domain.ChatResponse{Response: reply})
}
