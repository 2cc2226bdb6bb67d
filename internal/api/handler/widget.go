package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/chat-widget/internal/api/middleware"
	"github.com/Rrens/chat-widget/internal/api/response"
	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/Rrens/chat-widget/internal/service"
	"github.com/Rrens/chat-widget/internal/widget"
)

// WidgetHandler serves server-driven widget instances
type WidgetHandler struct {
	widgetService *service.WidgetService
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(widgetService *service.WidgetService) *WidgetHandler {
	return &WidgetHandler{widgetService: widgetService}
}

// Mount creates a widget instance for one page view
func (h *WidgetHandler) Mount(w http.ResponseWriter, r *http.Request) {
	var req domain.MountRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2<<20)).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	view, err := h.widgetService.Mount(r.Context(), req, r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, widget.ErrMissingAgentID),
			errors.Is(err, widget.ErrNoScriptTag),
			errors.Is(err, domain.ErrMissingHostPage):
			response.BadRequest(w, err.Error())
		case errors.Is(err, domain.ErrTooManyWidgets):
			response.Error(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Error().Err(err).Msg("failed to mount widget")
			response.InternalError(w, "failed to mount widget")
		}
		return
	}

	response.Created(w, view)
}

// Get returns the widget state
func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetWidgetID(r.Context())
	if !ok {
		response.BadRequest(w, "missing widget ID")
		return
	}

	view, err := h.widgetService.Get(id)
	if err != nil {
		h.fail(w, err)
		return
	}

	response.OK(w, view)
}

// View returns the rendered widget fragment as HTML
func (h *WidgetHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetWidgetID(r.Context())
	if !ok {
		response.BadRequest(w, "missing widget ID")
		return
	}

	view, err := h.widgetService.Get(id)
	if err != nil {
		h.fail(w, err)
		return
	}

	response.HTML(w, http.StatusOK, view.HTML)
}

// Toggle opens or closes the panel
func (h *WidgetHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetWidgetID(r.Context())
	if !ok {
		response.BadRequest(w, "missing widget ID")
		return
	}

	view, err := h.widgetService.Toggle(id)
	if err != nil {
		h.fail(w, err)
		return
	}

	response.OK(w, view)
}

// Send submits a visitor message
func (h *WidgetHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetWidgetID(r.Context())
	if !ok {
		response.BadRequest(w, "missing widget ID")
		return
	}

	var req domain.SendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	view, accepted, err := h.widgetService.Send(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}

	status := http.StatusOK
	if accepted && !req.Wait {
		status = http.StatusAccepted
	}
	response.JSON(w, status, map[string]any{
		"accepted": accepted,
		"widget":   view,
	})
}

// Unmount drops the widget instance
func (h *WidgetHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetWidgetID(r.Context())
	if !ok {
		response.BadRequest(w, "missing widget ID")
		return
	}

	if err := h.widgetService.Unmount(id); err != nil {
		h.fail(w, err)
		return
	}

	response.NoContent(w)
}

func (h *WidgetHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrWidgetNotFound) {
		response.NotFound(w, err.Error())
		return
	}
	log.Error().Err(err).Msg("widget operation failed")
	response.InternalError(w, err.Error())
}
