package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Rrens/chat-widget/internal/api/response"
)

type contextKey string

const (
	WidgetIDKey contextKey = "widgetID"
)

// GetWidgetID gets the widget ID from context
func GetWidgetID(ctx context.Context) (uuid.UUID, bool) {
	widgetID, ok := ctx.Value(WidgetIDKey).(uuid.UUID)
	return widgetID, ok
}

// WidgetContext extracts widget ID from URL and adds to context
func WidgetContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		widgetIDStr := chi.URLParam(r, "widgetID")
		if widgetIDStr == "" {
			response.Error(w, http.StatusBadRequest, "missing widget ID")
			return
		}

		widgetID, err := uuid.Parse(widgetIDStr)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "invalid widget ID")
			return
		}

		ctx := context.WithValue(r.Context(), WidgetIDKey, widgetID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
