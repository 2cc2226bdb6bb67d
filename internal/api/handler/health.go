package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/chat-widget/internal/api/response"
	"github.com/Rrens/chat-widget/internal/llm"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including Redis connectivity
func ReadyCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "redis not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns registered LLM providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers := router.GetProvidersInfo()
		if providers == nil {
			providers = []llm.ProviderInfo{}
		}

		response.OK(w, map[string]any{
			"providers":        providers,
			"default_provider": router.DefaultProvider(),
		})
	}
}
