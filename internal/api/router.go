package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/chat-widget/internal/api/handler"
	customMiddleware "github.com/Rrens/chat-widget/internal/api/middleware"
	"github.com/Rrens/chat-widget/internal/config"
	"github.com/Rrens/chat-widget/internal/llm"
	"github.com/Rrens/chat-widget/internal/llm/anthropic"
	"github.com/Rrens/chat-widget/internal/llm/gemini"
	"github.com/Rrens/chat-widget/internal/llm/ollama"
	"github.com/Rrens/chat-widget/internal/llm/openai"
	"github.com/Rrens/chat-widget/internal/service"
)

// Dependencies are the long-lived components the HTTP layer serves
type Dependencies struct {
	Store       handler.Pinger
	RateLimiter customMiddleware.Limiter
	LLM         *llm.Router
	Chat        *service.ChatService
	Widgets     *service.WidgetService
}

// NewLLMRouter registers every configured LLM provider
func NewLLMRouter(cfg *config.Config) *llm.Router {
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider("openai", cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.DeepSeek.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider("deepseek", cfg.LLM.DeepSeek.APIKey, cfg.LLM.DeepSeek.BaseURL, cfg.LLM.DeepSeek.Model))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}

	if len(llmRouter.ListProviders()) == 0 {
		log.Warn().Msg("No LLM provider configured, widgets will answer with the fallback message")
	}

	return llmRouter
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// The widget is embedded on third-party sites
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	chatHandler := handler.NewChatHandler(deps.Chat)
	widgetHandler := handler.NewWidgetHandler(deps.Widgets)

	limit := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		limit = customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit
	}

	// Endpoint called by the embedded widget
	r.With(limit).Post("/api/widget/chat", chatHandler.Chat)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Store))
		r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))

		r.Route("/widgets", func(r chi.Router) {
			r.With(limit).Post("/", widgetHandler.Mount)

			r.Route("/{widgetID}", func(r chi.Router) {
				r.Use(customMiddleware.WidgetContext)

				r.Get("/", widgetHandler.Get)
				r.Delete("/", widgetHandler.Unmount)
				r.Get("/view", widgetHandler.View)
				r.Post("/toggle", widgetHandler.Toggle)
				r.With(limit).Post("/messages", widgetHandler.Send)
			})
		})
	})

	return r
}
