package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/chat-widget/internal/api"
	"github.com/Rrens/chat-widget/internal/config"
	"github.com/Rrens/chat-widget/internal/repository/redis"
	"github.com/Rrens/chat-widget/internal/service"
	"github.com/Rrens/chat-widget/internal/widget"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		fmt.Println("Warning: .env file not found in any standard location")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	closeLogs, err := setupLogger(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer closeLogs()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting chat widget server")

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	turnGuard := redis.NewTurnGuard(redisClient, cfg.Widget.RequestTimeout)

	// Initialize services
	llmRouter := api.NewLLMRouter(cfg)
	chatService := service.NewChatService(llmRouter, rateLimiter, turnGuard, cfg.LLM.MaxHistory)

	var transport widget.Transport = chatService
	if cfg.Widget.APIBase != "" {
		log.Info().Str("api_base", cfg.Widget.APIBase).Msg("Widgets will call a remote chat backend")
		transport = widget.NewClient(cfg.Widget.APIBase, cfg.Widget.RequestTimeout)
	}

	widgetService := service.NewWidgetService(transport, service.WidgetServiceConfig{
		TTL:          cfg.Widget.InstanceTTL,
		MaxInstances: cfg.Widget.MaxInstances,
		Options: []widget.Option{
			widget.WithRequestTimeout(cfg.Widget.RequestTimeout),
			widget.WithDelayPolicy(widget.DelayPolicy{
				Min: cfg.Widget.ReplyDelayMin,
				Max: cfg.Widget.ReplyDelayMax,
			}),
		},
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go widgetService.Run(sweepCtx, cfg.Widget.SweepInterval)

	// Initialize router
	router := api.NewRouter(cfg, api.Dependencies{
		Store:       redisClient,
		RateLimiter: rateLimiter,
		LLM:         llmRouter,
		Chat:        chatService,
		Widgets:     widgetService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopSweep()
	if err := widgetService.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Some widget replies did not complete before shutdown")
	}

	log.Info().Msg("Server stopped")
}

// setupLogger applies the configured level and format, and tees logs into
// a rotating file when logging.file is set
func setupLogger(cfg config.LoggingConfig) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stderr
	if cfg.Format == "console" || os.Getenv("ENV") != "production" {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return func() {}, nil
	}

	rl, err := rotatelogs.New(
		cfg.File+".%Y%m%d",
		rotatelogs.WithLinkName(cfg.File),
		rotatelogs.WithMaxAge(cfg.MaxAge),
		rotatelogs.WithRotationTime(cfg.RotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, rl)).With().Timestamp().Logger()
	return func() { _ = rl.Close() }, nil
}
