// Playforge - conversational HTML5 game builder server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/playforge/playforge/internal/ai"
	"github.com/playforge/playforge/internal/api"
	"github.com/playforge/playforge/internal/config"
	"github.com/playforge/playforge/internal/convlog"
	"github.com/playforge/playforge/internal/engine"
	"github.com/playforge/playforge/internal/gametpl"
	"github.com/playforge/playforge/internal/middleware"
	"github.com/playforge/playforge/internal/sessionid"
	"github.com/playforge/playforge/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"dev", cfg.IsDevelopment())

	// Initialize the session store.
	repo, err := newRepository(cfg)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Session store connected", "backend", cfg.StoreBackend)

	// Starter templates.
	templates, err := gametpl.NewRegistry()
	if err != nil {
		slog.Error("Failed to load starter templates", "error", err)
		os.Exit(1)
	}
	slog.Info("Starter templates loaded", "count", len(templates.List()))

	// Conversation audit log.
	audit, err := convlog.New(convlog.Config{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation log", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := audit.Close(); closeErr != nil {
			slog.Error("Failed to close conversation log", "error", closeErr)
		}
	}()

	// AI provider client.
	if cfg.AI.APIKey == "" {
		slog.Warn("AI_API_KEY not set; provider calls will be unauthenticated")
	}
	client := ai.NewHTTPClient(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, logger)

	eng := engine.New(repo, client, templates, audit, logger, engine.Options{
		MaxValidationRetries: cfg.MaxValidationRetries,
		MaxCodeBytes:         cfg.MaxCodeBytes,
		MaxPromptBytes:       cfg.MaxPromptBytes,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, eng, cfg.FrontendURL)
	sessionHandler := api.NewSessionHandler(baseHandler, cfg.SessionTTL)
	chatHandler := api.NewChatHandler(baseHandler)
	gameHandler := api.NewGameHandler(baseHandler)
	templateHandler := api.NewTemplateHandler(templates)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := api.NewWebSocketHandler(eng, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(sessionid.Middleware)

	healthHandler.RegisterHealth(r)
	sessionHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	gameHandler.RegisterRoutes(r)
	templateHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // provider calls with retries can run long
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session expiry sweeper.
	store.StartSweeper(ctx, repo, 5*time.Minute)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// newRepository selects the store backend from configuration.
func newRepository(cfg *config.Config) (store.Repository, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		return store.NewSQLite(cfg.DBPath, cfg.SessionTTL)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return store.NewRedisStore(client, cfg.SessionTTL), nil
	default:
		return store.NewMemoryStore(cfg.SessionTTL), nil
	}
}
