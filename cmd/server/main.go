package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"wayfarer/internal/assets"
	"wayfarer/internal/config"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/entropy"
	"wayfarer/internal/events"
	"wayfarer/internal/handler"
	"wayfarer/internal/middleware"
	"wayfarer/internal/repository/file"
	"wayfarer/internal/repository/sqlite"
	"wayfarer/internal/service"
	"wayfarer/internal/service/narrator"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"backend", cfg.StorageBackend,
	)

	store, err := openStorage(cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	catalog, err := assets.Load(cfg.AssetsDir)
	if err != nil {
		logger.Error("asset catalog load failed", "error", err)
		os.Exit(1)
	}

	// Core wiring: entropy and the shared catalogs are process-wide; each
	// request path goes lock manager -> engine/services -> storage.
	source := entropy.NewSource(store)
	locks := service.NewLockManager(store, logger)
	bus := events.NewBus(logger)
	engine := service.NewTurnEngine(store, locks, source, bus, cfg.AutoSaveEvery, logger)
	rolls := service.NewRollService(store, locks, source, bus, logger)
	sessions := service.NewSessionService(store, locks, catalog, logger)

	var producer narrator.Narrator
	if cfg.AnthropicAPIKey != "" {
		producer = narrator.NewAnthropicNarrator(cfg.AnthropicAPIKey, cfg.DMModel, logger)
		logger.Info("narrator configured", "model", cfg.DMModel)
	} else if cfg.Environment != "prod" {
		producer = narrator.NewOfflineNarrator()
		logger.Info("offline narrator in use (no ANTHROPIC_API_KEY)")
	}
	narrate := service.NewNarrateService(store, producer, catalog, engine, logger)

	handlers := &handler.Handlers{
		Sessions:      handler.NewSessionHandler(sessions, logger),
		Locks:         handler.NewLockHandler(locks, logger),
		Turns:         handler.NewTurnHandler(engine, narrate, logger),
		Rolls:         handler.NewRollHandler(rolls, logger),
		Saves:         handler.NewSavesHandler(sessions, logger),
		Docs:          handler.NewDocsHandler(sessions, logger),
		Character:     handler.NewCharacterHandler(sessions, logger),
		Entropy:       handler.NewEntropyHandler(source, logger),
		Events:        handler.NewEventsHandler(bus, sessions, logger),
		Assets:        handler.NewAssetsHandler(catalog),
		Backend:       cfg.StorageBackend,
		EntropySource: source,
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", middleware.APIKeyHeader},
		AllowCredentials: true,
	})

	var root http.Handler = handlers.Routes()
	root = middleware.APIKey(cfg.APIKey)(root)
	root = corsMiddleware.Handler(root)
	root = middleware.RequestLogger(logger)(root)
	root = middleware.Recovery(logger)(root)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("services initialized")

	// Graceful shutdown on SIGINT/SIGTERM; SSE streams end with the server.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
}

func openStorage(cfg *config.Config, logger *slog.Logger) (repositories.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return sqlite.Open(cfg.DatabaseURL, logger)
	default:
		return file.New(cfg.DataRoot, logger)
	}
}
