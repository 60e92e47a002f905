package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/api"
	"w2s.io/advisor/internal/config"
	"w2s.io/advisor/internal/core"
	"w2s.io/advisor/internal/logger"
	"w2s.io/advisor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if _, err := logger.New(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logger")
	}

	ctx := context.Background()

	dbStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to initialize store")
	}
	defer dbStore.Close()

	if cfg.SeedUsers {
		n, err := store.SeedUsers(ctx, dbStore)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed users")
		}
		if n > 0 {
			log.Info().Int("users", n).Msg("Seeded demo users")
		}
	}

	llmService, err := core.NewLLMService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize LLM service")
	}
	defer llmService.Close()

	apiHandler := api.NewAPIHandler(dbStore, llmService, cfg.CurrentUserID, time.Now)
	router := api.NewRouter(apiHandler, cfg.AllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.AITimeout),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", serverAddr).
			Str("store", cfg.StoreDriver).
			Str("model", cfg.GeminiModel).
			Msg("Starting server. Press Ctrl+C to quit.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server exiting gracefully")
}

// writeTimeout leaves room to write the reply after a model call bounded by
// AI_TIMEOUT. An unbounded model call means an unbounded write.
func writeTimeout(aiTimeout time.Duration) time.Duration {
	if aiTimeout <= 0 {
		return 0
	}
	return aiTimeout + 15*time.Second
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}
