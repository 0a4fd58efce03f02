// LiaiZen Mediation Plane: real-time decision engine for co-parent
// messaging.
//
// For every inbound message it decides: deliver unchanged, deliver with
// an advisory comment, or hold it and coach the sender with rewrites.
// The engine fails open on every internal error; a user's message is
// never lost to mediation trouble.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/internal/analysiscache"
	"github.com/liaizen/mediation-plane/internal/api"
	"github.com/liaizen/mediation-plane/internal/api/handlers"
	"github.com/liaizen/mediation-plane/internal/completion"
	"github.com/liaizen/mediation-plane/internal/config"
	"github.com/liaizen/mediation-plane/internal/mediator"
	"github.com/liaizen/mediation-plane/internal/profile"
	"github.com/liaizen/mediation-plane/internal/state"
	"github.com/liaizen/mediation-plane/internal/telemetry"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("LiaiZen mediation plane starting...")

	cfg := config.Load()

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	cache := newCache(cfg)

	profiles, err := profile.OpenSQLite(cfg.Profiles.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open profile store")
	}
	defer profiles.Close()

	client := completion.NewOpenAI(cfg.Completion)
	if !client.IsConfigured() {
		log.Warn().Msg("No completion API key set; all messages will be allowed through")
	}

	engine := mediator.New(mediator.Options{
		Client:      client,
		Cache:       cache,
		State:       state.NewStore(),
		Profiles:    profiles,
		Graph:       profile.LogGraphRecorder{},
		CallTimeout: cfg.Completion.Timeout,
	})

	router := api.NewRouter(cfg, handlers.New(engine))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		shutdownTelemetry(shutdownCtx)
	}()

	log.Info().
		Int("port", cfg.Port).
		Str("model", cfg.Completion.Model).
		Msg("Mediation plane ready")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newCache picks the analysis cache backend: Redis when an address is
// configured, in-process memory otherwise.
func newCache(cfg *config.Config) analysiscache.Cache {
	if cfg.Cache.RedisAddr == "" {
		return analysiscache.NewMemory(cfg.Cache.MaxAge, cfg.Cache.MaxSize)
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Using Redis analysis cache")
	return analysiscache.NewRedis(client, cfg.Cache.MaxAge)
}
