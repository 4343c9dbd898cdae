package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/adapters/gateway"
	router "github.com/dkeye/Plaza/internal/adapters/http"
	"github.com/dkeye/Plaza/internal/app"
	"github.com/dkeye/Plaza/internal/auth"
	"github.com/dkeye/Plaza/internal/config"
	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var store storage.Store
	if cfg.MongoURI != "" {
		ms, err := storage.NewMongoStore(ctx, storage.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connect")
		}
		store = ms
	} else {
		log.Warn().Msg("no mongo_uri configured, using in-memory store")
		store = storage.NewMemoryStore()
	}
	cache := storage.NewChatCache(cfg.RedisAddr, cfg.ChatHistory)

	rooms := core.NewRoomStore(store, cfg.RoomFetchTimeout)
	registry := app.NewRegistry()
	dispatch := app.NewDispatcher(registry, rooms, app.DropPolicy{})
	members := app.NewMembership(registry, rooms, dispatch, cfg.JoinRetries, cfg.JoinRetryBackoff)
	moves := app.NewMovement(registry, rooms, dispatch, cfg.MoveMinInterval, cfg.MoveEpsilon)
	chat := app.NewChatRelay(registry, dispatch, store, cache, cfg.ChatMaxLen)
	signals := app.NewSignalRelay(registry)

	ctl := &gateway.Controller{
		Auth:       auth.NewJWTVerifier(cfg.AuthSecret),
		Registry:   registry,
		Members:    members,
		Moves:      moves,
		Chat:       chat,
		Signals:    signals,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}

	r := router.SetupRouter(ctx, cfg, ctl, rooms)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Plaza server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
