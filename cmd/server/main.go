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

	router "github.com/skillswap/live/internal/adapters/http"
	wsadapter "github.com/skillswap/live/internal/adapters/signal"
	"github.com/skillswap/live/internal/app"
	"github.com/skillswap/live/internal/auth"
	"github.com/skillswap/live/internal/config"
	"github.com/skillswap/live/internal/notify"
	"github.com/skillswap/live/internal/store/memory"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	sessions := memory.NewSessionStore()
	exchanges := memory.NewExchangeStore()
	presence := app.NewPresenceRegistry()
	sink := notify.NewLogSink()
	tokens := auth.NewAuthorizer(cfg.Secret, cfg.TokenTTL)

	manager := app.NewSessionManager(sessions, exchanges, presence, sink, tokens)
	invites := app.NewInvitationWorkflow(manager)
	relay := app.NewSignalingRelay(sessions, presence)
	janitor := app.NewJanitor(manager, cfg.WaitingSessionTTL, cfg.JanitorInterval)
	go janitor.Run(ctx)

	handlers := router.NewHandlers(manager, invites)
	ws := wsadapter.NewController(cfg, manager, relay, presence)

	r := router.SetupRouter(ctx, cfg, handlers, ws)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("live session server started")
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
