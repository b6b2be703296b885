package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ramenya/ordering-service/internal/catalog"
	"github.com/ramenya/ordering-service/internal/config"
	"github.com/ramenya/ordering-service/internal/db"
	"github.com/ramenya/ordering-service/internal/notify"
	"github.com/ramenya/ordering-service/internal/order"
	"github.com/ramenya/ordering-service/internal/transport"
	"github.com/ramenya/ordering-service/internal/ws"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	wmlog "github.com/ThreeDotsLabs/watermill"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "ordering-service").Logger()

	log.Info().Msg("Ordering service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	pg, err := db.New(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	// In-process publish channel. Both the emitter (publisher side) and the
	// websocket hub (subscriber side) share it.
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, wmlog.NopLogger{})
	defer pubSub.Close()

	catalogRepo := catalog.NewRepository(pg.Pool)
	catalogSvc := catalog.NewService(catalogRepo)

	orderRepo := order.NewRepository(pg.Pool, time.Local)
	validator := order.NewValidator(catalogRepo)
	emitter := notify.NewEmitter(pubSub)
	orderSvc := order.NewService(orderRepo, validator, emitter)

	hub := ws.NewHub(pubSub)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go func() {
		if err := hub.Run(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Websocket hub stopped")
		}
	}()

	router := transport.NewRouter(orderSvc, catalogSvc, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	stopHub()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
