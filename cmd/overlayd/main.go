package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rsl-live/arena-overlay/clients/rsl_client"
	"github.com/rsl-live/arena-overlay/internal/config"
	"github.com/rsl-live/arena-overlay/internal/control"
	"github.com/rsl-live/arena-overlay/internal/presenter"
	"github.com/rsl-live/arena-overlay/internal/selection"
	"github.com/rsl-live/arena-overlay/internal/snapshot"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("OVERLAY_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	configPath := flag.String("config", "overlayd.yaml", "path to daemon config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}

	settings, err := config.Load(cfg.Overlay.SettingsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Overlay.SettingsPath).Msg("using default settings")
	}

	client := rsl_client.NewClient(cfg.Service.BaseURL)
	store := snapshot.NewStore(client.ImageURL)
	refresher := snapshot.NewRefresher(store, client)
	clock := clockwork.NewRealClock()
	selections := selection.NewManager(store, cfg.Overlay.SettingsPath, settings, clock)
	builder := presenter.NewBuilder(store)

	hub := presenter.NewHub(presenter.DefaultHubConfig())

	var renderer presenter.Renderer = hub
	var natsPublisher *presenter.NATSPublisher
	if cfg.NATS.Enabled {
		natsConfig := presenter.DefaultNATSConfig()
		if cfg.NATS.URL != "" {
			natsConfig.URL = cfg.NATS.URL
		}
		if cfg.NATS.SubjectPrefix != "" {
			natsConfig.SubjectPrefix = cfg.NATS.SubjectPrefix
		}
		natsPublisher, err = presenter.NewNATSPublisher(natsConfig)
		if err != nil {
			log.Fatal().Err(err).Str("url", natsConfig.URL).Msg("failed to connect to NATS")
		}
		renderer = presenter.Multi{hub, natsPublisher}
	}

	controllerConfig := control.DefaultConfig()
	if cfg.Overlay.PollInterval > 0 {
		controllerConfig.PollInterval = cfg.Overlay.PollInterval
	}
	if cfg.Overlay.ServiceInterval > 0 {
		controllerConfig.ServiceInterval = cfg.Overlay.ServiceInterval
	}
	if cfg.Overlay.MaxWorkers > 0 {
		controllerConfig.MaxWorkers = cfg.Overlay.MaxWorkers
	}

	controller := control.NewController(client, store, refresher, selections, builder, renderer, clock, controllerConfig)
	hub.OnAction(controller.HandleRaw)

	log.Info().
		Str("service", client.BaseURL()).
		Str("port", cfg.Server.Port).
		Bool("nats", cfg.NATS.Enabled).
		Msg("starting overlay daemon")

	// Setup HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"arena-overlay","connections":%d}`, hub.ConnectionCount())
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := controller.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("controller stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop the controller; it flushes any pending settings write on the way
	// out.
	cancel()
	time.Sleep(500 * time.Millisecond)

	if natsPublisher != nil {
		natsPublisher.Close()
	}

	log.Info().Msg("overlay daemon shutdown complete")
}
