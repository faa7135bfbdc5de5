package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/config"
	"github.com/mcdev12/fileupload/go/internal/eligibility"
	"github.com/mcdev12/fileupload/go/internal/feed"
	"github.com/mcdev12/fileupload/go/internal/intake"
	"github.com/mcdev12/fileupload/go/internal/ledger"
	"github.com/mcdev12/fileupload/go/internal/natsutil"
	"github.com/mcdev12/fileupload/go/internal/notify"
	"github.com/mcdev12/fileupload/go/internal/schedule"
	"github.com/mcdev12/fileupload/go/internal/sequence"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := schedule.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load time zone")
	}
	tournaments, err := schedule.LoadFile(cfg.ScheduleFile, loc)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.ScheduleFile).Msg("failed to load schedule")
	}
	log.Info().Int("tournaments", len(tournaments)).Str("time_zone", loc.String()).Msg("loaded schedule")

	var nc *natsConn
	if cfg.NeedsNATS() {
		natsCfg := natsutil.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		conn, js, err := natsutil.Connect(natsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer conn.Close()
		nc = &natsConn{js: js}
	}

	backing, err := setupStorage(ctx, cfg, nc)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(cfg.StorageBackend)).Msg("failed to set up storage")
	}
	defer backing.Close()

	store, err := ledger.Open(ctx, backing.backend, ledger.Options{Strict: cfg.StrictLoad})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open ledger")
	}
	log.Info().Int("records", store.Len()).Int("max_id", store.MaxID()).Msg("opened ledger")

	feedManager := feed.NewConnectionManager(feed.DefaultConnectionConfig())
	go feedManager.Start(ctx)

	publishers := notify.Multi{notify.LogPublisher{}, feedManager}
	if cfg.PublishEvents {
		jsPublisher, err := notify.NewJetStreamPublisher(ctx, nc.js, notify.DefaultJetStreamConfig())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		publishers = append(publishers, jsPublisher)
	}

	app := intake.NewApp(intake.Deps{
		Validator: eligibility.NewValidator(tournaments),
		IDs:       sequence.New(store.MaxID()),
		Files:     backing.files,
		Ledger:    store,
		Publisher: publishers,
	})

	server := setupServer(cfg.HTTPAddr,
		intake.NewService(app, loc, cfg.MaxUploadBytes),
		feed.NewWebSocketHandler(feedManager),
	)

	go func() {
		log.Info().Str("addr", server.Addr).Str("backend", string(cfg.StorageBackend)).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("file upload server shutdown complete")
}
