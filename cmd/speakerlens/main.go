package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/api"
	"github.com/speakerlens/speakerlens/internal/config"
	"github.com/speakerlens/speakerlens/internal/database"
	"github.com/speakerlens/speakerlens/internal/events"
	"github.com/speakerlens/speakerlens/internal/ingest"
	"github.com/speakerlens/speakerlens/internal/notify"
	"github.com/speakerlens/speakerlens/internal/playback"
	"github.com/speakerlens/speakerlens/internal/storage"
	"github.com/speakerlens/speakerlens/internal/transcribe"
	"github.com/speakerlens/speakerlens/internal/transcript"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level")
	flag.StringVar(&overrides.AudioDir, "audio-dir", "", "audio storage directory")
	flag.StringVar(&overrides.WatchDir, "watch-dir", "", "drop directory to watch for audio files")
	flag.StringVar(&overrides.DatabaseURL, "db-url", "", "PostgreSQL connection string")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("speakerlens starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audio storage
	store, err := storage.NewLocalStore(cfg.AudioDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init audio storage")
	}

	var archive *storage.S3Archive
	if cfg.S3.Enabled() {
		archive, err = storage.NewS3Archive(cfg.S3, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init S3 archive")
		}
	}

	// Optional transcript persistence
	var db *database.DB
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err = database.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure database schema")
		}
	}

	// Optional MQTT notifications
	var mqtt *notify.MQTTPublisher
	if cfg.MQTTBrokerURL != "" {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err = notify.Connect(notify.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
	}

	bus := events.NewBus()

	// Transcription
	provider := transcribe.NewAssemblyAIClient(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	manager := transcribe.NewManager(transcribe.ManagerOptions{
		Provider:     provider,
		Credentials:  cfg.ProviderAPIKey,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
		Publish: func(eventType string, payload map[string]any) {
			bus.Publish(eventType, payload)
		},
		OnCompleted: func(jobID, filename string, res *transcript.Result) {
			persistTranscript(ctx, db, log, jobID, filename, res)
			if mqtt != nil {
				mqtt.Publish("completed", map[string]any{
					"job_id":     jobID,
					"filename":   filename,
					"utterances": len(res.Utterances),
					"speakers":   len(res.Speakers()),
				})
			}
		},
		Log: log.With().Str("component", "transcribe").Logger(),
	})

	// Playback
	element := playback.NewClockElement(cfg.PlaybackTick)
	opener := storage.TempOpener(os.TempDir())
	controller := playback.NewController(element, opener, log.With().Str("component", "playback").Logger())
	defer controller.Stop()

	// Optional drop-directory intake
	if cfg.WatchDir != "" {
		watchLog := log.With().Str("component", "ingest").Logger()
		watcher := ingest.NewWatcher(manager, cfg.WatchDir, watchLog)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start file watcher")
		}
		defer watcher.Stop()
	}

	// HTTP server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.Deps{
		Manager:    manager,
		Controller: controller,
		Store:      store,
		Archive:    archive,
		DB:         db,
		MQTT:       mqtt,
		Bus:        bus,
		Version:    version,
		StartTime:  startTime,
	}, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("speakerlens stopped")
}

// persistTranscript stores a completed transcript when the database is
// configured.
func persistTranscript(ctx context.Context, db *database.DB, log zerolog.Logger, jobID, filename string, res *transcript.Result) {
	if db == nil {
		return
	}

	utterances, err := json.Marshal(res.Utterances)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("marshal utterances failed")
		return
	}

	insertCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = db.InsertTranscript(insertCtx, &database.TranscriptRow{
		ID:             jobID,
		Filename:       filename,
		SpeakerCount:   len(res.Speakers()),
		UtteranceCount: len(res.Utterances),
		Utterances:     utterances,
	})
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("persist transcript failed")
	}
}
