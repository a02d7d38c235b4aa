package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/config"
	"github.com/speakerlens/speakerlens/internal/database"
	"github.com/speakerlens/speakerlens/internal/events"
	"github.com/speakerlens/speakerlens/internal/metrics"
	"github.com/speakerlens/speakerlens/internal/notify"
	"github.com/speakerlens/speakerlens/internal/playback"
	"github.com/speakerlens/speakerlens/internal/storage"
	"github.com/speakerlens/speakerlens/internal/transcribe"
)

// Deps collects everything the HTTP layer serves. DB, Archive, and MQTT may
// be nil when not configured.
type Deps struct {
	Manager    *transcribe.Manager
	Controller *playback.Controller
	Store      *storage.LocalStore
	Archive    *storage.S3Archive
	DB         *database.DB
	MQTT       *notify.MQTTPublisher
	Bus        *events.Bus
	Version    string
	StartTime  time.Time
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	health := NewHealthHandler(deps.DB, deps.MQTT, cfg.ProviderAPIKey != "", deps.Version, deps.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	jobs := NewJobsHandler(deps.Manager, deps.Store, deps.Archive, log)
	transcripts := NewTranscriptsHandler(deps.Manager, deps.DB)
	play := NewPlaybackHandler(deps.Controller, deps.Store)
	audio := NewAudioHandler(deps.Store, deps.Archive)
	sse := NewEventsHandler(deps.Bus)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))

		r.Post("/api/v1/jobs", jobs.SubmitJob)
		r.Get("/api/v1/jobs/current", jobs.CurrentJob)

		r.Get("/api/v1/transcript", transcripts.CurrentTranscript)
		r.Get("/api/v1/transcript/excerpts", transcripts.Excerpts)
		r.Put("/api/v1/speakers/{speaker}", transcripts.SetSpeakerName)

		r.Get("/api/v1/transcripts", transcripts.ListTranscripts)
		r.Get("/api/v1/transcripts/{id}", transcripts.GetTranscript)

		r.Post("/api/v1/playback", play.Play)
		r.Delete("/api/v1/playback", play.Stop)
		r.Get("/api/v1/playback", play.State)

		r.Get("/api/v1/audio/{id}", audio.ServeAudio)
		r.Get("/api/v1/events", sse.StreamEvents)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
