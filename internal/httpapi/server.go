// Package httpapi assembles the chi router for every inbound HTTP surface
// named in spec §6: the webhook endpoint, the admin retry/backfill/pending
// endpoints. Server owns its dependencies as plain struct fields and
// exposes a Routes()-style constructor for chi, the same shape used
// elsewhere for the outer CLI entrypoint wiring its dependencies into a
// single struct.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/acme-edu/recording-pipeline/internal/retryengine"
	"github.com/acme-edu/recording-pipeline/internal/store"
	"github.com/acme-edu/recording-pipeline/internal/webhook"
)

// Server owns every HTTP dependency and builds the chi router.
type Server struct {
	webhookHandler *webhook.Handler
	retryEngine    *retryengine.Engine
	syncer         *Syncer
	store          *store.SQLiteStore
	logger         *slog.Logger
}

// NewServer builds a Server.
func NewServer(webhookHandler *webhook.Handler, retryEngine *retryengine.Engine, syncer *Syncer, st *store.SQLiteStore, logger *slog.Logger) *Server {
	return &Server{
		webhookHandler: webhookHandler,
		retryEngine:    retryEngine,
		syncer:         syncer,
		store:          st,
		logger:         logger,
	}
}

// Routes builds the full chi.Router for the service.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Timeout(60 * time.Second))

	s.webhookHandler.RegisterRoutes(r)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/recordings/retry", s.handleRetry)
		r.Post("/sync/recordings", s.handleSync)
		r.Get("/recordings/pending", s.handlePending)
	})

	return r
}

// requestLogger logs method/path/status/duration per request, the same
// fields logged around every outbound HTTP call elsewhere in this module,
// applied here to the inbound side.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("httpapi:request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
