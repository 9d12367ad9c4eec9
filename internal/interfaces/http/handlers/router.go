package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/observability"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/middleware"
	"github.com/DaX-523/notes-ai-1811/internal/service/notes"
)

// RouterConfig holds what the API router needs. Metrics may be nil.
type RouterConfig struct {
	Notes          notes.Service
	Verifier       middleware.TokenVerifier
	Metrics        *observability.Collector
	Logger         *zap.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the chi router for the notes API.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Location", "X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	h := NewNoteHandler(cfg.Notes, logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticator(cfg.Verifier, logger))

		r.Get("/notes", h.List)
		r.Post("/notes", h.Create)
		r.Put("/notes/{noteID}", h.Update)
		r.Delete("/notes/{noteID}", h.Delete)
		r.Put("/notes/{noteID}/summary", h.UpdateSummary)
		r.Post("/notes/{noteID}/summarize", h.Summarize)

		r.Post("/summaries", h.SummarizeContent)
		r.Get("/summaries/all", h.SummarizeAll)

		r.Get("/profile", h.Profile)
	})
	return r
}
