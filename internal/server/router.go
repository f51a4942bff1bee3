package server

import (
	"net/http"

	"github.com/colsp-platform/colsp/internal/api"
	"github.com/colsp-platform/colsp/internal/api/handlers"
	"github.com/colsp-platform/colsp/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SessionValidator middleware.SessionValidator
	ChatHandler      *handlers.ChatHandler
	ReportHandler    *handlers.ReportHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Multipart report submissions carry attachments, so the global cap
	// sits above the single-attachment limit.
	const maxBodyBytes int64 = 12 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public feed: anyone can read published reports.
	r.Get("/reports", cfg.ReportHandler.List)
	r.Get("/reports/{slug}", cfg.ReportHandler.GetBySlug)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.SessionValidator))

		r.Post("/chat", cfg.ChatHandler.Send)
		r.Post("/reports", cfg.ReportHandler.Submit)
		r.Post("/reports/reactions", cfg.ReportHandler.React)

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", cfg.KnowledgeHandler.Create)
			r.Get("/{id}", cfg.KnowledgeHandler.Get)
			r.Put("/{id}", cfg.KnowledgeHandler.Update)
		})
	})

	return r
}
