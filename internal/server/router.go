package server

import (
	"net/http"

	"github.com/frontline-hq/frontline/internal/api"
	"github.com/frontline-hq/frontline/internal/api/handlers"
	"github.com/frontline-hq/frontline/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	RequestHandler   *handlers.RequestHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/requests", func(r chi.Router) {
		r.Post("/", cfg.RequestHandler.Create)
		r.Get("/", cfg.RequestHandler.List)
		r.Get("/pending", cfg.RequestHandler.ListPending)
		r.Get("/stats", cfg.RequestHandler.Stats)
		r.Get("/{id}", cfg.RequestHandler.Get)
		r.Get("/{id}/links", cfg.RequestHandler.Links)
		r.Get("/{id}/transcript", cfg.RequestHandler.Transcript)
		r.Post("/{id}/resolve", cfg.RequestHandler.Resolve)
		r.Post("/{id}/unresolved", cfg.RequestHandler.MarkUnresolved)
		r.Post("/{id}/follow-up", cfg.RequestHandler.FollowUp)
	})

	r.Route("/kb", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeHandler.Upsert)
		r.Get("/", cfg.KnowledgeHandler.List)
		r.Get("/stats", cfg.KnowledgeHandler.Stats)
		r.Post("/search", cfg.KnowledgeHandler.Search)
		r.Get("/{id}", cfg.KnowledgeHandler.Get)
		r.Delete("/{id}", cfg.KnowledgeHandler.Deactivate)
		r.Post("/{id}/feedback", cfg.KnowledgeHandler.Feedback)
		r.Post("/{id}/delivered", cfg.KnowledgeHandler.Delivered)
	})

	r.Post("/maintenance/check-timeouts", cfg.RequestHandler.CheckTimeouts)

	return r
}
