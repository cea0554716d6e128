package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/memorylane/internal/api/handlers"
	"github.com/nikhilbhutani/memorylane/internal/api/middleware"
	"github.com/nikhilbhutani/memorylane/internal/auth"
)

type Deps struct {
	Files     handlers.FileService
	Search    handlers.Searcher
	Stories   handlers.StoryService
	Health    map[string]handlers.Pinger
	Auth      *auth.JWTMiddleware
	Limiter   *middleware.RateLimiter
	Origins   []string
	MaxUpload int64
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if len(deps.Origins) == 0 {
		deps.Origins = []string{"*"}
	}
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.deps.Origins))
	if rt.deps.Limiter != nil {
		r.Use(rt.deps.Limiter.Limit)
	}

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.Health)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.deps.Auth.Authenticate)

		fileH := handlers.NewFileHandler(rt.deps.Files, rt.deps.MaxUpload)
		r.Route("/files", func(r chi.Router) {
			r.Post("/", fileH.Upload)
			r.Get("/", fileH.List)
			r.Get("/{id}", fileH.Get)
			r.Delete("/{id}", fileH.Delete)
			r.Get("/{id}/status", fileH.Status)
			r.Patch("/{id}/metadata", fileH.UpdateMetadata)
			r.Post("/{id}/reprocess", fileH.Reprocess)
		})

		searchH := handlers.NewSearchHandler(rt.deps.Search)
		r.Post("/search", searchH.Search)

		storyH := handlers.NewStoryHandler(rt.deps.Stories)
		r.Route("/stories", func(r chi.Router) {
			r.Post("/", storyH.Create)
			r.Get("/", storyH.List)
			r.Get("/{id}", storyH.Get)
		})
	})

	return r
}
